// Package bootstrap builds the application graph from settings.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/mmrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/mmrag/internal/adapters/driven/config/env"
	"github.com/custodia-labs/mmrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mmrag/internal/adapters/driven/imagestore"
	"github.com/custodia-labs/mmrag/internal/adapters/driven/storage"
	"github.com/custodia-labs/mmrag/internal/adapters/driving/discover"
	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/services"
	"github.com/custodia-labs/mmrag/internal/extractors"
	"github.com/custodia-labs/mmrag/internal/logger"
	"github.com/custodia-labs/mmrag/internal/metrics"
	"github.com/custodia-labs/mmrag/internal/postprocessors"
)

// Options controls where state lives and how providers are checked.
type Options struct {
	// DataDir holds the config file, the sqlite database and prompts.
	// Empty resolves through MMRAG_DATA_DIR, then ~/.mmrag.
	DataDir string

	// ConfigPath overrides <DataDir>/config.toml. A .yaml or .yml
	// extension selects the YAML format.
	ConfigPath string

	// EnvFiles are dotenv files loaded before settings are read.
	EnvFiles []string

	// Validate pings the providers at start.
	Validate bool
}

// App holds every wired service. Close releases them in reverse order.
type App struct {
	DataDir  string
	Settings *domain.AppSettings
	Warnings []string

	SettingsService *services.SettingsService
	Pipeline        *services.IngestionPipeline
	Queue           *services.IngestQueue
	Retriever       *services.Retriever
	Answers         *services.AnswerService
	Status          *services.StatusService
	Metrics         *metrics.Collector
	Finder          *discover.Finder

	closers []func() error
}

// Settings loads configuration only. Commands that edit settings use it so
// they work before any provider is reachable.
func Settings(opts Options) (*services.SettingsService, string, error) {
	if err := env.Load(opts.EnvFiles...); err != nil {
		return nil, "", fmt.Errorf("load env: %w", err)
	}
	dataDir, err := env.ResolveDataDir(opts.DataDir, nil)
	if err != nil {
		return nil, "", fmt.Errorf("resolve data dir: %w", err)
	}

	var store *file.ConfigStore
	if opts.ConfigPath != "" {
		store, err = file.NewConfigStoreAt(opts.ConfigPath)
	} else {
		store, err = file.NewConfigStore(dataDir)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open config: %w", err)
	}
	return services.NewSettingsService(store, ai.NewConfigValidator()), dataDir, nil
}

// Build wires the full graph. The ingest queue is created but not started.
func Build(ctx context.Context, opts Options) (*App, error) {
	settingsSvc, dataDir, err := Settings(opts)
	if err != nil {
		return nil, err
	}
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	env.Apply(settings, nil)

	app := &App{
		DataDir:         dataDir,
		Settings:        settings,
		SettingsService: settingsSvc,
	}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	aiServices, err := ai.Init(settings, opts.Validate)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error {
		aiServices.Close()
		return nil
	})
	app.Warnings = append(app.Warnings, aiServices.Warnings...)
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}

	dims := aiServices.Embedder.Dimensions()
	backend, err := storage.Open(ctx, settings.Index, dataDir, dims)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, backend.Close)
	logger.Debug("Index backend %s ready, %d dimensions", backend.Kind, dims)

	app.Metrics = metrics.NewCollector(metrics.DefaultNamespace)

	registry := extractors.NewDefaultRegistry(extractors.Config{
		ProcessedDir: settings.Paths.Processed,
		OCR:          settings.Ingest.OCR,
	})
	chunks, err := postprocessors.FromSettings(settings.Ingest)
	if err != nil {
		return nil, fmt.Errorf("build post-processors: %w", err)
	}

	batcher := services.NewEmbeddingBatcher(aiServices.Embedder, backend.Index,
		services.WithBatchSize(settings.Ingest.BatchSize),
		services.WithUpsertRetry(settings.Ingest.UpsertAttempts, settings.Ingest.UpsertBackoff),
		services.WithBatcherMetrics(app.Metrics),
	)
	app.Pipeline = services.NewIngestionPipeline(registry, batcher,
		services.WithMaxConcurrency(settings.Ingest.MaxConcurrency),
		services.WithPostProcessors(chunks),
		services.WithRunStore(backend.Runs),
		services.WithIngestMetrics(app.Metrics),
	)
	app.Queue = services.NewIngestQueue(app.Pipeline, settings.Ingest.MaxConcurrency, settings.Ingest.QueueDepth)
	app.closers = append(app.closers, app.Queue.Stop)

	app.Retriever = services.NewRetriever(aiServices.Embedder, backend.Index, app.Metrics)
	fusion := services.NewContextFusion(imagestore.NewLoader(imagestore.DefaultMaxBytes))

	app.Answers = services.NewAnswerService(app.Retriever, fusion, aiServices.Generator, ai.GenerateOptions(settings.Generation))
	if prompts, err := file.NewPromptStore(filepath.Join(dataDir, "prompts")); err != nil {
		logger.Warn("Prompt templates unavailable, using built-in prompt: %v", err)
	} else {
		app.Answers.SetPromptStore(prompts)
	}

	app.Status = services.NewStatusService(backend.Index, backend.Kind)

	app.Finder, err = discover.New(settings.Ingest.Include, app.Pipeline.Supports)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	ok = true
	return app, nil
}

// Close stops the queue and releases providers and storage.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
