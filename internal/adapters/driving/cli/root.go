// Package cli provides the mmrag command line interface.
package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
	"github.com/custodia-labs/mmrag/internal/core/services"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// annotationSettingsOnly marks commands that only need the settings service.
const annotationSettingsOnly = "mmrag/settings-only"

// annotationNoServices marks commands that need nothing wired.
const annotationNoServices = "mmrag/no-services"

// BackgroundQueue is an ingest queue the CLI can start and stop.
type BackgroundQueue interface {
	driving.IngestQueue
	Start(ctx context.Context) error
	Stop() error
}

// FileFinder expands paths into ingestible files.
type FileFinder interface {
	Find(paths ...string) ([]string, error)
	Match(rel string) bool
}

// progressReporter is implemented by ingestion services that emit progress.
type progressReporter interface {
	SetProgress(fn services.ProgressFunc)
}

// Services holds everything the commands drive.
type Services struct {
	Settings  driving.SettingsService
	Ingest    driving.IngestionService
	Queue     BackgroundQueue
	Retrieval driving.RetrievalService
	Answer    driving.AnswerService
	Status    driving.StatusService
	Files     FileFinder
	Metrics   http.Handler

	// RawDataDir is ingested when no paths are given.
	RawDataDir string

	// ServerAddr is the default listen address for serve.
	ServerAddr string

	// Close releases the services.
	Close func() error
}

// LoadOptions carries the global flags to a Loader.
type LoadOptions struct {
	DataDir    string
	ConfigPath string

	// SettingsOnly asks for the settings service alone, so configuration
	// can be edited while providers are unreachable.
	SettingsOnly bool
}

// Loader builds services after flags are parsed.
type Loader func(ctx context.Context, opts LoadOptions) (*Services, error)

var (
	settingsService  driving.SettingsService
	ingestService    driving.IngestionService
	ingestQueue      BackgroundQueue
	retrievalService driving.RetrievalService
	answerService    driving.AnswerService
	statusService    driving.StatusService
	fileFinder       FileFinder
	metricsHandler   http.Handler
	rawDataDir       string
	serverAddr       string

	loader        Loader
	closeServices func() error
)

var (
	dataDirFlag string
	configFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "mmrag",
	Short: "Multimodal retrieval-augmented generation",
	Long: `mmrag ingests PDFs, images and text into a vector index and answers
questions grounded in the retrieved text and images.

Documents are extracted into text, table and image chunks, embedded in one
shared vector space and stored in the configured index. Queries retrieve the
closest chunks and hand both their text and their images to a multimodal
model.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadServices,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "",
		"directory for config, index and prompts (default $MMRAG_DATA_DIR or ~/.mmrag)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file path (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

// SetLoader registers the function that builds services on demand.
func SetLoader(fn Loader) {
	loader = fn
}

// SetServices installs services directly, bypassing the loader.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	settingsService = s.Settings
	ingestService = s.Ingest
	ingestQueue = s.Queue
	retrievalService = s.Retrieval
	answerService = s.Answer
	statusService = s.Status
	fileFinder = s.Files
	metricsHandler = s.Metrics
	rawDataDir = s.RawDataDir
	serverAddr = s.ServerAddr
	closeServices = s.Close
}

// Execute runs the root command and releases services afterwards.
func Execute() error {
	err := rootCmd.Execute()
	if closeServices != nil {
		if cerr := closeServices(); cerr != nil {
			logger.Warn("Shutdown: %v", cerr)
		}
		closeServices = nil
	}
	return err
}

func loadServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verboseFlag)

	if loader == nil || skipsServices(cmd) {
		return nil
	}
	settingsOnly := cmd.Annotations[annotationSettingsOnly] != ""
	if settingsOnly && settingsService != nil {
		return nil
	}
	if !settingsOnly && answerService != nil {
		return nil
	}

	s, err := loader(cmd.Context(), LoadOptions{
		DataDir:      dataDirFlag,
		ConfigPath:   configFlag,
		SettingsOnly: settingsOnly,
	})
	if err != nil {
		return err
	}
	if s == nil {
		return errors.New("no services loaded")
	}
	SetServices(s)
	return nil
}

// skipsServices reports whether cmd runs without any wiring.
func skipsServices(cmd *cobra.Command) bool {
	if cmd.Annotations[annotationNoServices] != "" {
		return true
	}
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}
