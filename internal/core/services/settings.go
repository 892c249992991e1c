package services

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// ErrUnknownSetting is returned by Set for keys that are not recognised.
var ErrUnknownSetting = errors.New("unknown setting")

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedVisionModel = "embedding.vision_model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDims        = "embedding.dimensions"
	keyEmbedRPS         = "embedding.requests_per_second"

	keyGenProvider    = "generation.provider"
	keyGenModel       = "generation.model"
	keyGenBaseURL     = "generation.base_url"
	keyGenAPIKey      = "generation.api_key"
	keyGenTemperature = "generation.temperature"
	keyGenMaxTokens   = "generation.max_tokens"

	keyIndexBackend    = "index.backend"
	keyIndexPath       = "index.path"
	keyIndexAddr       = "index.addr"
	keyIndexCollection = "index.collection"
	keyIndexMaxBatch   = "index.max_batch_size"

	keyIngestBatchSize   = "ingest.batch_size"
	keyIngestConcurrency = "ingest.max_concurrency"
	keyIngestAttempts    = "ingest.upsert_attempts"
	keyIngestBackoff     = "ingest.upsert_backoff"
	keyIngestQueueDepth  = "ingest.queue_depth"
	keyIngestChunkSize   = "ingest.chunk_size"
	keyIngestOverlap     = "ingest.chunk_overlap"
	keyIngestInclude     = "ingest.include"
	keyIngestOCR         = "ingest.ocr"

	keyPathRawData   = "paths.raw_data"
	keyPathProcessed = "paths.processed"

	keyServerAddr = "server.addr"
)

const defaultOllamaURL = "http://localhost:11434"

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindList
)

// settingKinds lists every key accepted by Set with the type it parses to.
var settingKinds = map[string]settingKind{
	keyEmbedProvider:     kindString,
	keyEmbedModel:        kindString,
	keyEmbedVisionModel:  kindString,
	keyEmbedBaseURL:      kindString,
	keyEmbedAPIKey:       kindString,
	keyEmbedDims:         kindInt,
	keyEmbedRPS:          kindFloat,
	keyGenProvider:       kindString,
	keyGenModel:          kindString,
	keyGenBaseURL:        kindString,
	keyGenAPIKey:         kindString,
	keyGenTemperature:    kindFloat,
	keyGenMaxTokens:      kindInt,
	keyIndexBackend:      kindString,
	keyIndexPath:         kindString,
	keyIndexAddr:         kindString,
	keyIndexCollection:   kindString,
	keyIndexMaxBatch:     kindInt,
	keyIngestBatchSize:   kindInt,
	keyIngestConcurrency: kindInt,
	keyIngestAttempts:    kindInt,
	keyIngestBackoff:     kindDuration,
	keyIngestQueueDepth:  kindInt,
	keyIngestChunkSize:   kindInt,
	keyIngestOverlap:     kindInt,
	keyIngestInclude:     kindList,
	keyIngestOCR:         kindBool,
	keyPathRawData:       kindString,
	keyPathProcessed:     kindString,
	keyServerAddr:        kindString,
}

// SettingKeys returns every key accepted by Set, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, d.Embedding.Model),
			VisionModel:       s.configStore.GetString(keyEmbedVisionModel),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.configStore.GetInt(keyEmbedDims),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		Generation: domain.GenerationSettings{
			Provider:    s.getProvider(keyGenProvider, d.Generation.Provider),
			Model:       s.getString(keyGenModel, d.Generation.Model),
			BaseURL:     s.configStore.GetString(keyGenBaseURL),
			APIKey:      s.configStore.GetString(keyGenAPIKey),
			Temperature: s.getFloat(keyGenTemperature, d.Generation.Temperature),
			MaxTokens:   s.getInt(keyGenMaxTokens, d.Generation.MaxTokens),
		},
		Index: domain.IndexSettings{
			Backend:      s.getBackend(d.Index.Backend),
			Path:         s.configStore.GetString(keyIndexPath),
			Addr:         s.configStore.GetString(keyIndexAddr),
			Collection:   s.getString(keyIndexCollection, d.Index.Collection),
			MaxBatchSize: s.getInt(keyIndexMaxBatch, d.Index.MaxBatchSize),
		},
		Ingest: domain.IngestSettings{
			BatchSize:      s.getInt(keyIngestBatchSize, d.Ingest.BatchSize),
			MaxConcurrency: s.getInt(keyIngestConcurrency, d.Ingest.MaxConcurrency),
			UpsertAttempts: s.getInt(keyIngestAttempts, d.Ingest.UpsertAttempts),
			UpsertBackoff:  s.getDuration(keyIngestBackoff, d.Ingest.UpsertBackoff),
			QueueDepth:     s.getInt(keyIngestQueueDepth, d.Ingest.QueueDepth),
			ChunkSize:      s.getInt(keyIngestChunkSize, d.Ingest.ChunkSize),
			ChunkOverlap:   s.getOverlap(d.Ingest.ChunkOverlap),
			Include:        s.getStringSlice(keyIngestInclude, d.Ingest.Include),
			OCR:            s.getBool(keyIngestOCR, d.Ingest.OCR),
		},
		Paths: domain.PathSettings{
			RawData:   s.getString(keyPathRawData, d.Paths.RawData),
			Processed: s.getString(keyPathProcessed, d.Paths.Processed),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, d.Server.Addr),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedVisionModel, settings.Embedding.VisionModel},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyGenProvider, settings.Generation.Provider.String()},
		{keyGenModel, settings.Generation.Model},
		{keyGenBaseURL, settings.Generation.BaseURL},
		{keyGenTemperature, settings.Generation.Temperature},
		{keyGenMaxTokens, settings.Generation.MaxTokens},
		{keyIndexBackend, settings.Index.Backend.String()},
		{keyIndexPath, settings.Index.Path},
		{keyIndexAddr, settings.Index.Addr},
		{keyIndexCollection, settings.Index.Collection},
		{keyIndexMaxBatch, settings.Index.MaxBatchSize},
		{keyIngestBatchSize, settings.Ingest.BatchSize},
		{keyIngestConcurrency, settings.Ingest.MaxConcurrency},
		{keyIngestAttempts, settings.Ingest.UpsertAttempts},
		{keyIngestBackoff, settings.Ingest.UpsertBackoff.String()},
		{keyIngestQueueDepth, settings.Ingest.QueueDepth},
		{keyIngestChunkSize, settings.Ingest.ChunkSize},
		{keyIngestOverlap, settings.Ingest.ChunkOverlap},
		{keyIngestInclude, settings.Ingest.Include},
		{keyIngestOCR, settings.Ingest.OCR},
		{keyPathRawData, settings.Paths.RawData},
		{keyPathProcessed, settings.Paths.Processed},
		{keyServerAddr, settings.Server.Addr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when present so an env-provided key is never
	// blanked in the file.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}
	if settings.Generation.APIKey != "" {
		if err := s.configStore.Set(keyGenAPIKey, settings.Generation.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyGenAPIKey, err)
		}
	}

	return nil
}

// Set parses value according to the key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s: expected a non-negative integer, got %q", key, value)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%s: expected a non-negative number, got %q", key, value)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected true or false, got %q", key, value)
		}
		parsed = b
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: expected a duration such as 500ms, got %q", key, value)
		}
		parsed = value
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		parsed = items
	default:
		parsed = value
	}

	switch key {
	case keyEmbedProvider:
		if p := domain.AIProvider(value); !p.SupportsEmbedding() {
			return fmt.Errorf("provider %s does not support embeddings", value)
		}
	case keyGenProvider:
		if p := domain.AIProvider(value); !p.SupportsGeneration() {
			return fmt.Errorf("provider %s does not support generation", value)
		}
	case keyIndexBackend:
		if !domain.IndexBackend(value).IsValid() {
			return fmt.Errorf("invalid index backend: %s", value)
		}
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !provider.SupportsEmbedding() {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	// A different model almost always means a different vector size.
	settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]

	return s.Save(settings)
}

// SetGenerationProvider configures the generation provider.
func (s *SettingsService) SetGenerationProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid generation provider: %s", provider)
	}
	if !provider.SupportsGeneration() {
		return fmt.Errorf("provider %s does not support generation", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Generation.Provider = provider
	settings.Generation.Model = modelOrDefault(model, domain.DefaultGenerationModels()[provider])
	settings.Generation.BaseURL = baseURLFor(provider, settings.Generation.BaseURL)
	settings.Generation.APIKey = apiKey

	return s.Save(settings)
}

// SetIndexBackend selects the vector index backend.
func (s *SettingsService) SetIndexBackend(backend domain.IndexBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid index backend: %s", backend)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Index.Backend = backend
	return s.Save(settings)
}

// Validate checks that the current settings are internally consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider))
	}
	if settings.Embedding.ResolvedDimensions() <= 0 {
		errs = append(errs, fmt.Errorf(
			"unknown dimension for embedding model %q: set %s", settings.Embedding.Model, keyEmbedDims))
	}
	if !settings.Generation.IsConfigured() {
		errs = append(errs, fmt.Errorf("generation provider %q is not configured", settings.Generation.Provider))
	}
	if settings.Index.Backend == domain.IndexBackendQdrant && settings.Index.Addr == "" {
		errs = append(errs, fmt.Errorf("index backend qdrant requires %s", keyIndexAddr))
	}
	if settings.Ingest.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyIngestBatchSize))
	}
	if settings.Index.MaxBatchSize > 0 && settings.Ingest.BatchSize > settings.Index.MaxBatchSize {
		errs = append(errs, fmt.Errorf("%s (%d) exceeds %s (%d)",
			keyIngestBatchSize, settings.Ingest.BatchSize, keyIndexMaxBatch, settings.Index.MaxBatchSize))
	}
	if settings.Ingest.ChunkOverlap >= settings.Ingest.ChunkSize {
		errs = append(errs, fmt.Errorf("%s must be smaller than %s", keyIngestOverlap, keyIngestChunkSize))
	}
	if settings.Ingest.MaxConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyIngestConcurrency))
	}
	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateGenerationConfig validates the current generation configuration by pinging the provider.
func (s *SettingsService) ValidateGenerationConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateGeneration(&settings.Generation)
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// baseURLFor keeps a custom URL for local providers and clears it for cloud ones.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return defaultOllamaURL
	}
	return current
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getOverlap keeps an explicit zero, which disables overlap.
func (s *SettingsService) getOverlap(defaultVal int) int {
	if _, exists := s.configStore.Get(keyIngestOverlap); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(keyIngestOverlap)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetDuration(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.IndexBackend) domain.IndexBackend {
	backend := domain.IndexBackend(s.configStore.GetString(keyIndexBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
