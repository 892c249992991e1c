package driving

import "github.com/custodia-labs/mmrag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single setting by its dotted key, e.g. "ingest.batch_size".
	Set(key, value string) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetGenerationProvider configures the generation provider.
	SetGenerationProvider(provider domain.AIProvider, model, apiKey string) error

	// SetIndexBackend selects the vector index backend.
	SetIndexBackend(backend domain.IndexBackend) error

	// Validate checks that the current settings are internally consistent.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateGenerationConfig validates the current generation configuration by pinging the provider.
	ValidateGenerationConfig() error
}
