package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderJina is the Jina embeddings API (CLIP-style multimodal models).
	AIProviderJina AIProvider = "jina"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini, AIProviderJina:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p.IsValid() && p != AIProviderOllama
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// SupportsEmbedding returns true if the provider can back a MultimodalEmbedder.
func (p AIProvider) SupportsEmbedding() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderJina
}

// SupportsGeneration returns true if the provider can back a GenerationService.
func (p AIProvider) SupportsGeneration() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderJina:
		return "Jina CLIP embeddings (cloud)"
	default:
		return unknownDescription
	}
}

// IndexBackend identifies a vector index implementation.
type IndexBackend string

// Available index backends.
const (
	// IndexBackendMemory keeps records in process memory.
	IndexBackendMemory IndexBackend = "memory"

	// IndexBackendSQLite persists records in a local SQLite database.
	IndexBackendSQLite IndexBackend = "sqlite"

	// IndexBackendQdrant stores records in a Qdrant collection over gRPC.
	IndexBackendQdrant IndexBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	switch b {
	case IndexBackendMemory, IndexBackendSQLite, IndexBackendQdrant:
		return true
	default:
		return false
	}
}

// IsPersistent returns true if records survive a restart.
func (b IndexBackend) IsPersistent() bool {
	return b == IndexBackendSQLite || b == IndexBackendQdrant
}

// String returns the string representation.
func (b IndexBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b IndexBackend) Description() string {
	switch b {
	case IndexBackendMemory:
		return "In-memory (not persisted)"
	case IndexBackendSQLite:
		return "SQLite (local file)"
	case IndexBackendQdrant:
		return "Qdrant (gRPC)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// VisionModel captions images before embedding, for text-only embedders.
	VisionModel string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Dimensions overrides the model's known dimension.
	Dimensions int

	// RequestsPerSecond limits embedder calls; 0 disables the limiter.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbedding() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ResolvedDimensions returns the configured dimension or the known default for the model.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return EmbeddingDimensions()[e.Model]
}

// GenerationSettings holds generation provider configuration.
type GenerationSettings struct {
	// Provider is the generation service provider.
	Provider AIProvider

	// Model is the model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens bounds the answer length.
	MaxTokens int
}

// IsConfigured returns true if the generation provider is set up.
func (g GenerationSettings) IsConfigured() bool {
	if !g.Provider.SupportsGeneration() {
		return false
	}
	if g.Provider.RequiresAPIKey() && g.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings holds vector index configuration.
type IndexSettings struct {
	// Backend selects the index implementation.
	Backend IndexBackend

	// Path is the directory for local backends.
	Path string

	// Addr is the gRPC address for remote backends.
	Addr string

	// Collection names the collection or table holding the records.
	Collection string

	// MaxBatchSize rejects upserts larger than this.
	MaxBatchSize int
}

// IngestSettings controls the ingestion pipeline.
type IngestSettings struct {
	// BatchSize is the number of chunks embedded and upserted together.
	BatchSize int

	// MaxConcurrency bounds the number of files processed at once.
	MaxConcurrency int

	// UpsertAttempts is the number of tries for one batch upsert.
	UpsertAttempts int

	// UpsertBackoff is the initial delay between upsert attempts; it doubles per retry.
	UpsertBackoff time.Duration

	// QueueDepth bounds the number of runs waiting in the asynchronous queue.
	QueueDepth int

	// ChunkSize is the longest text chunk, in characters, kept whole; longer ones are split.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive split windows.
	ChunkOverlap int

	// Include lists glob patterns used when expanding directories.
	Include []string

	// OCR enables text recognition on images.
	OCR bool
}

// PathSettings locates input and derived files.
type PathSettings struct {
	// RawData is the default directory scanned for documents.
	RawData string

	// Processed is where extracted images are cached.
	Processed string
}

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding  EmbeddingSettings
	Generation GenerationSettings
	Index      IndexSettings
	Ingest     IngestSettings
	Paths      PathSettings
	Server     ServerSettings
}

// Default values for settings.
const (
	DefaultBatchSize      = 50
	DefaultMaxConcurrency = 4
	DefaultUpsertAttempts = 3
	DefaultUpsertBackoff  = 500 * time.Millisecond
	DefaultQueueDepth     = 256
	DefaultChunkSize      = 2000
	DefaultChunkOverlap   = 200
	DefaultMaxBatchSize   = 1000
	DefaultCollection     = "multimodal_rag"
	DefaultServerAddr     = ":8000"
	DefaultResultCount    = 5
)

// DefaultAppSettings returns settings with sensible defaults.
// Providers default to a local Ollama so nothing needs an API key out of the box.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		Generation: GenerationSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultGenerationModels()[AIProviderOllama],
			Temperature: 0.1,
			MaxTokens:   1024,
		},
		Index: IndexSettings{
			Backend:      IndexBackendSQLite,
			Collection:   DefaultCollection,
			MaxBatchSize: DefaultMaxBatchSize,
		},
		Ingest: IngestSettings{
			BatchSize:      DefaultBatchSize,
			MaxConcurrency: DefaultMaxConcurrency,
			UpsertAttempts: DefaultUpsertAttempts,
			UpsertBackoff:  DefaultUpsertBackoff,
			QueueDepth:     DefaultQueueDepth,
			ChunkSize:      DefaultChunkSize,
			ChunkOverlap:   DefaultChunkOverlap,
			Include:        []string{"**/*.pdf", "**/*.png", "**/*.jpg", "**/*.jpeg", "**/*.txt"},
			OCR:            true,
		},
		Paths: PathSettings{
			RawData:   "./sample_documents",
			Processed: "./data/processed",
		},
		Server: ServerSettings{
			Addr: DefaultServerAddr,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderJina,
	}
}

// AllGenerationProviders returns providers that support generation.
func AllGenerationProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// AllIndexBackends returns every index backend.
func AllIndexBackends() []IndexBackend {
	return []IndexBackend{
		IndexBackendMemory,
		IndexBackendSQLite,
		IndexBackendQdrant,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderJina:   "jina-clip-v2",
	}
}

// DefaultGenerationModels returns default models for each generation provider.
// Every default accepts image input.
func DefaultGenerationModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llava",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Jina models
		"jina-clip-v1": 768,
		"jina-clip-v2": 1024,
	}
}
