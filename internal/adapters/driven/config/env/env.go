// Package env applies environment overrides on top of file-based settings.
//
// A .env file in the working directory is loaded first, without replacing
// variables already set in the process environment.
package env

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// Recognised variables.
const (
	RawDataPath       = "RAW_DATA_PATH"
	ProcessedDataPath = "PROCESSED_DATA_PATH"
	VectorDBPath      = "VECTOR_DB_PATH"
	DataDir           = "MMRAG_DATA_DIR"
	OllamaHost        = "OLLAMA_HOST"
	QdrantAddr        = "QDRANT_ADDR"
	OpenAIAPIKey      = "OPENAI_API_KEY"
	AnthropicAPIKey   = "ANTHROPIC_API_KEY"
	GoogleAPIKey      = "GOOGLE_API_KEY"
	JinaAPIKey        = "JINA_API_KEY"
)

// Load reads the given dotenv files, or ".env" when none are given.
// Missing files are ignored.
func Load(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Lookup reads a variable, treating an empty value as unset.
type Lookup func(key string) (string, bool)

// OSLookup reads the process environment.
func OSLookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

// Apply overrides settings from the environment.
// API keys only fill in when the matching provider has none configured.
func Apply(settings *domain.AppSettings, lookup Lookup) {
	if lookup == nil {
		lookup = OSLookup
	}

	if v, ok := lookup(RawDataPath); ok {
		settings.Paths.RawData = v
	}
	if v, ok := lookup(ProcessedDataPath); ok {
		settings.Paths.Processed = v
	}
	if v, ok := lookup(VectorDBPath); ok {
		settings.Index.Path = v
	}
	if v, ok := lookup(QdrantAddr); ok {
		settings.Index.Addr = v
	}

	if v, ok := lookup(OllamaHost); ok {
		if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = v
		}
		if settings.Generation.Provider == domain.AIProviderOllama && settings.Generation.BaseURL == "" {
			settings.Generation.BaseURL = v
		}
	}

	keys := map[domain.AIProvider]string{
		domain.AIProviderOpenAI:    OpenAIAPIKey,
		domain.AIProviderAnthropic: AnthropicAPIKey,
		domain.AIProviderGemini:    GoogleAPIKey,
		domain.AIProviderJina:      JinaAPIKey,
	}
	if name, ok := keys[settings.Embedding.Provider]; ok && settings.Embedding.APIKey == "" {
		if v, ok := lookup(name); ok {
			settings.Embedding.APIKey = v
		}
	}
	if name, ok := keys[settings.Generation.Provider]; ok && settings.Generation.APIKey == "" {
		if v, ok := lookup(name); ok {
			settings.Generation.APIKey = v
		}
	}
}

// ResolveDataDir returns flagValue, then MMRAG_DATA_DIR, then ~/.mmrag.
func ResolveDataDir(flagValue string, lookup Lookup) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if lookup == nil {
		lookup = OSLookup
	}
	if v, ok := lookup(DataDir); ok {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home + string(os.PathSeparator) + ".mmrag", nil
}
