package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jinaembed "github.com/custodia-labs/mmrag/internal/adapters/driven/embedding/jina"
	ollamaembed "github.com/custodia-labs/mmrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/mmrag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/mmrag/internal/adapters/driven/embedding/ratelimit"
	anthropicllm "github.com/custodia-labs/mmrag/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/mmrag/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/mmrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/mmrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// okServer answers every request with 200 so Ping succeeds for any provider.
func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// deadURL returns an address nothing listens on.
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbedder(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantNil  bool
		wantType any
	}{
		{name: "nil settings returns nil", settings: nil, wantNil: true},
		{name: "unconfigured settings returns nil", settings: &domain.EmbeddingSettings{}, wantNil: true},
		{
			name:     "openai without key is not configured",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantNil:  true,
		},
		{
			name:     "anthropic cannot embed",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantNil:  true,
		},
		{
			name:     "ollama",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
			wantType: &ollamaembed.Embedder{},
		},
		{
			name:     "openai",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "text-embedding-3-small"},
			wantType: &openaiembed.Embedder{},
		},
		{
			name:     "jina",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderJina, APIKey: "k", Model: "jina-clip-v2"},
			wantType: &jinaembed.Embedder{},
		},
		{
			name: "rate limited",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderJina, APIKey: "k", Model: "jina-clip-v2", RequestsPerSecond: 2,
			},
			wantType: &ratelimit.Embedder{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbedder(tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.IsType(t, tt.wantType, svc)
		})
	}
}

func TestCreateEmbedder_Dimensions(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.EmbeddingSettings
		want     int
	}{
		{"known ollama model", domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "mxbai-embed-large"}, 1024},
		{"unknown ollama model", domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "custom"}, ollamaembed.DefaultDimensions},
		{"explicit override", domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "custom", Dimensions: 512}, 512},
		{"jina v1", domain.EmbeddingSettings{Provider: domain.AIProviderJina, APIKey: "k", Model: "jina-clip-v1"}, 768},
		{"openai large", domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "text-embedding-3-large"}, 3072},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbedder(&tt.settings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, svc.Dimensions())
		})
	}
}

func TestVisionModel(t *testing.T) {
	assert.Equal(t, "llava", visionModel(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama}))
	assert.Equal(t, "gpt-4o-mini", visionModel(&domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}))
	assert.Equal(t, "moondream", visionModel(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, VisionModel: "moondream"}))
	assert.Empty(t, visionModel(&domain.EmbeddingSettings{Provider: domain.AIProviderJina}))
}

func TestCreateGenerator(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.GenerationSettings
		wantNil  bool
		wantType any
	}{
		{name: "nil settings returns nil", settings: nil, wantNil: true},
		{name: "jina cannot generate", settings: &domain.GenerationSettings{Provider: domain.AIProviderJina, APIKey: "k"}, wantNil: true},
		{name: "ollama", settings: &domain.GenerationSettings{Provider: domain.AIProviderOllama}, wantType: &ollamallm.Generator{}},
		{name: "openai", settings: &domain.GenerationSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"}, wantType: &openaillm.Generator{}},
		{name: "anthropic", settings: &domain.GenerationSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}, wantType: &anthropicllm.Generator{}},
		{name: "gemini", settings: &domain.GenerationSettings{Provider: domain.AIProviderGemini, APIKey: "k"}, wantType: &geminillm.Generator{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateGenerator(tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			assert.IsType(t, tt.wantType, svc)
		})
	}
}

func TestCreateAndValidateEmbedder(t *testing.T) {
	srv := okServer(t)

	svc, err := CreateAndValidateEmbedder(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL})
	require.NoError(t, err)
	require.NotNil(t, svc)
	svc.Close()

	_, err = CreateAndValidateEmbedder(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: deadURL(t)})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "service unreachable")
}

func TestCreateAndValidateGenerator(t *testing.T) {
	srv := okServer(t)

	svc, err := CreateAndValidateGenerator(&domain.GenerationSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	require.NotNil(t, svc)

	_, err = CreateAndValidateGenerator(&domain.GenerationSettings{Provider: domain.AIProviderOllama, BaseURL: deadURL(t)})
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestValidateConfig(t *testing.T) {
	srv := okServer(t)

	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}))
	assert.Error(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: deadURL(t)}))
	assert.NoError(t, ValidateGenerationConfig(&domain.GenerationSettings{Provider: domain.AIProviderGemini, APIKey: "k", BaseURL: srv.URL}))
	assert.NoError(t, ValidateGenerationConfig(&domain.GenerationSettings{}))
}

func TestInit(t *testing.T) {
	srv := okServer(t)
	settings := domain.DefaultAppSettings()
	settings.Embedding.BaseURL = srv.URL
	settings.Generation.BaseURL = srv.URL

	result, err := Init(&settings, true)
	require.NoError(t, err)
	defer result.Close()
	assert.NotNil(t, result.Embedder)
	assert.NotNil(t, result.Generator)
	assert.Empty(t, result.Warnings)
}

func TestInit_GeneratorUnreachableWarns(t *testing.T) {
	srv := okServer(t)
	settings := domain.DefaultAppSettings()
	settings.Embedding.BaseURL = srv.URL
	settings.Generation.BaseURL = deadURL(t)

	result, err := Init(&settings, true)
	require.NoError(t, err)
	defer result.Close()
	assert.NotNil(t, result.Embedder)
	assert.Nil(t, result.Generator)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "generation service unavailable")
}

func TestInit_NoValidation(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Generation = domain.GenerationSettings{}

	result, err := Init(&settings, false)
	require.NoError(t, err)
	assert.NotNil(t, result.Embedder)
	assert.Nil(t, result.Generator)
	assert.Len(t, result.Warnings, 1)
}

func TestInit_EmbedderRequired(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}

	_, err := Init(&settings, false)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestGenerateOptions(t *testing.T) {
	opts := GenerateOptions(domain.GenerationSettings{MaxTokens: 99, Temperature: 0.4})
	assert.Equal(t, 99, opts.MaxTokens)
	assert.InDelta(t, 0.4, opts.Temperature, 1e-9)
}
