// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	jinaembed "github.com/custodia-labs/mmrag/internal/adapters/driven/embedding/jina"
	ollamaembed "github.com/custodia-labs/mmrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/mmrag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/mmrag/internal/adapters/driven/embedding/ratelimit"
	anthropicllm "github.com/custodia-labs/mmrag/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/mmrag/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/mmrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/mmrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// defaultVisionModels caption images for providers whose embedders are text-only.
var defaultVisionModels = map[domain.AIProvider]string{
	domain.AIProviderOllama: "llava",
	domain.AIProviderOpenAI: "gpt-4o-mini",
}

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	Embedder  driven.MultimodalEmbedder
	Generator driven.GenerationService
	Warnings  []string // Non-fatal issues, e.g. generation unreachable.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.Embedder != nil {
		r.Embedder.Close()
	}
	if r.Generator != nil {
		r.Generator.Close()
	}
}

// Init creates both services. The embedder is required; a generator that
// cannot be reached is dropped with a warning so retrieval still works.
func Init(settings *domain.AppSettings, validate bool) (*InitResult, error) {
	result := &InitResult{}

	create := CreateEmbedder
	if validate {
		create = CreateAndValidateEmbedder
	}
	embedder, err := create(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured. Run 'mmrag settings' to fix",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	result.Embedder = embedder

	createGen := CreateGenerator
	if validate {
		createGen = CreateAndValidateGenerator
	}
	generator, err := createGen(&settings.Generation)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, err.Error())
	case generator == nil:
		result.Warnings = append(result.Warnings, "generation is not configured; only retrieval is available")
	default:
		result.Generator = generator
	}

	return result, nil
}

// CreateAndValidateEmbedder creates an embedder and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbedder(settings *domain.EmbeddingSettings) (driven.MultimodalEmbedder, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbedder(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'mmrag settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'mmrag settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateGenerator creates a generation service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateGenerator(settings *domain.GenerationSettings) (driven.GenerationService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateGenerator(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'mmrag settings' to fix",
			domain.ErrGenerationUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'mmrag settings' to fix",
			domain.ErrGenerationUnavailable, err)
	}

	return svc, nil
}

// CreateEmbedder creates the embedder for settings, rate limited when configured.
// Returns nil if the provider is not configured.
func CreateEmbedder(settings *domain.EmbeddingSettings) (driven.MultimodalEmbedder, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.MultimodalEmbedder
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc, err = createOllamaEmbedder(settings)
	case domain.AIProviderOpenAI:
		svc, err = createOpenAIEmbedder(settings)
	case domain.AIProviderJina:
		svc, err = createJinaEmbedder(settings)
	default:
		return nil, fmt.Errorf("%s does not support embeddings, use ollama, openai or jina", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	return ratelimit.Wrap(svc, ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond}), nil
}

// CreateGenerator creates the appropriate generation service based on settings.
// Returns nil if the provider is not configured.
func CreateGenerator(settings *domain.GenerationSettings) (driven.GenerationService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewGenerator(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenAI:
		return openaillm.NewGenerator(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewGenerator(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGemini:
		return geminillm.NewGenerator(geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", settings.Provider)
	}
}

// GenerateOptions maps generation settings onto per-call options.
func GenerateOptions(settings domain.GenerationSettings) driven.GenerateOptions {
	return driven.GenerateOptions{
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
	}
}

func visionModel(settings *domain.EmbeddingSettings) string {
	if settings.VisionModel != "" {
		return settings.VisionModel
	}
	return defaultVisionModels[settings.Provider]
}

// createOllamaEmbedder creates an Ollama embedder.
func createOllamaEmbedder(settings *domain.EmbeddingSettings) (driven.MultimodalEmbedder, error) {
	dimensions := settings.ResolvedDimensions()
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbedder(ollamaembed.Config{
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		VisionModel: visionModel(settings),
		Dimensions:  dimensions,
	})
}

// createOpenAIEmbedder creates an OpenAI embedder.
func createOpenAIEmbedder(settings *domain.EmbeddingSettings) (driven.MultimodalEmbedder, error) {
	return openaiembed.NewEmbedder(openaiembed.Config{
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		VisionModel: visionModel(settings),
		Dimensions:  settings.ResolvedDimensions(),
	})
}

// createJinaEmbedder creates a Jina CLIP embedder.
func createJinaEmbedder(settings *domain.EmbeddingSettings) (driven.MultimodalEmbedder, error) {
	return jinaembed.NewEmbedder(jinaembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.ResolvedDimensions(),
	})
}
