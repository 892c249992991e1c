package driven

import (
	"context"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// GenerationService answers a query from fused text and image context.
// This is an optional service - when nil, only retrieval is available.
//
// Implementations may include:
//   - Ollama (llava and other local vision models)
//   - OpenAI (gpt-4o family)
//   - Anthropic (Claude)
//   - Google Gemini
type GenerationService interface {
	// Generate produces an answer grounded in the request's context.
	// Backends without image support ignore the image payloads.
	Generate(ctx context.Context, req domain.GenerationRequest, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
