package driven

import "github.com/custodia-labs/mmrag/internal/core/domain"

// AIConfigValidator checks provider settings before they are relied on.
type AIConfigValidator interface {
	// ValidateEmbedding builds the embedder described by config and pings it.
	// An unconfigured provider is not an error.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateGeneration does the same for the multimodal generator.
	ValidateGeneration(config *domain.GenerationSettings) error
}
