package driven

import (
	"context"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// PostProcessor rewrites extracted chunks before identity assignment.
// PostProcessors are chained in a pipeline (e.g., splitting long text).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process returns the chunks to hand to the next stage, in order.
	Process(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the chunks through all processors in order.
	Process(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error)
}
