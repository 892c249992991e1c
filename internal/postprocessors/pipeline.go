// Package postprocessors provides chunk processing stages run between
// extraction and identity assignment.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline chains multiple PostProcessors and runs them in order.
// It implements the PostProcessorPipeline interface.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the chunks through all processors in order.
// Each processor receives the previous processor's output.
func (p *Pipeline) Process(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for _, processor := range p.processors {
		before := len(chunks)
		var err error
		chunks, err = processor.Process(ctx, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
		if len(chunks) != before {
			logger.Debug("%s: %d chunks -> %d", processor.Name(), before, len(chunks))
		}
	}

	return chunks, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
