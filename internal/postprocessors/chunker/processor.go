// Package chunker provides a fixed-size text splitting processor.
package chunker

import (
	"context"
	"unicode/utf8"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 2000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits long text chunks into overlapping windows.
// Table and image chunks pass through untouched, as do text chunks that
// already fit. It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process returns the chunks with every oversized text chunk replaced by its windows.
// Windows inherit the page and metadata of the chunk they came from.
func (p *Processor) Process(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Kind != domain.KindText || utf8.RuneCountInString(c.Content) <= p.chunkSize {
			out = append(out, c)
			continue
		}
		for _, window := range p.split(c.Content) {
			part := c
			part.Content = window
			out = append(out, part)
		}
	}
	return out, nil
}

// split cuts s into windows of chunkSize runes, each starting
// chunkSize-overlap runes after the previous one.
func (p *Processor) split(s string) []string {
	runes := []rune(s)
	step := p.chunkSize - p.overlap

	windows := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+p.chunkSize, len(runes))
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}
