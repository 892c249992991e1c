package driven

import (
	"context"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// ContentExtractor turns one source file into chunks.
// It may return an empty slice, but never a chunk with missing required metadata.
type ContentExtractor interface {
	// Extensions returns the lowercase file extensions handled, including the dot.
	Extensions() []string

	// Extract reads the file and returns its chunks in document order.
	Extract(ctx context.Context, path string) ([]domain.Chunk, error)
}

// ExtractorRegistry selects the extractor for a file by extension.
type ExtractorRegistry interface {
	// Extract dispatches to the matching extractor.
	// Unknown extensions fail with domain.ErrUnsupportedFormat.
	Extract(ctx context.Context, path string) ([]domain.Chunk, error)

	// Register adds an extractor; later registrations win for shared extensions.
	Register(extractor ContentExtractor)

	// Supports reports whether a file's extension has an extractor.
	Supports(path string) bool

	// Extensions returns every handled extension.
	Extensions() []string
}
