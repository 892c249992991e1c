package driven

import (
	"context"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// VectorIndex persists vector records and answers nearest-neighbour queries.
//
// Implementations must be safe for concurrent Upsert calls from several
// ingestion tasks. Distances are cosine distances, so callers compute
// similarity as 1 - distance.
type VectorIndex interface {
	// Upsert inserts or replaces records by ID. Upserting an existing ID never duplicates it.
	// Vectors of the wrong dimension fail with *domain.IndexWriteError wrapping
	// domain.ErrDimensionMismatch.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Query returns up to k records nearest to the embedding, nearest first.
	// A vector of the wrong dimension fails with *domain.IndexReadError.
	Query(ctx context.Context, embedding []float32, k int) ([]domain.VectorMatch, error)

	// Count returns the number of records in the index.
	Count(ctx context.Context) (int, error)

	// Dimensions returns the declared vector dimension.
	Dimensions() int

	// Close releases resources.
	Close() error
}
