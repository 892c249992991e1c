package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/mmrag/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex.
// Queries scan every record. Contents are lost on exit.
type VectorIndex struct {
	mu       sync.RWMutex
	dims     int
	maxBatch int
	records  map[string]domain.VectorRecord
}

// NewVectorIndex creates an empty index for vectors of the given dimension.
// maxBatch <= 0 disables the batch size limit.
func NewVectorIndex(dims, maxBatch int) *VectorIndex {
	return &VectorIndex{
		dims:     dims,
		maxBatch: maxBatch,
		records:  make(map[string]domain.VectorRecord),
	}
}

// Upsert inserts or replaces records by ID.
// A batch that fails validation leaves the index untouched.
func (v *VectorIndex) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return &domain.IndexWriteError{BatchIndex: -1, Size: len(records), Err: err}
	}
	if err := vecmath.CheckRecords(records, v.dims, v.maxBatch); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range records {
		r.Embedding = append([]float32(nil), r.Embedding...)
		v.records[r.ID] = r
	}
	return nil
}

// Query returns up to k records nearest to the embedding.
func (v *VectorIndex) Query(ctx context.Context, embedding []float32, k int) ([]domain.VectorMatch, error) {
	if err := vecmath.CheckQuery(embedding, k, v.dims); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.IndexReadError{Err: err}
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	top := vecmath.NewTopK(k)
	for id, r := range v.records {
		top.Push(domain.VectorMatch{
			ID:       id,
			Metadata: r.Metadata,
			Document: r.Document,
			Distance: vecmath.CosineDistance(embedding, r.Embedding),
		})
	}
	return top.Sorted(), nil
}

// Count returns the number of records.
func (v *VectorIndex) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records), nil
}

// Dimensions returns the declared vector dimension.
func (v *VectorIndex) Dimensions() int {
	return v.dims
}

// Close releases the records.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = make(map[string]domain.VectorRecord)
	return nil
}
