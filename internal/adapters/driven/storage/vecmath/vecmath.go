// Package vecmath holds the exact nearest-neighbour search shared by the
// embedded index backends.
package vecmath

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// CosineDistance returns 1 - cos(a, b). A zero vector is at distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// CheckRecords validates an upsert batch against the index limits.
// Failures are *domain.IndexWriteError values.
func CheckRecords(records []domain.VectorRecord, dims, maxBatch int) error {
	if maxBatch > 0 && len(records) > maxBatch {
		return &domain.IndexWriteError{
			BatchIndex: -1,
			Size:       len(records),
			Err:        fmt.Errorf("%w: %d > %d", domain.ErrBatchTooLarge, len(records), maxBatch),
		}
	}
	for _, r := range records {
		if r.ID == "" {
			return &domain.IndexWriteError{
				BatchIndex: -1,
				Size:       len(records),
				Err:        fmt.Errorf("%w: record without id", domain.ErrInvalidInput),
			}
		}
		if len(r.Embedding) != dims {
			return &domain.IndexWriteError{
				BatchIndex: -1,
				Size:       len(records),
				Err: fmt.Errorf("%w: record %s has %d dimensions, index has %d",
					domain.ErrDimensionMismatch, r.ID, len(r.Embedding), dims),
			}
		}
	}
	return nil
}

// CheckQuery validates a query vector and result count.
// Failures are *domain.IndexReadError values.
func CheckQuery(embedding []float32, k, dims int) error {
	if k <= 0 {
		return &domain.IndexReadError{Err: domain.ErrInvalidK}
	}
	if len(embedding) != dims {
		return &domain.IndexReadError{
			Err: fmt.Errorf("%w: query has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, len(embedding), dims),
		}
	}
	return nil
}

// TopK keeps the k nearest matches seen so far.
type TopK struct {
	k int
	h matchHeap
}

// NewTopK creates a collector for at most k matches.
func NewTopK(k int) *TopK {
	return &TopK{k: k, h: make(matchHeap, 0, k)}
}

// Push offers a match to the collector.
func (t *TopK) Push(m domain.VectorMatch) {
	if t.k <= 0 {
		return
	}
	if len(t.h) < t.k {
		heap.Push(&t.h, m)
		return
	}
	if farther(t.h[0], m) {
		t.h[0] = m
		heap.Fix(&t.h, 0)
	}
}

// Sorted returns the kept matches nearest first. Ties are ordered by ID.
func (t *TopK) Sorted() []domain.VectorMatch {
	out := make([]domain.VectorMatch, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool { return farther(out[j], out[i]) })
	return out
}

// farther reports whether a ranks after b.
func farther(a, b domain.VectorMatch) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ID > b.ID
}

// matchHeap is a max-heap on distance so the farthest kept match is at the root.
type matchHeap []domain.VectorMatch

func (h matchHeap) Len() int           { return len(h) }
func (h matchHeap) Less(i, j int) bool { return farther(h[i], h[j]) }
func (h matchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *matchHeap) Push(x any) { *h = append(*h, x.(domain.VectorMatch)) }

func (h *matchHeap) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	*h = old[:n-1]
	return m
}
