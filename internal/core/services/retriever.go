package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// Retriever turns a query into a ranked list of indexed items.
type Retriever struct {
	embedder driven.MultimodalEmbedder
	index    driven.VectorIndex
	metrics  driven.PipelineMetrics
}

// NewRetriever creates a retriever. metrics may be nil.
func NewRetriever(embedder driven.MultimodalEmbedder, index driven.VectorIndex, metrics driven.PipelineMetrics) *Retriever {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		metrics:  metrics,
	}
}

// Retrieve encodes the query, asks the index for the k nearest records and
// converts distances to similarity scores.
//
// Results keep the index's nearest-first order. An empty query is encoded like
// any other string. Index read failures are logged and yield no results.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedItem, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidK, k)
	}

	logger.Section("Retrieval")
	logger.Debug("Query: %q, k: %d", query, k)
	start := time.Now()

	vectors, err := r.embedder.EncodeText(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("encode query: embedder returned %d vectors", len(vectors))
	}

	matches, err := r.index.Query(ctx, vectors[0], k)
	if err != nil {
		var readErr *domain.IndexReadError
		if !errors.As(err, &readErr) {
			readErr = &domain.IndexReadError{Err: err}
		}
		logger.Warn("Returning no results: %v", readErr)
		r.metrics.QueryServed(0, time.Since(start))
		return []domain.RetrievedItem{}, nil
	}

	items := make([]domain.RetrievedItem, len(matches))
	for i, m := range matches {
		items[i] = domain.RetrievedItem{
			Content:  m.Document,
			Metadata: m.Metadata,
			Score:    m.Score(),
		}
		logger.Debug("  %d. %s (score %.4f)", i+1, m.ID, items[i].Score)
	}

	r.metrics.QueryServed(len(items), time.Since(start))
	logger.Info("Retrieved %d items", len(items))
	return items, nil
}
