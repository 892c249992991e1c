package driving

import (
	"context"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// RetrievalService ranks indexed content against a query.
type RetrievalService interface {
	// Retrieve returns up to k items in descending score order.
	// k <= 0 fails with domain.ErrInvalidK. Index read failures yield no results.
	Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedItem, error)
}

// AnswerService answers questions grounded in retrieved context.
type AnswerService interface {
	// Answer retrieves, fuses and generates. An empty retrieval yields
	// domain.NoContextAnswer without calling generation.
	Answer(ctx context.Context, query string, k int) (*domain.Answer, error)
}

// StatusService reports index readiness.
type StatusService interface {
	// Status returns readiness and the number of indexed records.
	Status(ctx context.Context) (*domain.IndexStatus, error)
}
