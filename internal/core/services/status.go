package services

import (
	"context"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// Ensure StatusService implements the interface.
var _ driving.StatusService = (*StatusService)(nil)

// StatusService reports whether the index can serve queries.
type StatusService struct {
	index   driven.VectorIndex
	backend domain.IndexBackend
}

// NewStatusService creates a status service for index.
func NewStatusService(index driven.VectorIndex, backend domain.IndexBackend) *StatusService {
	return &StatusService{index: index, backend: backend}
}

// Status returns readiness and the record count.
// An unreachable index is reported as not ready rather than as an error.
func (s *StatusService) Status(ctx context.Context) (*domain.IndexStatus, error) {
	status := &domain.IndexStatus{Backend: s.backend.String()}
	if s.index == nil {
		return status, nil
	}
	status.Dimensions = s.index.Dimensions()

	count, err := s.index.Count(ctx)
	if err != nil {
		logger.Warn("Index count failed: %v", err)
		return status, nil
	}
	status.Ready = true
	status.DocumentCount = count
	return status, nil
}
