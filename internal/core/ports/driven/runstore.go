package driven

import (
	"context"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// IngestRunStore persists ingestion runs and their per-file outcomes.
type IngestRunStore interface {
	// SaveRun stores or updates a run header.
	SaveRun(ctx context.Context, run *domain.IngestRun) error

	// SaveOutcome stores or updates one file's outcome within a run.
	SaveOutcome(ctx context.Context, runID string, position int, outcome domain.FileOutcome) error

	// GetRun retrieves a run with its outcomes in submission order.
	// Returns domain.ErrNotFound if the run does not exist.
	GetRun(ctx context.Context, id string) (*domain.IngestRun, error)

	// ListRuns returns the most recent runs first, without outcomes.
	ListRuns(ctx context.Context, limit int) ([]domain.IngestRun, error)
}
