package driving

import (
	"context"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// IngestionService turns source files into index records.
// Every file is an isolated unit: one file failing never aborts the others.
type IngestionService interface {
	// Ingest processes the files and blocks until every file has an outcome.
	Ingest(ctx context.Context, paths []string) (*domain.IngestRun, error)

	// IngestFile processes a single file and reports its outcome.
	IngestFile(ctx context.Context, path string) domain.FileOutcome

	// Supports reports whether a file can be extracted.
	Supports(path string) bool
}

// IngestQueue accepts ingestion work for background processing.
type IngestQueue interface {
	// Submit accepts files and returns the run immediately with pending outcomes.
	// Fails with domain.ErrQueueFull when the queue has no room and
	// domain.ErrQueueStopped when it is not running.
	Submit(ctx context.Context, paths []string) (*domain.IngestRun, error)

	// Run returns a run's current progress.
	Run(ctx context.Context, id string) (*domain.IngestRun, error)

	// Runs lists recent runs, most recent first.
	Runs(ctx context.Context, limit int) ([]domain.IngestRun, error)

	// Wait blocks until the run is terminal or the context ends.
	Wait(ctx context.Context, id string) (*domain.IngestRun, error)
}
