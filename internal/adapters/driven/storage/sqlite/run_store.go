package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// runStore implements driven.IngestRunStore.
type runStore struct {
	store *Store
}

var _ driven.IngestRunStore = (*runStore)(nil)

// SaveRun stores or updates a run header. Outcomes are saved separately.
func (s *runStore) SaveRun(ctx context.Context, run *domain.IngestRun) error {
	var finished sql.NullTime
	if run.FinishedAt != nil {
		finished = sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
	}
	s.store.writeMu.Lock()
	defer s.store.writeMu.Unlock()
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, status, started_at, finished_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at
	`, run.ID, string(run.Status), run.StartedAt.UTC(), finished)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// SaveOutcome stores or updates one file's outcome.
func (s *runStore) SaveOutcome(ctx context.Context, runID string, position int, o domain.FileOutcome) error {
	s.store.writeMu.Lock()
	defer s.store.writeMu.Unlock()
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingest_outcomes (run_id, position, file, status, chunk_count, record_count,
			failed_chunks, failed_batches, stage, error, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, position) DO UPDATE SET
			file = excluded.file,
			status = excluded.status,
			chunk_count = excluded.chunk_count,
			record_count = excluded.record_count,
			failed_chunks = excluded.failed_chunks,
			failed_batches = excluded.failed_batches,
			stage = excluded.stage,
			error = excluded.error,
			duration_ns = excluded.duration_ns
	`, runID, position, o.File, string(o.Status), o.ChunkCount, o.RecordCount,
		o.FailedChunks, o.FailedBatches, string(o.Stage), o.Error, int64(o.Duration))
	if err != nil {
		return fmt.Errorf("saving outcome %d of run %s: %w", position, runID, err)
	}
	return nil
}

// GetRun retrieves a run with its outcomes in submission order.
func (s *runStore) GetRun(ctx context.Context, id string) (*domain.IngestRun, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, status, started_at, finished_at FROM ingest_runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT file, status, chunk_count, record_count, failed_chunks, failed_batches, stage, error, duration_ns
		FROM ingest_outcomes WHERE run_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o        domain.FileOutcome
			status   string
			stage    string
			duration int64
		)
		if err := rows.Scan(&o.File, &status, &o.ChunkCount, &o.RecordCount,
			&o.FailedChunks, &o.FailedBatches, &stage, &o.Error, &duration); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.Status = domain.IngestStatus(status)
		o.Stage = domain.IngestStage(stage)
		o.Duration = time.Duration(duration)
		run.Outcomes = append(run.Outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outcomes: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first, without outcomes.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.IngestRun, error) {
	query := "SELECT id, status, started_at, finished_at FROM ingest_runs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.IngestRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.IngestRun, error) {
	var (
		run      domain.IngestRun
		status   string
		finished sql.NullTime
	)
	if err := row.Scan(&run.ID, &status, &run.StartedAt, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	run.Status = domain.IngestStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
