package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.IngestRunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.IngestRunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.IngestRun
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*domain.IngestRun),
	}
}

// SaveRun stores or updates a run header. Outcomes already saved are kept.
func (s *RunStore) SaveRun(_ context.Context, run *domain.IngestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	header := *run
	header.Outcomes = nil
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		header.FinishedAt = &t
	}
	if existing, ok := s.runs[run.ID]; ok {
		header.Outcomes = existing.Outcomes
	}
	s.runs[run.ID] = &header
	return nil
}

// SaveOutcome stores or updates one file's outcome.
func (s *RunStore) SaveOutcome(_ context.Context, runID string, position int, o domain.FileOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	for len(run.Outcomes) <= position {
		run.Outcomes = append(run.Outcomes, domain.FileOutcome{})
	}
	run.Outcomes[position] = o
	return nil
}

// GetRun retrieves a run with its outcomes.
func (s *RunStore) GetRun(_ context.Context, id string) (*domain.IngestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	c := *run
	c.Outcomes = append([]domain.FileOutcome(nil), run.Outcomes...)
	return &c, nil
}

// ListRuns returns the most recent runs first, without outcomes.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]domain.IngestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]domain.IngestRun, 0, len(s.runs))
	for _, r := range s.runs {
		c := *r
		c.Outcomes = nil
		runs = append(runs, c)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
