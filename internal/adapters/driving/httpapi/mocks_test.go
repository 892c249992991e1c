package httpapi

import (
	"context"
	"time"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// mockQueue is a mock implementation of driving.IngestQueue.
type mockQueue struct {
	submitted []string
	run       *domain.IngestRun
	runs      []domain.IngestRun
	err       error
}

func (m *mockQueue) Submit(_ context.Context, paths []string) (*domain.IngestRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.submitted = paths
	run := &domain.IngestRun{ID: "run-1", Status: domain.IngestRunning, StartedAt: time.Now()}
	for _, p := range paths {
		run.Outcomes = append(run.Outcomes, domain.FileOutcome{File: p, Status: domain.IngestPending})
	}
	return run, nil
}

func (m *mockQueue) Run(_ context.Context, id string) (*domain.IngestRun, error) {
	if m.run == nil || m.run.ID != id {
		return nil, domain.ErrNotFound
	}
	return m.run, nil
}

func (m *mockQueue) Runs(_ context.Context, _ int) ([]domain.IngestRun, error) {
	return m.runs, m.err
}

func (m *mockQueue) Wait(ctx context.Context, id string) (*domain.IngestRun, error) {
	return m.Run(ctx, id)
}

// mockRetrieval is a mock implementation of driving.RetrievalService.
type mockRetrieval struct {
	items []domain.RetrievedItem
	err   error
	gotK  int
}

func (m *mockRetrieval) Retrieve(_ context.Context, _ string, k int) ([]domain.RetrievedItem, error) {
	m.gotK = k
	if k <= 0 {
		return nil, domain.ErrInvalidK
	}
	return m.items, m.err
}

// mockAnswer is a mock implementation of driving.AnswerService.
type mockAnswer struct {
	answer *domain.Answer
	err    error
	gotK   int
}

func (m *mockAnswer) Answer(_ context.Context, query string, k int) (*domain.Answer, error) {
	m.gotK = k
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Query: query, Text: domain.NoContextAnswer, Sources: []domain.Source{}}, nil
}

// mockStatus is a mock implementation of driving.StatusService.
type mockStatus struct {
	status *domain.IndexStatus
}

func (m *mockStatus) Status(_ context.Context) (*domain.IndexStatus, error) {
	return m.status, nil
}

// mockFinder returns fixed files for any input.
type mockFinder struct {
	files []string
	got   []string
}

func (m *mockFinder) Find(paths ...string) ([]string, error) {
	m.got = paths
	return m.files, nil
}
