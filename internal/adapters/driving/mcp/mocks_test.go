package mcp

import (
	"context"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	items []domain.RetrievedItem
	err   error
	gotK  int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ string, k int) ([]domain.RetrievedItem, error) {
	m.gotK = k
	return m.items, m.err
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	err    error
}

func (m *mockAnswerService) Answer(_ context.Context, _ string, _ int) (*domain.Answer, error) {
	return m.answer, m.err
}

// mockStatusService is a mock implementation of driving.StatusService.
type mockStatusService struct {
	status *domain.IndexStatus
	err    error
}

func (m *mockStatusService) Status(_ context.Context) (*domain.IndexStatus, error) {
	return m.status, m.err
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	got []string
}

func (m *mockIngestionService) Ingest(_ context.Context, paths []string) (*domain.IngestRun, error) {
	m.got = paths
	run := &domain.IngestRun{ID: "sync-run", Status: domain.IngestSucceeded}
	for _, p := range paths {
		run.Outcomes = append(run.Outcomes, domain.FileOutcome{File: p, Status: domain.IngestSucceeded, ChunkCount: 2})
	}
	return run, nil
}

func (m *mockIngestionService) IngestFile(_ context.Context, path string) domain.FileOutcome {
	return domain.FileOutcome{File: path, Status: domain.IngestSucceeded}
}

func (m *mockIngestionService) Supports(_ string) bool {
	return true
}

// mockIngestQueue is a mock implementation of driving.IngestQueue.
type mockIngestQueue struct {
	runs []domain.IngestRun
	err  error
}

func (m *mockIngestQueue) Submit(_ context.Context, paths []string) (*domain.IngestRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	run := domain.IngestRun{ID: "queued-run", Status: domain.IngestRunning}
	for _, p := range paths {
		run.Outcomes = append(run.Outcomes, domain.FileOutcome{File: p, Status: domain.IngestPending})
	}
	m.runs = append(m.runs, run)
	return &run, nil
}

func (m *mockIngestQueue) Run(_ context.Context, id string) (*domain.IngestRun, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			run := m.runs[i]
			return &run, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockIngestQueue) Runs(_ context.Context, _ int) ([]domain.IngestRun, error) {
	return m.runs, m.err
}

func (m *mockIngestQueue) Wait(ctx context.Context, id string) (*domain.IngestRun, error) {
	run, err := m.Run(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Status = domain.IngestSucceeded
	for i := range run.Outcomes {
		run.Outcomes[i].Status = domain.IngestSucceeded
	}
	return run, nil
}

// mockFinder keeps only paths ending in .pdf.
type mockFinder struct{}

func (mockFinder) Find(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		if len(p) > 4 && p[len(p)-4:] == ".pdf" {
			out = append(out, p)
		}
	}
	return out, nil
}
