package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/mmrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mmrag/internal/adapters/driving/watch"
	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/services"
)

// mockIngestService implements driving.IngestionService.
type mockIngestService struct {
	paths [][]string
	err   error
}

func (m *mockIngestService) Ingest(_ context.Context, paths []string) (*domain.IngestRun, error) {
	m.paths = append(m.paths, paths)
	if m.err != nil {
		return nil, m.err
	}
	return completedRun("run-sync", paths), nil
}

func (m *mockIngestService) IngestFile(_ context.Context, path string) domain.FileOutcome {
	return completedRun("run-file", []string{path}).Outcomes[0]
}

func (m *mockIngestService) Supports(path string) bool {
	return !strings.HasSuffix(path, ".bin")
}

// mockQueue implements BackgroundQueue.
type mockQueue struct {
	mu        sync.Mutex
	started   int
	stopped   int
	submitted [][]string
	submitErr error
}

func (m *mockQueue) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
	return nil
}

func (m *mockQueue) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
	return nil
}

func (m *mockQueue) Submit(_ context.Context, paths []string) (*domain.IngestRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	m.submitted = append(m.submitted, paths)
	run := completedRun("run-async", paths)
	run.Status = domain.IngestRunning
	return run, nil
}

func (m *mockQueue) Run(_ context.Context, id string) (*domain.IngestRun, error) {
	return nil, domain.ErrNotFound
}

func (m *mockQueue) Runs(context.Context, int) ([]domain.IngestRun, error) {
	return nil, nil
}

func (m *mockQueue) Wait(_ context.Context, id string) (*domain.IngestRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.submitted) == 0 {
		return nil, domain.ErrNotFound
	}
	return completedRun(id, m.submitted[len(m.submitted)-1]), nil
}

// submittedFiles returns every submitted path.
func (m *mockQueue) submittedFiles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var files []string
	for _, paths := range m.submitted {
		files = append(files, paths...)
	}
	return files
}

// completedRun marks text files succeeded and everything else failed.
func completedRun(id string, paths []string) *domain.IngestRun {
	finished := time.Now()
	run := &domain.IngestRun{ID: id, StartedAt: finished, FinishedAt: &finished}
	for _, p := range paths {
		o := domain.FileOutcome{File: p, Status: domain.IngestSucceeded, ChunkCount: 2, RecordCount: 2, Stage: domain.StageDone}
		if filepath.Ext(p) != ".txt" {
			o = domain.FileOutcome{
				File: p, Status: domain.IngestFailed, Stage: domain.FailedStage(domain.StageExtracted),
				Error: "unsupported format",
			}
		}
		run.Outcomes = append(run.Outcomes, o)
	}
	run.Status = run.Summarise()
	return run
}

// mockAnswerService implements driving.AnswerService.
type mockAnswerService struct {
	query string
	k     int
	err   error
}

func (m *mockAnswerService) Answer(_ context.Context, query string, k int) (*domain.Answer, error) {
	m.query, m.k = query, k
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Answer{
		Query: query,
		Text:  "Revenue grew 12% in Q3.",
		Sources: []domain.Source{
			{DocumentID: "report.pdf", PageNumber: 3, ContentType: domain.KindText},
			{DocumentID: "report.pdf", PageNumber: 4, ContentType: domain.KindImage, ImagePath: "/data/p4.png"},
		},
	}, nil
}

// mockRetrievalService implements driving.RetrievalService.
type mockRetrievalService struct {
	items []domain.RetrievedItem
	k     int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ string, k int) ([]domain.RetrievedItem, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidK
	}
	m.k = k
	return m.items, nil
}

// mockStatusService implements driving.StatusService.
type mockStatusService struct {
	err error
}

func (m *mockStatusService) Status(context.Context) (*domain.IndexStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IndexStatus{Ready: true, DocumentCount: 42, Backend: "sqlite", Dimensions: 768}, nil
}

// stubFinder expands every path to a fixed file list.
type stubFinder struct {
	files []string
}

func (f *stubFinder) Find(...string) ([]string, error) {
	return f.files, nil
}

func (f *stubFinder) Match(rel string) bool {
	return strings.HasSuffix(rel, ".txt")
}

type testServices struct {
	settings  *services.SettingsService
	ingest    *mockIngestService
	queue     *mockQueue
	answer    *mockAnswerService
	retrieval *mockRetrievalService
	status    *mockStatusService
}

// setupTestServices installs mocks and returns them with a cleanup func
// that restores the previous wiring and flag values.
func setupTestServices() (*testServices, func()) {
	prev := Services{
		Settings: settingsService, Ingest: ingestService, Queue: ingestQueue,
		Retrieval: retrievalService, Answer: answerService, Status: statusService,
		Files: fileFinder, Metrics: metricsHandler, RawDataDir: rawDataDir,
		ServerAddr: serverAddr, Close: closeServices,
	}
	prevLoader := loader

	ts := &testServices{
		settings: services.NewSettingsService(memory.NewConfigStore(), nil),
		ingest:   &mockIngestService{},
		queue:    &mockQueue{},
		answer:   &mockAnswerService{},
		retrieval: &mockRetrievalService{items: []domain.RetrievedItem{
			{
				Content:  "Revenue grew 12% year over year.",
				Metadata: domain.ChunkMetadata{Source: "report.pdf", PageNumber: 3, ContentType: domain.KindText},
				Score:    0.91,
			},
			{
				Metadata: domain.ChunkMetadata{
					Source: "chart.png", PageNumber: 1, ContentType: domain.KindImage, ImagePath: "/data/chart.png",
				},
				Score: 0.74,
			},
		}},
		status: &mockStatusService{},
	}
	SetServices(&Services{
		Settings:   ts.settings,
		Ingest:     ts.ingest,
		Queue:      ts.queue,
		Retrieval:  ts.retrieval,
		Answer:     ts.answer,
		Status:     ts.status,
		RawDataDir: "./sample_documents",
		ServerAddr: ":0",
	})
	loader = nil

	return ts, func() {
		SetServices(&prev)
		loader = prevLoader
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetContext(context.Background())
		resetFlags()
	}
}

// resetFlags restores command flags that persist between executions.
func resetFlags() {
	ingestAsync, ingestJSON, ingestNoProgress, ingestInclude = false, false, false, nil
	queryK, queryJSON = domain.DefaultResultCount, false
	retrieveK, retrieveJSON = domain.DefaultResultCount, false
	statusJSON = false
	serveAddr, serveWatch = "", ""
	watchDebounce = watch.DefaultDebounce
	dataDirFlag, configFlag, verboseFlag = "", "", false
	_ = mcpServeCmd.Flags().Set("port", "0")
}

var errBoom = errors.New("boom")
