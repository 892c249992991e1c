package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// Ensure IngestQueue implements the interface.
var _ driving.IngestQueue = (*IngestQueue)(nil)

type ingestTask struct {
	runID    string
	position int
	path     string
}

type queuedRun struct {
	id    string
	paths []string
}

// IngestQueue runs ingestion in the background on a fixed pool of workers.
// The depth bounds pending runs, not files: a run of any size is accepted
// while fewer than depth runs are waiting. Further submissions are rejected
// rather than blocking.
type IngestQueue struct {
	pipeline *IngestionPipeline
	workers  int
	depth    int

	mu      sync.Mutex
	running bool
	runs    chan queuedRun
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewIngestQueue creates a queue with the given worker count and depth.
func NewIngestQueue(pipeline *IngestionPipeline, workers, depth int) *IngestQueue {
	if workers <= 0 {
		workers = domain.DefaultMaxConcurrency
	}
	if depth <= 0 {
		depth = domain.DefaultQueueDepth
	}
	return &IngestQueue{
		pipeline: pipeline,
		workers:  workers,
		depth:    depth,
	}
}

// Start launches the workers. It returns immediately; call Stop to shut down.
func (q *IngestQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return nil
	}

	workCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.runs = make(chan queuedRun, q.depth)
	q.running = true

	tasks := make(chan ingestTask)
	q.wg.Add(1)
	go q.dispatch(q.runs, tasks)
	for range q.workers {
		q.wg.Add(1)
		go q.work(workCtx, tasks)
	}
	logger.Debug("Ingest queue started with %d workers, depth %d", q.workers, q.depth)
	return nil
}

// Stop cancels in-flight work and waits for the workers to exit.
// Batches already upserted stay committed; queued files are reported as cancelled.
func (q *IngestQueue) Stop() error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	close(q.runs)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Submit accepts files for background ingestion and returns the pending run.
func (q *IngestQueue) Submit(ctx context.Context, paths []string) (*domain.IngestRun, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files to ingest", domain.ErrInvalidInput)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return nil, domain.ErrQueueStopped
	}
	// Only Submit sends, under q.mu, so a free slot stays free until the send.
	if len(q.runs) == cap(q.runs) {
		return nil, fmt.Errorf("%w: %d runs already waiting", domain.ErrQueueFull, len(q.runs))
	}

	runID := q.pipeline.startRun(ctx, paths)
	q.runs <- queuedRun{id: runID, paths: append([]string(nil), paths...)}
	return q.pipeline.Run(ctx, runID)
}

// Run returns a run's current progress.
func (q *IngestQueue) Run(ctx context.Context, id string) (*domain.IngestRun, error) {
	return q.pipeline.Run(ctx, id)
}

// Runs lists recent runs, most recent first.
func (q *IngestQueue) Runs(ctx context.Context, limit int) ([]domain.IngestRun, error) {
	return q.pipeline.Runs(ctx, limit)
}

// Wait blocks until the run is terminal or ctx ends.
func (q *IngestQueue) Wait(ctx context.Context, id string) (*domain.IngestRun, error) {
	return q.pipeline.Wait(ctx, id)
}

// dispatch feeds the files of each run to the workers in submission order.
func (q *IngestQueue) dispatch(runs <-chan queuedRun, tasks chan<- ingestTask) {
	defer q.wg.Done()
	defer close(tasks)
	for run := range runs {
		for i, path := range run.paths {
			tasks <- ingestTask{runID: run.id, position: i, path: path}
		}
	}
}

func (q *IngestQueue) work(ctx context.Context, tasks <-chan ingestTask) {
	defer q.wg.Done()
	for task := range tasks {
		q.pipeline.processInRun(ctx, task.runID, task.position, task.path)
	}
}
