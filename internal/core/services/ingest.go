package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// Ensure IngestionPipeline implements the interface.
var _ driving.IngestionService = (*IngestionPipeline)(nil)

// maxTrackedRuns bounds the finished runs kept in memory.
const maxTrackedRuns = 100

// ProgressEvent is emitted while files are processed.
// Exactly one of Batch or Outcome is set.
type ProgressEvent struct {
	RunID   string
	File    string
	Batch   *BatchReport
	Outcome *domain.FileOutcome
}

// ProgressFunc observes ingestion progress. It is called from several
// goroutines at once when files are processed concurrently.
type ProgressFunc func(ProgressEvent)

// trackedRun is a run in flight or recently finished.
type trackedRun struct {
	run       *domain.IngestRun
	remaining int
	done      chan struct{}
}

// IngestionPipeline orchestrates extraction, identity assignment and batched
// embedding for source files. Each file is an isolated unit of work.
type IngestionPipeline struct {
	extractors driven.ExtractorRegistry
	postproc   driven.PostProcessorPipeline
	batcher    *EmbeddingBatcher
	runStore   driven.IngestRunStore
	metrics    driven.PipelineMetrics
	progress   ProgressFunc

	maxConcurrency int

	mu   sync.RWMutex
	runs map[string]*trackedRun
}

// IngestOption configures an IngestionPipeline.
type IngestOption func(*IngestionPipeline)

// WithMaxConcurrency bounds how many files are processed at once.
func WithMaxConcurrency(n int) IngestOption {
	return func(p *IngestionPipeline) {
		if n > 0 {
			p.maxConcurrency = n
		}
	}
}

// WithPostProcessors runs extracted chunks through a pipeline before identity assignment.
func WithPostProcessors(pipeline driven.PostProcessorPipeline) IngestOption {
	return func(p *IngestionPipeline) {
		p.postproc = pipeline
	}
}

// WithRunStore persists runs and outcomes.
func WithRunStore(store driven.IngestRunStore) IngestOption {
	return func(p *IngestionPipeline) {
		p.runStore = store
	}
}

// WithIngestMetrics reports file counters to m.
func WithIngestMetrics(m driven.PipelineMetrics) IngestOption {
	return func(p *IngestionPipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithProgress registers a progress observer.
func WithProgress(fn ProgressFunc) IngestOption {
	return func(p *IngestionPipeline) {
		p.progress = fn
	}
}

// NewIngestionPipeline creates a pipeline. The extractor registry and batcher are required.
func NewIngestionPipeline(
	extractors driven.ExtractorRegistry,
	batcher *EmbeddingBatcher,
	opts ...IngestOption,
) *IngestionPipeline {
	p := &IngestionPipeline{
		extractors:     extractors,
		batcher:        batcher,
		metrics:        NopMetrics{},
		maxConcurrency: domain.DefaultMaxConcurrency,
		runs:           make(map[string]*trackedRun),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetProgress replaces the progress observer.
func (p *IngestionPipeline) SetProgress(fn ProgressFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = fn
}

// Supports reports whether a file can be extracted.
func (p *IngestionPipeline) Supports(path string) bool {
	return p.extractors.Supports(path)
}

// Ingest processes files concurrently, bounded by the configured limit, and
// blocks until every file has a terminal outcome. Outcomes keep input order.
func (p *IngestionPipeline) Ingest(ctx context.Context, paths []string) (*domain.IngestRun, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files to ingest", domain.ErrInvalidInput)
	}

	logger.Section("Ingestion")
	runID := p.startRun(ctx, paths)

	var g errgroup.Group
	g.SetLimit(p.maxConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			p.processInRun(ctx, runID, i, path)
			return nil
		})
	}
	_ = g.Wait()

	return p.Run(ctx, runID)
}

// IngestFile runs one file through extract, chunk, embed and upsert.
// It never returns an error: failures are reported on the outcome.
//
//nolint:gocyclo // Per-file state machine with a branch per terminal state
func (p *IngestionPipeline) IngestFile(ctx context.Context, path string) domain.FileOutcome {
	start := time.Now()
	outcome := domain.FileOutcome{File: path, Status: domain.IngestRunning, Stage: domain.StageQueued}
	defer func() {
		outcome.Duration = time.Since(start)
		p.metrics.FileProcessed(outcome.Status.String(), outcome.Duration)
	}()

	finish := func(status domain.IngestStatus, stage domain.IngestStage, err error) domain.FileOutcome {
		outcome.Status = status
		outcome.Stage = stage
		if err != nil {
			outcome.Error = err.Error()
		}
		return outcome
	}

	if !p.extractors.Supports(path) {
		logger.Info("Skipping %s: %v", path, domain.ErrUnsupportedFormat)
		return finish(domain.IngestSkipped, domain.StageQueued, domain.ErrUnsupportedFormat)
	}

	chunks, err := p.extractors.Extract(ctx, path)
	if err != nil {
		extErr := &domain.ExtractionError{Path: path, Err: err}
		logger.Warn("%v", extErr)
		return finish(domain.IngestFailed, domain.FailedStage(domain.StageExtracted), extErr)
	}
	outcome.Stage = domain.StageExtracted

	chunks = p.validChunks(path, chunks, &outcome)
	if len(chunks) == 0 && outcome.FailedChunks == 0 {
		logger.Info("No chunks extracted from %s", path)
		return finish(domain.IngestSkipped, domain.StageExtracted, errors.New("no chunks extracted"))
	}

	if p.postproc != nil && len(chunks) > 0 {
		chunks, err = p.postproc.Process(ctx, chunks)
		if err != nil {
			return finish(domain.IngestFailed, domain.FailedStage(domain.StageChunked),
				&domain.ExtractionError{Path: path, Err: err})
		}
		if len(chunks) == 0 && outcome.FailedChunks == 0 {
			logger.Info("No chunks left in %s after post-processing", path)
			return finish(domain.IngestSkipped, domain.StageChunked, errors.New("no chunks left after post-processing"))
		}
	}
	identified := AssignIDs(chunks)
	outcome.ChunkCount = len(identified) + outcome.FailedChunks
	outcome.Stage = domain.StageChunked
	logger.Debug("%s: %d chunks", path, len(identified))

	summary, err := p.batcher.Run(ctx, identified, func(r BatchReport) {
		if r.Err != nil {
			outcome.Stage = domain.FailedStage(domain.BatchStage(domain.StageUpserted, r.Index))
		} else {
			outcome.Stage = domain.BatchStage(domain.StageUpserted, r.Index)
		}
		p.emit(ProgressEvent{File: path, Batch: &r})
	})
	outcome.RecordCount = summary.Upserted
	outcome.FailedChunks += summary.EncodeFailed
	outcome.FailedBatches = summary.BatchesFailed

	switch {
	case err != nil:
		logger.Warn("Ingestion of %s stopped after %d records: %v", path, summary.Upserted, err)
		return finish(domain.IngestFailed, outcome.Stage, fmt.Errorf("cancelled: %w", err))
	case summary.Upserted > 0:
		var note error
		if summary.EncodeFailed > 0 || summary.BatchesFailed > 0 {
			note = fmt.Errorf("%d chunks failed to encode, %d batches dropped",
				outcome.FailedChunks, summary.BatchesFailed)
		}
		return finish(domain.IngestSucceeded, domain.StageDone, note)
	default:
		return finish(domain.IngestFailed, outcome.Stage,
			fmt.Errorf("no records indexed: %d chunks failed to encode, %d batches dropped",
				outcome.FailedChunks, summary.BatchesFailed))
	}
}

// validChunks drops chunks that break the extractor contract.
func (p *IngestionPipeline) validChunks(path string, chunks []domain.Chunk, outcome *domain.FileOutcome) []domain.Chunk {
	valid := chunks[:0:0]
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			logger.Warn("Dropping invalid chunk from %s: %v", path, err)
			outcome.FailedChunks++
			continue
		}
		valid = append(valid, c)
	}
	return valid
}

// Run returns a snapshot of a run, consulting the run store for runs no longer tracked.
func (p *IngestionPipeline) Run(ctx context.Context, id string) (*domain.IngestRun, error) {
	p.mu.RLock()
	tr, ok := p.runs[id]
	if ok {
		snapshot := copyRun(tr.run)
		p.mu.RUnlock()
		return snapshot, nil
	}
	p.mu.RUnlock()

	if p.runStore == nil {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	return p.runStore.GetRun(ctx, id)
}

// Runs lists recent runs, most recent first.
func (p *IngestionPipeline) Runs(ctx context.Context, limit int) ([]domain.IngestRun, error) {
	if p.runStore != nil {
		return p.runStore.ListRuns(ctx, limit)
	}

	p.mu.RLock()
	runs := make([]domain.IngestRun, 0, len(p.runs))
	for _, tr := range p.runs {
		runs = append(runs, *copyRun(tr.run))
	}
	p.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Wait blocks until the run is terminal or ctx ends.
func (p *IngestionPipeline) Wait(ctx context.Context, id string) (*domain.IngestRun, error) {
	p.mu.RLock()
	tr, ok := p.runs[id]
	p.mu.RUnlock()
	if ok {
		select {
		case <-tr.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.Run(ctx, id)
}

// startRun registers a run with pending outcomes and returns its ID.
func (p *IngestionPipeline) startRun(ctx context.Context, paths []string) string {
	run := &domain.IngestRun{
		ID:        uuid.New().String(),
		Status:    domain.IngestRunning,
		Outcomes:  make([]domain.FileOutcome, len(paths)),
		StartedAt: time.Now(),
	}
	for i, path := range paths {
		run.Outcomes[i] = domain.FileOutcome{File: path, Status: domain.IngestPending, Stage: domain.StageQueued}
	}

	p.mu.Lock()
	p.runs[run.ID] = &trackedRun{run: run, remaining: len(paths), done: make(chan struct{})}
	snapshot := copyRun(run)
	p.mu.Unlock()

	if p.runStore != nil {
		if err := p.runStore.SaveRun(ctx, snapshot); err != nil {
			logger.Warn("Failed to persist run %s: %v", run.ID, err)
		} else {
			for i, o := range snapshot.Outcomes {
				p.saveOutcome(ctx, run.ID, i, o)
			}
		}
	}
	logger.Named("ingest").Info("run started", zap.String("run", run.ID), zap.Int("files", len(paths)))
	return run.ID
}

// processInRun ingests one file of a run and records its outcome.
func (p *IngestionPipeline) processInRun(ctx context.Context, runID string, position int, path string) {
	p.setOutcome(ctx, runID, position, domain.FileOutcome{
		File: path, Status: domain.IngestRunning, Stage: domain.StageQueued,
	}, false)

	var outcome domain.FileOutcome
	if err := ctx.Err(); err != nil {
		outcome = domain.FileOutcome{
			File:   path,
			Status: domain.IngestFailed,
			Stage:  domain.StageQueued,
			Error:  fmt.Sprintf("cancelled: %v", err),
		}
	} else {
		outcome = p.IngestFile(ctx, path)
	}

	logger.Named("ingest").Info("file processed",
		zap.String("file", path),
		zap.String("status", outcome.Status.String()),
		zap.Int("chunks", outcome.ChunkCount),
		zap.Int("records", outcome.RecordCount))
	p.setOutcome(ctx, runID, position, outcome, true)
	p.emit(ProgressEvent{RunID: runID, File: path, Outcome: &outcome})
}

// setOutcome stores an outcome and finishes the run when its last file completes.
func (p *IngestionPipeline) setOutcome(
	ctx context.Context, runID string, position int, outcome domain.FileOutcome, terminal bool,
) {
	p.mu.Lock()
	tr, ok := p.runs[runID]
	if !ok {
		p.mu.Unlock()
		return
	}
	tr.run.Outcomes[position] = outcome
	var finished *domain.IngestRun
	if terminal {
		tr.remaining--
		if tr.remaining == 0 {
			now := time.Now()
			tr.run.FinishedAt = &now
			tr.run.Status = tr.run.Summarise()
			finished = copyRun(tr.run)
			close(tr.done)
			p.pruneLocked()
		}
	}
	p.mu.Unlock()

	// Persist with a context that survives cancellation so final outcomes are kept.
	storeCtx := context.WithoutCancel(ctx)
	p.saveOutcome(storeCtx, runID, position, outcome)
	if finished != nil && p.runStore != nil {
		if err := p.runStore.SaveRun(storeCtx, finished); err != nil {
			logger.Warn("Failed to persist run %s: %v", runID, err)
		}
	}
}

func (p *IngestionPipeline) saveOutcome(ctx context.Context, runID string, position int, o domain.FileOutcome) {
	if p.runStore == nil {
		return
	}
	if err := p.runStore.SaveOutcome(ctx, runID, position, o); err != nil {
		logger.Warn("Failed to persist outcome for %s: %v", o.File, err)
	}
}

// pruneLocked drops the oldest finished runs beyond maxTrackedRuns. Caller holds p.mu.
func (p *IngestionPipeline) pruneLocked() {
	if len(p.runs) <= maxTrackedRuns {
		return
	}
	var finished []*trackedRun
	for _, tr := range p.runs {
		if tr.remaining == 0 {
			finished = append(finished, tr)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].run.StartedAt.Before(finished[j].run.StartedAt)
	})
	for _, tr := range finished {
		if len(p.runs) <= maxTrackedRuns {
			return
		}
		delete(p.runs, tr.run.ID)
	}
}

func (p *IngestionPipeline) emit(ev ProgressEvent) {
	p.mu.RLock()
	fn := p.progress
	p.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func copyRun(run *domain.IngestRun) *domain.IngestRun {
	c := *run
	c.Outcomes = append([]domain.FileOutcome(nil), run.Outcomes...)
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
