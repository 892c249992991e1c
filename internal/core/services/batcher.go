package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// BatchReport describes one processed batch.
type BatchReport struct {
	// Index is the zero-based batch position within the file.
	Index int

	// Size is the number of chunks in the batch.
	Size int

	// Upserted is the number of records committed to the index.
	Upserted int

	// EncodeFailed is the number of chunks skipped for encoding errors.
	EncodeFailed int

	// Err is the upsert failure that caused the batch to be dropped, if any.
	Err error
}

// BatchSummary tallies a batcher run.
// When the run was not cancelled, Upserted + EncodeFailed + Dropped == Total.
type BatchSummary struct {
	Total         int
	Embedded      int
	Upserted      int
	EncodeFailed  int
	Dropped       int
	Batches       int
	BatchesFailed int
}

// EmbeddingBatcher embeds chunks in bounded groups and upserts each group
// before starting the next.
type EmbeddingBatcher struct {
	embedder driven.MultimodalEmbedder
	index    driven.VectorIndex
	metrics  driven.PipelineMetrics

	batchSize      int
	upsertAttempts int
	upsertBackoff  time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// BatcherOption configures an EmbeddingBatcher.
type BatcherOption func(*EmbeddingBatcher)

// WithBatchSize sets the number of chunks per batch.
func WithBatchSize(size int) BatcherOption {
	return func(b *EmbeddingBatcher) {
		if size > 0 {
			b.batchSize = size
		}
	}
}

// WithUpsertRetry sets the number of upsert attempts and the initial backoff.
// The backoff doubles after every failed attempt.
func WithUpsertRetry(attempts int, backoff time.Duration) BatcherOption {
	return func(b *EmbeddingBatcher) {
		if attempts > 0 {
			b.upsertAttempts = attempts
		}
		if backoff >= 0 {
			b.upsertBackoff = backoff
		}
	}
}

// WithBatcherMetrics reports counters to m.
func WithBatcherMetrics(m driven.PipelineMetrics) BatcherOption {
	return func(b *EmbeddingBatcher) {
		if m != nil {
			b.metrics = m
		}
	}
}

// NewEmbeddingBatcher creates a batcher writing to index.
func NewEmbeddingBatcher(
	embedder driven.MultimodalEmbedder,
	index driven.VectorIndex,
	opts ...BatcherOption,
) *EmbeddingBatcher {
	b := &EmbeddingBatcher{
		embedder:       embedder,
		index:          index,
		metrics:        NopMetrics{},
		batchSize:      domain.DefaultBatchSize,
		upsertAttempts: domain.DefaultUpsertAttempts,
		upsertBackoff:  domain.DefaultUpsertBackoff,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BatchSize returns the configured batch size.
func (b *EmbeddingBatcher) BatchSize() int {
	return b.batchSize
}

// Run embeds and upserts chunks in order, one batch at a time.
//
// A chunk that fails to encode is skipped and the rest of its batch proceeds.
// A batch whose upsert still fails after retries is logged and dropped, and
// the next batch proceeds. The returned error is non-nil only when ctx ends;
// batches committed before that stay in the index.
func (b *EmbeddingBatcher) Run(
	ctx context.Context,
	chunks []IdentifiedChunk,
	progress func(BatchReport),
) (BatchSummary, error) {
	log := logger.Named("batcher")
	summary := BatchSummary{Total: len(chunks)}

	for i, start := 0, 0; start < len(chunks); i, start = i+1, start+b.batchSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		end := min(start+b.batchSize, len(chunks))
		group := chunks[start:end]
		report := BatchReport{Index: i, Size: len(group)}
		summary.Batches++

		records, failed, err := b.encode(ctx, group)
		if err != nil {
			return summary, err
		}
		report.EncodeFailed = failed
		summary.EncodeFailed += failed
		summary.Embedded += len(records)

		if len(records) > 0 {
			took, err := b.upsert(ctx, i, records)
			switch {
			case err != nil && ctx.Err() != nil:
				return summary, ctx.Err()
			case err != nil:
				report.Err = err
				summary.BatchesFailed++
				summary.Dropped += len(records)
				b.metrics.BatchFailed(len(records))
				log.Warn("dropping batch after upsert failures",
					zap.Int("batch", i), zap.Int("records", len(records)), zap.Error(err))
			default:
				report.Upserted = len(records)
				summary.Upserted += len(records)
				b.metrics.BatchUpserted(len(records), took)
				log.Debug("upserted batch",
					zap.Int("batch", i), zap.Int("records", len(records)), zap.Duration("took", took))
			}
		}

		if progress != nil {
			progress(report)
		}
	}

	return summary, nil
}

// encode embeds a batch and returns its records in batch order.
// Text and table chunks go through the text entry point, images through the image one.
func (b *EmbeddingBatcher) encode(ctx context.Context, group []IdentifiedChunk) ([]domain.VectorRecord, int, error) {
	var textIdx, imageIdx []int
	var texts, images []string
	for i, ic := range group {
		if ic.Chunk.Kind == domain.KindImage {
			imageIdx = append(imageIdx, i)
			images = append(images, ic.Chunk.Metadata.ImagePath)
		} else {
			textIdx = append(textIdx, i)
			texts = append(texts, ic.Chunk.Content)
		}
	}

	vectors := make([][]float32, len(group))
	errs := make([]error, len(group))

	if err := b.encodeKind(ctx, b.embedder.EncodeText, texts, textIdx, vectors, errs); err != nil {
		return nil, 0, err
	}
	if err := b.encodeKind(ctx, b.embedder.EncodeImage, images, imageIdx, vectors, errs); err != nil {
		return nil, 0, err
	}

	dims := b.embedder.Dimensions()
	records := make([]domain.VectorRecord, 0, len(group))
	failed := 0
	for i, ic := range group {
		err := errs[i]
		if err == nil && dims > 0 && len(vectors[i]) != dims {
			err = fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vectors[i]), dims)
		}
		if err != nil {
			failed++
			b.metrics.ChunkEncodeFailed(ic.Chunk.Kind.String())
			encErr := &domain.EncodingError{ChunkID: ic.ID, Err: err}
			logger.Warn("Skipping chunk: %v", encErr)
			continue
		}
		b.metrics.ChunksEncoded(ic.Chunk.Kind.String(), 1)
		records = append(records, domain.VectorRecord{
			ID:        ic.ID,
			Embedding: vectors[i],
			Metadata:  ic.Chunk.Metadata,
			Document:  ic.Chunk.DisplayText(),
		})
	}

	return records, failed, nil
}

// encodeKind embeds inputs in one call, falling back to one call per input
// when the group call fails, so a single bad input only loses itself.
func (b *EmbeddingBatcher) encodeKind(
	ctx context.Context,
	fn func(context.Context, []string) ([][]float32, error),
	inputs []string,
	positions []int,
	vectors [][]float32,
	errs []error,
) error {
	if len(inputs) == 0 {
		return nil
	}

	out, err := fn(ctx, inputs)
	if err == nil && len(out) == len(inputs) {
		for j, pos := range positions {
			vectors[pos] = out[j]
		}
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err == nil {
		err = fmt.Errorf("embedder returned %d vectors for %d inputs", len(out), len(inputs))
	}
	logger.Debug("Group encode failed (%v), retrying %d inputs one at a time", err, len(inputs))

	for j, pos := range positions {
		single, err := fn(ctx, inputs[j:j+1])
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		switch {
		case err != nil:
			errs[pos] = err
		case len(single) != 1:
			errs[pos] = fmt.Errorf("embedder returned %d vectors for 1 input", len(single))
		default:
			vectors[pos] = single[0]
		}
	}
	return nil
}

// upsert writes a batch with bounded exponential backoff.
// Dimension and size violations are not retried.
func (b *EmbeddingBatcher) upsert(ctx context.Context, batch int, records []domain.VectorRecord) (time.Duration, error) {
	start := time.Now()
	backoff := b.upsertBackoff

	var err error
	for attempt := 1; attempt <= b.upsertAttempts; attempt++ {
		err = b.index.Upsert(ctx, records)
		if err == nil {
			return time.Since(start), nil
		}
		if ctx.Err() != nil || !retryableWrite(err) || attempt == b.upsertAttempts {
			break
		}
		logger.Debug("Upsert of batch %d failed (attempt %d/%d): %v; retrying in %s",
			batch, attempt, b.upsertAttempts, err, backoff)
		if sleepErr := b.sleep(ctx, backoff); sleepErr != nil {
			return 0, sleepErr
		}
		backoff *= 2
	}

	var writeErr *domain.IndexWriteError
	if errors.As(err, &writeErr) {
		err = writeErr.Err
	}
	return 0, &domain.IndexWriteError{BatchIndex: batch, Size: len(records), Err: err}
}

func retryableWrite(err error) bool {
	return !errors.Is(err, domain.ErrDimensionMismatch) && !errors.Is(err, domain.ErrBatchTooLarge)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
