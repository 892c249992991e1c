package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

type pipelineFixture struct {
	registry *fakeRegistry
	embedder *fakeEmbedder
	index    *fakeIndex
	metrics  *countingMetrics
	pipeline *IngestionPipeline
}

func newPipelineFixture(opts ...IngestOption) *pipelineFixture {
	f := &pipelineFixture{
		registry: newFakeRegistry(),
		embedder: newFakeEmbedder(),
		index:    newFakeIndex(),
		metrics:  newCountingMetrics(),
	}
	batcher, _ := newTestBatcher(f.embedder, f.index, WithUpsertRetry(2, time.Millisecond))
	opts = append([]IngestOption{WithIngestMetrics(f.metrics)}, opts...)
	f.pipeline = NewIngestionPipeline(f.registry, batcher, opts...)
	return f
}

func TestIngestionPipeline_Ingest_HelloWorld(t *testing.T) {
	f := newPipelineFixture()
	f.registry.set("docs/hello.txt", []domain.Chunk{textChunk("hello", 1, "hello world")}, nil)

	run, err := f.pipeline.Ingest(context.Background(), []string{"docs/hello.txt"})

	require.NoError(t, err)
	assert.Equal(t, domain.IngestSucceeded, run.Status)
	assert.NotEmpty(t, run.ID)
	assert.NotNil(t, run.FinishedAt)
	require.Len(t, run.Outcomes, 1)

	o := run.Outcomes[0]
	assert.Equal(t, domain.IngestSucceeded, o.Status)
	assert.Equal(t, domain.StageDone, o.Stage)
	assert.Equal(t, 1, o.ChunkCount)
	assert.Equal(t, 1, o.RecordCount)
	assert.Empty(t, o.Error)

	require.Equal(t, []string{"hello_0_text_1"}, f.index.ids())
	rec := f.index.records["hello_0_text_1"]
	assert.Equal(t, "hello world", rec.Document)
	assert.Equal(t, "hello", rec.Metadata.Source)
	assert.Equal(t, 1, f.metrics.files["succeeded"])
}

func TestIngestionPipeline_Ingest_FileIsolation(t *testing.T) {
	for _, order := range [][]string{{"a.pdf", "b.txt"}, {"b.txt", "a.pdf"}} {
		t.Run(order[0]+" first", func(t *testing.T) {
			f := newPipelineFixture()
			f.registry.set("a.pdf", nil, errors.New("corrupt xref table"))
			f.registry.set("b.txt", []domain.Chunk{
				textChunk("b", 1, "first"),
				textChunk("b", 1, "second"),
			}, nil)

			run, err := f.pipeline.Ingest(context.Background(), order)

			require.NoError(t, err)
			byFile := map[string]domain.FileOutcome{}
			for _, o := range run.Outcomes {
				byFile[o.File] = o
			}
			assert.Equal(t, order, run.Files())

			a := byFile["a.pdf"]
			assert.Equal(t, domain.IngestFailed, a.Status)
			assert.Equal(t, domain.FailedStage(domain.StageExtracted), a.Stage)
			assert.Contains(t, a.Error, "corrupt xref table")

			b := byFile["b.txt"]
			assert.Equal(t, domain.IngestSucceeded, b.Status)
			assert.Equal(t, 2, b.RecordCount)

			assert.Equal(t, domain.IngestSucceeded, run.Status)
			assert.Equal(t, []string{"b_0_text_1", "b_1_text_1"}, f.index.ids())
		})
	}
}

func TestIngestionPipeline_IngestFile_Skips(t *testing.T) {
	f := newPipelineFixture()
	f.registry.set("empty.txt", []domain.Chunk{}, nil)

	t.Run("unsupported extension", func(t *testing.T) {
		o := f.pipeline.IngestFile(context.Background(), "notes.docx")
		assert.Equal(t, domain.IngestSkipped, o.Status)
		assert.Contains(t, o.Error, domain.ErrUnsupportedFormat.Error())
		assert.Zero(t, o.ChunkCount)
	})

	t.Run("zero chunks", func(t *testing.T) {
		o := f.pipeline.IngestFile(context.Background(), "empty.txt")
		assert.Equal(t, domain.IngestSkipped, o.Status)
		assert.Equal(t, domain.StageExtracted, o.Stage)
	})

	text, image := f.embedder.calls()
	assert.Zero(t, text+image)
	assert.Zero(t, f.index.upsertCalls)
}

func TestIngestionPipeline_IngestFile_DropsInvalidChunks(t *testing.T) {
	f := newPipelineFixture()
	bad := textChunk("doc", 1, "orphan")
	bad.Metadata.Source = ""
	f.registry.set("doc.txt", []domain.Chunk{textChunk("doc", 1, "kept"), bad}, nil)

	o := f.pipeline.IngestFile(context.Background(), "doc.txt")

	assert.Equal(t, domain.IngestSucceeded, o.Status)
	assert.Equal(t, 2, o.ChunkCount)
	assert.Equal(t, 1, o.RecordCount)
	assert.Equal(t, 1, o.FailedChunks)
	assert.Contains(t, o.Error, "1 chunks failed")
}

func TestIngestionPipeline_IngestFile_AllBatchesFail(t *testing.T) {
	f := newPipelineFixture()
	f.index.failUpserts = 100
	f.registry.set("doc.txt", []domain.Chunk{textChunk("doc", 1, "a"), textChunk("doc", 1, "b")}, nil)

	o := f.pipeline.IngestFile(context.Background(), "doc.txt")

	assert.Equal(t, domain.IngestFailed, o.Status)
	assert.Equal(t, 1, o.FailedBatches)
	assert.Zero(t, o.RecordCount)
	assert.Equal(t, domain.FailedStage(domain.BatchStage(domain.StageUpserted, 0)), o.Stage)
}

func TestIngestionPipeline_IngestFile_PartialEncodeFailureSucceeds(t *testing.T) {
	f := newPipelineFixture()
	f.embedder.failImage = func(string) bool { return true }
	f.registry.set("deck.pdf", []domain.Chunk{
		textChunk("deck", 1, "intro"),
		imageChunk("deck", 1, "/tmp/deck_p1_img0.png"),
	}, nil)

	o := f.pipeline.IngestFile(context.Background(), "deck.pdf")

	assert.Equal(t, domain.IngestSucceeded, o.Status)
	assert.Equal(t, 1, o.RecordCount)
	assert.Equal(t, 1, o.FailedChunks)
}

type duplicatingPipeline struct{}

func (duplicatingPipeline) Process(_ context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, 0, 2*len(chunks))
	for _, c := range chunks {
		second := c
		second.Content += " (continued)"
		out = append(out, c, second)
	}
	return out, nil
}

func TestIngestionPipeline_IngestFile_RunsPostProcessors(t *testing.T) {
	f := newPipelineFixture(WithPostProcessors(duplicatingPipeline{}))
	f.registry.set("long.txt", []domain.Chunk{textChunk("long", 1, "body")}, nil)

	o := f.pipeline.IngestFile(context.Background(), "long.txt")

	assert.Equal(t, domain.IngestSucceeded, o.Status)
	assert.Equal(t, 2, o.ChunkCount)
	assert.Equal(t, []string{"long_0_text_1", "long_1_text_1"}, f.index.ids())
	assert.Equal(t, "body (continued)", f.index.records["long_1_text_1"].Document)
}

type emptyingPipeline struct{}

func (emptyingPipeline) Process(context.Context, []domain.Chunk) ([]domain.Chunk, error) {
	return nil, nil
}

func TestIngestionPipeline_IngestFile_SkipsWhenPostProcessingLeavesNothing(t *testing.T) {
	f := newPipelineFixture(WithPostProcessors(emptyingPipeline{}))
	f.registry.set("blank.txt", []domain.Chunk{textChunk("blank", 1, "   ")}, nil)

	o := f.pipeline.IngestFile(context.Background(), "blank.txt")

	assert.Equal(t, domain.IngestSkipped, o.Status)
	assert.Equal(t, domain.StageChunked, o.Stage)
	assert.Zero(t, o.RecordCount)
	assert.Contains(t, o.Error, "no chunks left")
	assert.Empty(t, f.index.ids())
}

func TestIngestionPipeline_Ingest_BoundsConcurrency(t *testing.T) {
	f := newPipelineFixture(WithMaxConcurrency(2))
	f.registry.delay = 20 * time.Millisecond
	paths := []string{"1.txt", "2.txt", "3.txt", "4.txt", "5.txt", "6.txt"}
	for _, p := range paths {
		f.registry.set(p, []domain.Chunk{textChunk(p[:1], 1, "content "+p)}, nil)
	}

	run, err := f.pipeline.Ingest(context.Background(), paths)

	require.NoError(t, err)
	assert.Equal(t, 6, run.Counts()[domain.IngestSucceeded])
	assert.LessOrEqual(t, f.registry.peak(), 2)
	assert.Len(t, f.index.ids(), 6)
}

func TestIngestionPipeline_Ingest_EmptyInput(t *testing.T) {
	f := newPipelineFixture()
	_, err := f.pipeline.Ingest(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestionPipeline_Ingest_CancelledContext(t *testing.T) {
	f := newPipelineFixture()
	f.registry.set("a.txt", []domain.Chunk{textChunk("a", 1, "x")}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.pipeline.Ingest(ctx, []string{"a.txt"})

	require.NoError(t, err)
	assert.Equal(t, domain.IngestFailed, run.Status)
	assert.Contains(t, run.Outcomes[0].Error, "cancelled")
	assert.Empty(t, f.index.ids())
}

func TestIngestionPipeline_ProgressEvents(t *testing.T) {
	var mu sync.Mutex
	var batches, outcomes int
	f := newPipelineFixture(WithProgress(func(ev ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Batch != nil {
			batches++
		}
		if ev.Outcome != nil {
			outcomes++
			assert.NotEmpty(t, ev.RunID)
		}
	}))
	f.registry.set("a.txt", []domain.Chunk{textChunk("a", 1, "x")}, nil)
	f.registry.set("b.txt", []domain.Chunk{textChunk("b", 1, "y")}, nil)

	_, err := f.pipeline.Ingest(context.Background(), []string{"a.txt", "b.txt", "c.docx"})

	require.NoError(t, err)
	assert.Equal(t, 2, batches)
	assert.Equal(t, 3, outcomes)
}

func TestIngestionPipeline_Runs(t *testing.T) {
	f := newPipelineFixture()
	f.registry.set("a.txt", []domain.Chunk{textChunk("a", 1, "x")}, nil)

	first, err := f.pipeline.Ingest(context.Background(), []string{"a.txt"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := f.pipeline.Ingest(context.Background(), []string{"a.txt"})
	require.NoError(t, err)

	got, err := f.pipeline.Run(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	runs, err := f.pipeline.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)

	// Re-ingesting the same file replaces its records.
	assert.Equal(t, []string{"a_0_text_1"}, f.index.ids())

	_, err = f.pipeline.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestionPipeline_PersistsRuns(t *testing.T) {
	store := newMemRunStore()
	f := newPipelineFixture(WithRunStore(store))
	f.registry.set("a.txt", []domain.Chunk{textChunk("a", 1, "x")}, nil)

	run, err := f.pipeline.Ingest(context.Background(), []string{"a.txt", "b.docx"})
	require.NoError(t, err)

	stored, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestSucceeded, stored.Status)
	require.Len(t, stored.Outcomes, 2)
	assert.Equal(t, domain.IngestSucceeded, stored.Outcomes[0].Status)
	assert.Equal(t, domain.IngestSkipped, stored.Outcomes[1].Status)
}

func TestIngestionPipeline_PrunesTrackedRuns(t *testing.T) {
	f := newPipelineFixture()
	f.registry.set("a.txt", []domain.Chunk{textChunk("a", 1, "x")}, nil)

	for range maxTrackedRuns + 5 {
		_, err := f.pipeline.Ingest(context.Background(), []string{"a.txt"})
		require.NoError(t, err)
	}

	f.pipeline.mu.RLock()
	defer f.pipeline.mu.RUnlock()
	assert.LessOrEqual(t, len(f.pipeline.runs), maxTrackedRuns)
}
