package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

const testDims = 8

func textChunk(doc string, page int, content string) domain.Chunk {
	return domain.Chunk{
		DocID:   doc,
		Page:    page,
		Kind:    domain.KindText,
		Content: content,
		Metadata: domain.ChunkMetadata{
			Source:      doc,
			PageNumber:  page,
			ContentType: domain.KindText,
		},
	}
}

func imageChunk(doc string, page int, path string) domain.Chunk {
	return domain.Chunk{
		DocID:   doc,
		Page:    page,
		Kind:    domain.KindImage,
		Content: path,
		Metadata: domain.ChunkMetadata{
			Source:      doc,
			PageNumber:  page,
			ContentType: domain.KindImage,
			ImagePath:   path,
		},
	}
}

// vectorFor derives a deterministic non-zero vector from a string.
func vectorFor(s string, dims int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	seed := h.Sum64()
	v := make([]float32, dims)
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float32(seed>>40)/float32(1<<24) + 0.01
	}
	return v
}

// fakeEmbedder embeds strings deterministically. A group call fails when any
// input in it is marked as failing, which forces the per-input fallback.
type fakeEmbedder struct {
	dims int

	failText  func(string) bool
	failImage func(string) bool
	shortVec  func(string) bool

	mu          sync.Mutex
	textCalls   [][]string
	imageCalls  [][]string
	textErr     error
	onTextCalls func(n int)
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dims: testDims}
}

func (e *fakeEmbedder) encode(inputs []string, fail func(string) bool) ([][]float32, error) {
	out := make([][]float32, 0, len(inputs))
	for _, in := range inputs {
		if fail != nil && fail(in) {
			return nil, fmt.Errorf("cannot encode %q", in)
		}
		dims := e.dims
		if e.shortVec != nil && e.shortVec(in) {
			dims--
		}
		out = append(out, vectorFor(in, dims))
	}
	return out, nil
}

func (e *fakeEmbedder) EncodeText(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.textCalls = append(e.textCalls, append([]string(nil), texts...))
	n := len(e.textCalls)
	hook := e.onTextCalls
	e.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if e.textErr != nil {
		return nil, e.textErr
	}
	return e.encode(texts, e.failText)
}

func (e *fakeEmbedder) EncodeImage(_ context.Context, paths []string) ([][]float32, error) {
	e.mu.Lock()
	e.imageCalls = append(e.imageCalls, append([]string(nil), paths...))
	e.mu.Unlock()
	return e.encode(paths, e.failImage)
}

func (e *fakeEmbedder) Dimensions() int              { return e.dims }
func (e *fakeEmbedder) ModelName() string            { return "fake-embed" }
func (e *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (e *fakeEmbedder) Close() error                 { return nil }

func (e *fakeEmbedder) calls() (text, image int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.textCalls), len(e.imageCalls)
}

// fakeIndex is a brute-force cosine index with failure injection.
type fakeIndex struct {
	dims int

	mu          sync.Mutex
	records     map[string]domain.VectorRecord
	upsertCalls int
	failUpserts int
	upsertErr   error
	queryErr    error
	countErr    error
	matches     []domain.VectorMatch
	lastK       int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{dims: testDims, records: make(map[string]domain.VectorRecord)}
}

func (x *fakeIndex) Upsert(_ context.Context, records []domain.VectorRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.upsertCalls++
	if x.failUpserts > 0 {
		x.failUpserts--
		err := x.upsertErr
		if err == nil {
			err = errors.New("connection reset")
		}
		return &domain.IndexWriteError{BatchIndex: -1, Size: len(records), Err: err}
	}
	for _, r := range records {
		if len(r.Embedding) != x.dims {
			return &domain.IndexWriteError{BatchIndex: -1, Size: len(records), Err: domain.ErrDimensionMismatch}
		}
	}
	for _, r := range records {
		x.records[r.ID] = r
	}
	return nil
}

func (x *fakeIndex) Query(_ context.Context, embedding []float32, k int) ([]domain.VectorMatch, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.lastK = k
	if x.queryErr != nil {
		return nil, x.queryErr
	}
	if x.matches != nil {
		return x.matches[:min(k, len(x.matches))], nil
	}
	out := make([]domain.VectorMatch, 0, len(x.records))
	for _, r := range x.records {
		out = append(out, domain.VectorMatch{
			ID:       r.ID,
			Metadata: r.Metadata,
			Document: r.Document,
			Distance: 1 - cosine(embedding, r.Embedding),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out[:min(k, len(out))], nil
}

func (x *fakeIndex) Count(_ context.Context) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.countErr != nil {
		return 0, x.countErr
	}
	return len(x.records), nil
}

func (x *fakeIndex) Dimensions() int { return x.dims }
func (x *fakeIndex) Close() error    { return nil }

func (x *fakeIndex) ids() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	ids := make([]string, 0, len(x.records))
	for id := range x.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type extractResult struct {
	chunks []domain.Chunk
	err    error
}

// fakeRegistry serves canned extraction results and records concurrency.
type fakeRegistry struct {
	results map[string]extractResult
	delay   time.Duration
	block   chan struct{}

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{results: make(map[string]extractResult)}
}

func (r *fakeRegistry) set(path string, chunks []domain.Chunk, err error) {
	r.results[path] = extractResult{chunks: chunks, err: err}
}

func (r *fakeRegistry) Extract(ctx context.Context, path string) ([]domain.Chunk, error) {
	r.mu.Lock()
	r.inFlight++
	r.maxInFlight = max(r.maxInFlight, r.inFlight)
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}()

	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	res, ok := r.results[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return res.chunks, res.err
}

func (r *fakeRegistry) Register(driven.ContentExtractor) {}

func (r *fakeRegistry) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".pdf", ".png":
		return true
	}
	return false
}

func (r *fakeRegistry) Extensions() []string { return []string{".pdf", ".png", ".txt"} }

func (r *fakeRegistry) peak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInFlight
}

type fakeGenerator struct {
	text string
	err  error

	mu    sync.Mutex
	calls int
	last  domain.GenerationRequest
	opts  driven.GenerateOptions
}

func (g *fakeGenerator) Generate(_ context.Context, req domain.GenerationRequest, opts driven.GenerateOptions) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.last = req
	g.opts = opts
	return g.text, g.err
}

func (g *fakeGenerator) ModelName() string            { return "fake-gen" }
func (g *fakeGenerator) Ping(_ context.Context) error { return nil }
func (g *fakeGenerator) Close() error                 { return nil }

type fakeImageLoader map[string]domain.ImagePayload

func (l fakeImageLoader) Load(_ context.Context, path string) (domain.ImagePayload, error) {
	p, ok := l[path]
	if !ok {
		return domain.ImagePayload{}, fmt.Errorf("open %s: no such file", path)
	}
	return p, nil
}

// memRunStore keeps runs in a map.
type memRunStore struct {
	mu   sync.Mutex
	runs map[string]*domain.IngestRun
}

func newMemRunStore() *memRunStore {
	return &memRunStore{runs: make(map[string]*domain.IngestRun)}
}

func (s *memRunStore) SaveRun(_ context.Context, run *domain.IngestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := copyRun(run)
	if old, ok := s.runs[run.ID]; ok && len(c.Outcomes) < len(old.Outcomes) {
		c.Outcomes = old.Outcomes
	}
	s.runs[run.ID] = c
	return nil
}

func (s *memRunStore) SaveOutcome(_ context.Context, runID string, position int, o domain.FileOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return domain.ErrNotFound
	}
	for len(run.Outcomes) <= position {
		run.Outcomes = append(run.Outcomes, domain.FileOutcome{})
	}
	run.Outcomes[position] = o
	return nil
}

func (s *memRunStore) GetRun(_ context.Context, id string) (*domain.IngestRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRun(run), nil
}

func (s *memRunStore) ListRuns(_ context.Context, limit int) ([]domain.IngestRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.IngestRun, 0, len(s.runs))
	for _, r := range s.runs {
		c := *r
		c.Outcomes = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// countingMetrics records calls to the metrics port.
type countingMetrics struct {
	mu            sync.Mutex
	encoded       map[string]int
	encodeFailed  map[string]int
	batchesOK     int
	batchesFailed int
	files         map[string]int
	queries       []int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		encoded:      make(map[string]int),
		encodeFailed: make(map[string]int),
		files:        make(map[string]int),
	}
}

func (m *countingMetrics) ChunksEncoded(kind string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encoded[kind] += n
}

func (m *countingMetrics) ChunkEncodeFailed(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encodeFailed[kind]++
}

func (m *countingMetrics) BatchUpserted(int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchesOK++
}

func (m *countingMetrics) BatchFailed(int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchesFailed++
}

func (m *countingMetrics) FileProcessed(status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[status]++
}

func (m *countingMetrics) QueryServed(results int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, results)
}

// noSleep replaces the batcher's backoff sleep and records requested delays.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *noSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}
