package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// recordingQueue records submissions.
type recordingQueue struct {
	mu        sync.Mutex
	submitted [][]string
	full      int
}

func (q *recordingQueue) Submit(_ context.Context, paths []string) (*domain.IngestRun, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full > 0 {
		q.full--
		return nil, domain.ErrQueueFull
	}
	q.submitted = append(q.submitted, paths)
	return &domain.IngestRun{ID: "run", Status: domain.IngestRunning}, nil
}

func (q *recordingQueue) Run(context.Context, string) (*domain.IngestRun, error) {
	return nil, domain.ErrNotFound
}

func (q *recordingQueue) Runs(context.Context, int) ([]domain.IngestRun, error) {
	return nil, nil
}

func (q *recordingQueue) Wait(context.Context, string) (*domain.IngestRun, error) {
	return nil, domain.ErrNotFound
}

func (q *recordingQueue) all() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for _, batch := range q.submitted {
		out = append(out, batch...)
	}
	return out
}

type suffixMatcher string

func (m suffixMatcher) Match(rel string) bool {
	return strings.HasSuffix(rel, string(m))
}

func TestNew_Validation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := New(filepath.Join(dir, "missing"), &recordingQueue{}, nil)
	assert.Error(t, err)

	_, err = New(file, &recordingQueue{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(dir, nil, nil)
	assert.Error(t, err)
}

func TestHandleEvent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, &recordingQueue{}, suffixMatcher(".pdf"))
	require.NoError(t, err)

	write := func(name string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		return path
	}
	pdf := write("a.pdf")
	txt := write("a.txt")
	hidden := write(".a.pdf")
	sub := filepath.Join(dir, "sub.pdf")
	require.NoError(t, os.Mkdir(sub, 0o755))

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"create matching file", pdf, fsnotify.Create, true},
		{"write matching file", pdf, fsnotify.Write, true},
		{"non-matching file", txt, fsnotify.Create, false},
		{"hidden file", hidden, fsnotify.Create, false},
		{"directory", sub, fsnotify.Create, false},
		{"remove", pdf, fsnotify.Remove, false},
		{"chmod", pdf, fsnotify.Chmod, false},
		{"vanished file", filepath.Join(dir, "gone.pdf"), fsnotify.Create, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := w.handleEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.path, path)
			}
		})
	}
}

func TestFlush_RetriesWhenQueueFull(t *testing.T) {
	dir := t.TempDir()
	queue := &recordingQueue{full: 1}
	var runs int
	w, err := New(dir, queue, nil, WithOnSubmit(func(*domain.IngestRun) { runs++ }))
	require.NoError(t, err)

	w.pending["b.pdf"] = true
	w.pending["a.pdf"] = true

	assert.False(t, w.flush(context.Background()))
	assert.Len(t, w.pending, 2)

	assert.True(t, w.flush(context.Background()))
	assert.Empty(t, w.pending)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, queue.all())
	assert.Equal(t, 1, runs)

	assert.True(t, w.flush(context.Background()), "nothing pending")
}

func TestRun_QueuesNewFiles(t *testing.T) {
	dir := t.TempDir()
	queue := &recordingQueue{}
	w, err := New(dir, queue, suffixMatcher(".txt"), WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the tree.
	time.Sleep(100 * time.Millisecond)

	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(nested, 0o755))
	time.Sleep(100 * time.Millisecond)

	top := filepath.Join(dir, "notes.txt")
	deep := filepath.Join(nested, "deep.txt")
	require.NoError(t, os.WriteFile(top, []byte("hello"), 0o600))
	require.NoError(t, os.WriteFile(deep, []byte("hello"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.bin"), []byte("x"), 0o600))

	assert.Eventually(t, func() bool {
		got := queue.all()
		return assert.ObjectsAreEqual([]string{deep, top}, dedupe(got))
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func dedupe(paths []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	if len(out) == 2 && out[0] > out[1] {
		out[0], out[1] = out[1], out[0]
	}
	return out
}
