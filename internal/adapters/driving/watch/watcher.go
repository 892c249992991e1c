// Package watch queues files for ingestion as they appear in a directory tree.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Matcher decides whether a path, relative to the watched root, is ingested.
type Matcher interface {
	Match(rel string) bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before pending files are submitted.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOnSubmit registers a callback for every accepted run.
func WithOnSubmit(fn func(*domain.IngestRun)) Option {
	return func(w *Watcher) {
		w.onSubmit = fn
	}
}

// Watcher submits new and changed files under root to an ingest queue.
// Removals are ignored; records already in the index stay there.
type Watcher struct {
	root     string
	queue    driving.IngestQueue
	match    Matcher
	debounce time.Duration
	onSubmit func(*domain.IngestRun)

	mu      sync.Mutex
	pending map[string]bool
}

// New creates a watcher for root.
func New(root string, queue driving.IngestQueue, match Matcher, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}
	if queue == nil {
		return nil, errors.New("ingest queue required")
	}

	w := &Watcher{
		root:     root,
		queue:    queue,
		match:    match,
		debounce: DefaultDebounce,
		pending:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	logger.Info("Watching %s", w.root)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if isNewDir(event) {
				if err := w.addTree(fsw, event.Name); err != nil {
					logger.Warn("Cannot watch %s: %v", event.Name, err)
				}
				continue
			}
			if path, ok := w.handleEvent(event); ok {
				w.mu.Lock()
				w.pending[path] = true
				w.mu.Unlock()
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-timer.C:
			if !w.flush(ctx) {
				timer.Reset(w.debounce)
			}
		}
	}
}

// handleEvent returns the file to ingest for an event, if any.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return "", false
	}
	if w.match != nil && !w.match.Match(rel) {
		logger.Debug("Ignoring %s", rel)
		return "", false
	}
	return event.Name, true
}

// flush submits pending files. It reports false when they must be retried.
func (w *Watcher) flush(ctx context.Context) bool {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return true
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.mu.Unlock()
	sort.Strings(paths)

	run, err := w.queue.Submit(ctx, paths)
	if errors.Is(err, domain.ErrQueueFull) {
		logger.Warn("Ingest queue full, retrying %d files", len(paths))
		return false
	}

	w.mu.Lock()
	for _, p := range paths {
		delete(w.pending, p)
	}
	w.mu.Unlock()

	if err != nil {
		logger.Warn("Submitting %d files failed: %v", len(paths), err)
		return true
	}
	logger.Info("Queued %d files as run %s", len(paths), run.ID)
	if w.onSubmit != nil {
		w.onSubmit(run)
	}
	return true
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isNewDir(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) || strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	info, err := os.Stat(event.Name)
	return err == nil && info.IsDir()
}
