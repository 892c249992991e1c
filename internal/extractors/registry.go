package extractors

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps file extensions to extractors.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]driven.ContentExtractor
}

// NewRegistry creates a registry holding the given extractors.
func NewRegistry(extractors ...driven.ContentExtractor) *Registry {
	r := &Registry{byExt: make(map[string]driven.ContentExtractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor. Later registrations win for shared extensions.
func (r *Registry) Register(extractor driven.ContentExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range extractor.Extensions() {
		r.byExt[strings.ToLower(ext)] = extractor
	}
}

// Supports reports whether the path's extension has an extractor.
func (r *Registry) Supports(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// Extensions returns every handled extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract dispatches to the extractor registered for the path's extension.
func (r *Registry) Extract(ctx context.Context, path string) ([]domain.Chunk, error) {
	extractor, ok := r.lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}
	return extractor.Extract(ctx, path)
}

func (r *Registry) lookup(path string) (driven.ContentExtractor, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byExt[ext]
	return e, ok
}
