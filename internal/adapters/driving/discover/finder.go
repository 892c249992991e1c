// Package discover expands user-supplied paths into the files to ingest.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Finder walks directories and keeps files matching the include globs.
// Patterns are matched against the slash-separated path relative to the
// walked directory, case-insensitively.
type Finder struct {
	include  []string
	supports func(path string) bool
}

// New creates a finder. An empty include list accepts every file;
// supports, when non-nil, further restricts directory results.
func New(include []string, supports func(path string) bool) (*Finder, error) {
	patterns := make([]string, 0, len(include))
	for _, p := range include {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
		patterns = append(patterns, p)
	}
	return &Finder{include: patterns, supports: supports}, nil
}

// Find expands paths in order. Directories are walked recursively, skipping
// hidden entries. Anything else, including paths that do not exist, is kept
// as given so ingestion can report an outcome for it. Duplicates are dropped.
func (f *Finder) Find(paths ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != p && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(p, path)
			if err != nil {
				return err
			}
			if f.Match(rel) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return out, nil
}

// Match reports whether a path relative to a watched or walked directory
// should be ingested.
func (f *Finder) Match(rel string) bool {
	if f.supports != nil && !f.supports(rel) {
		return false
	}
	if len(f.include) == 0 {
		return true
	}
	name := strings.ToLower(filepath.ToSlash(rel))
	for _, pattern := range f.include {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
