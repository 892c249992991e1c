// Package imagestore reads extracted images back from disk for multimodal prompting.
package imagestore

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.ImageLoader = (*Loader)(nil)

// DefaultMaxBytes bounds a single image handed to a generation backend.
const DefaultMaxBytes = 20 << 20

// Loader reads image files and sniffs their MIME type.
type Loader struct {
	maxBytes int64
}

// NewLoader creates a loader. maxBytes <= 0 uses DefaultMaxBytes.
func NewLoader(maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Loader{maxBytes: maxBytes}
}

// Load reads the file at path. Non-image content is rejected.
func (l *Loader) Load(ctx context.Context, path string) (domain.ImagePayload, error) {
	if err := ctx.Err(); err != nil {
		return domain.ImagePayload{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.ImagePayload{}, &domain.ImageLoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return domain.ImagePayload{}, &domain.ImageLoadError{Path: path, Err: fmt.Errorf("%w: is a directory", domain.ErrInvalidInput)}
	}
	if info.Size() > l.maxBytes {
		return domain.ImagePayload{}, &domain.ImageLoadError{
			Path: path,
			Err:  fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrInvalidInput, info.Size(), l.maxBytes),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ImagePayload{}, &domain.ImageLoadError{Path: path, Err: err}
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return domain.ImagePayload{}, &domain.ImageLoadError{
			Path: path,
			Err:  fmt.Errorf("%w: %s is not an image (%s)", domain.ErrUnsupportedFormat, filepath.Base(path), mime),
		}
	}

	return domain.ImagePayload{Path: path, MIMEType: mime, Data: data}, nil
}
