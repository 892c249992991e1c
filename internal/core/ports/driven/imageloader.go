package driven

import (
	"context"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// ImageLoader reads image bytes referenced by chunk metadata.
type ImageLoader interface {
	// Load returns the image content and its detected MIME type.
	Load(ctx context.Context, path string) (domain.ImagePayload, error)
}
