package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// ContextFusion prepares retrieved items for a multimodal generation call.
// It never calls the generation service itself.
type ContextFusion struct {
	images driven.ImageLoader
}

// NewContextFusion creates a fusion step that loads images through loader.
func NewContextFusion(loader driven.ImageLoader) *ContextFusion {
	return &ContextFusion{images: loader}
}

// Fuse builds the text context and image payloads in retrieval order.
// An image that cannot be loaded is logged and omitted; the request continues.
func (f *ContextFusion) Fuse(ctx context.Context, items []domain.RetrievedItem) domain.FusedContext {
	var blocks []string
	fused := domain.FusedContext{
		Sources: make([]domain.ChunkMetadata, 0, len(items)),
	}

	for _, item := range items {
		meta := item.Metadata
		fused.Sources = append(fused.Sources, meta)

		switch meta.ContentType {
		case domain.KindText, domain.KindTable:
			blocks = append(blocks, fmt.Sprintf("Source (%s, Page %d):\n%s", meta.Source, meta.PageNumber, item.Content))
		case domain.KindImage:
			payload, err := f.images.Load(ctx, meta.ImagePath)
			if err != nil {
				logger.Warn("Omitting image: %v", &domain.ImageLoadError{Path: meta.ImagePath, Err: err})
				continue
			}
			fused.Images = append(fused.Images, payload)
			blocks = append(blocks, fmt.Sprintf("Image Source (%s, Page %d) provided in visual context.",
				meta.Source, meta.PageNumber))
		default:
			logger.Debug("Ignoring item with unknown content type %q", meta.ContentType)
		}
	}

	fused.Text = strings.Join(blocks, "\n\n")
	return fused
}
