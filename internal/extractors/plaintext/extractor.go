// Package plaintext extracts plain text files as a single chunk.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".txt"}
}

// Extract returns the whole file as one text chunk on page 1.
// Invalid UTF-8 is replaced. A blank file yields no chunks.
// Splitting long text is left to the post-processor pipeline.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	content := string(data)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	docID := domain.DocumentID(path)
	return []domain.Chunk{{
		DocID:   docID,
		Page:    1,
		Kind:    domain.KindText,
		Content: content,
		Metadata: domain.ChunkMetadata{
			Source:      path,
			PageNumber:  1,
			ContentType: domain.KindText,
			ElementID:   docID + "_el_0",
		},
	}}, nil
}
