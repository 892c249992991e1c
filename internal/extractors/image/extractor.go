// Package image extracts standalone image files as a single image chunk,
// optionally with OCR text from tesseract.
package image

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/extractors/cmdrun"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

const toolOCR = "tesseract"

// Extractor handles image documents.
type Extractor struct {
	runner cmdrun.Runner
	ocr    bool
	check  func() error
}

// New creates an image extractor. When ocr is set, tesseract is run on each image.
func New(ocr bool) *Extractor {
	return &Extractor{
		runner: cmdrun.Exec{},
		ocr:    ocr,
		check:  func() error { return cmdrun.Available(toolOCR) },
	}
}

// NewWithRunner creates an image extractor with a custom command runner.
func NewWithRunner(runner cmdrun.Runner, ocr bool) *Extractor {
	return &Extractor{
		runner: runner,
		ocr:    ocr,
		check:  func() error { return nil },
	}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".png", ".jpg", ".jpeg"}
}

// Extract returns one image chunk on page 1 pointing at the file itself.
// OCR failures leave the chunk without recognised text.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}

	var ocrText string
	if e.ocr {
		ocrText = e.Recognise(ctx, path)
	}

	return []domain.Chunk{{
		DocID:   domain.DocumentID(path),
		Page:    1,
		Kind:    domain.KindImage,
		Content: path,
		AuxText: ocrText,
		Metadata: domain.ChunkMetadata{
			Source:      path,
			PageNumber:  1,
			ContentType: domain.KindImage,
			ImagePath:   path,
			OCRText:     ocrText,
		},
	}}, nil
}

// Recognise runs OCR and returns the recognised words joined by single spaces.
// Any failure is logged and yields an empty string.
func (e *Extractor) Recognise(ctx context.Context, path string) string {
	if err := e.check(); err != nil {
		logger.Debug("Skipping OCR for %s: %v", path, err)
		return ""
	}
	out, err := e.runner.Run(ctx, toolOCR, path, "stdout")
	if err != nil {
		logger.Warn("OCR failed for %s: %v", path, err)
		return ""
	}
	return strings.Join(strings.Fields(string(out)), " ")
}
