// Package pdf extracts text, tables and images from PDF files using the
// poppler command line tools.
//
// Text and images are extracted in two independent passes: a failure in one
// still returns the chunks of the other. Extracted images are written under
// the processed data directory so that generation can load them later.
package pdf

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint for file names, not security
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/extractors/cmdrun"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

const (
	toolInfo   = "pdfinfo"
	toolText   = "pdftotext"
	toolImages = "pdfimages"
)

// ErrPDFToolNotFound indicates the poppler tools are not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler to extract PDFs")

var imageFileName = regexp.MustCompile(`-(\d+)-(\d+)\.png$`)

// OCR recognises text in an image file.
// An empty result means nothing was recognised.
type OCR interface {
	Recognise(ctx context.Context, path string) string
}

// Extractor handles PDF documents.
type Extractor struct {
	runner   cmdrun.Runner
	imageDir string
	check    func() error
	ocr      OCR
}

// New creates a PDF extractor that writes images to processedDir/images.
func New(processedDir string) *Extractor {
	return &Extractor{
		runner:   cmdrun.Exec{},
		imageDir: filepath.Join(processedDir, "images"),
		check:    CheckAvailable,
	}
}

// NewWithRunner creates a PDF extractor with a custom command runner.
// The PATH check is skipped since the runner decides what exists.
func NewWithRunner(runner cmdrun.Runner, processedDir string) *Extractor {
	return &Extractor{
		runner:   runner,
		imageDir: filepath.Join(processedDir, "images"),
		check:    func() error { return nil },
	}
}

// SetOCR enables text recognition on extracted images.
func (e *Extractor) SetOCR(ocr OCR) {
	e.ocr = ocr
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".pdf"}
}

// CheckAvailable verifies that the poppler tools are on PATH.
func CheckAvailable() error {
	if err := cmdrun.Available(toolInfo, toolText, toolImages); err != nil {
		return fmt.Errorf("%w (%v)", ErrPDFToolNotFound, err)
	}
	return nil
}

// InstallInstructions returns platform hints for installing poppler.
func InstallInstructions() string {
	return `PDF extraction requires pdftotext, pdfinfo and pdfimages (poppler).

  macOS:          brew install poppler
  Debian/Ubuntu:  apt install poppler-utils
  Fedora:         dnf install poppler-utils`
}

// Extract returns the text and table chunks of every page followed by one
// image chunk per embedded image.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Chunk, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	docID := domain.DocumentID(path)
	logger.Debug("Processing document: %s", docID)

	chunks, textErr := e.extractText(ctx, path, docID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if textErr != nil {
		logger.Warn("Text extraction failed for %s (text and tables may be missing): %v", docID, textErr)
	}

	images, imageErr := e.extractImages(ctx, path, docID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if imageErr != nil {
		logger.Warn("Image extraction failed for %s: %v", docID, imageErr)
	}

	chunks = append(chunks, images...)
	if len(chunks) == 0 && textErr != nil && imageErr != nil {
		return nil, errors.Join(textErr, imageErr)
	}
	logger.Debug("Extracted %d elements from %s", len(chunks), docID)
	return chunks, nil
}

func (e *Extractor) extractText(ctx context.Context, path, docID string) ([]domain.Chunk, error) {
	pages, err := e.pageCount(ctx, path)
	if err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for page := 1; page <= pages; page++ {
		n := strconv.Itoa(page)
		out, err := e.runner.Run(ctx, toolText, "-layout", "-enc", "UTF-8", "-f", n, "-l", n, path, "-")
		if err != nil {
			return chunks, fmt.Errorf("pdftotext failed on page %d: %w", page, err)
		}
		for _, el := range splitElements(string(out)) {
			chunks = append(chunks, domain.Chunk{
				DocID:   docID,
				Page:    page,
				Kind:    el.kind,
				Content: el.content,
				Metadata: domain.ChunkMetadata{
					Source:      path,
					PageNumber:  page,
					ContentType: el.kind,
					ElementID:   fmt.Sprintf("%s_el_%d", docID, len(chunks)),
				},
			})
		}
	}
	return chunks, nil
}

func (e *Extractor) pageCount(ctx context.Context, path string) (int, error) {
	out, err := e.runner.Run(ctx, toolInfo, path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo failed: %w", err)
	}
	return parsePageCount(string(out))
}

func parsePageCount(info string) (int, error) {
	for _, line := range strings.Split(info, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Pages:")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return 0, fmt.Errorf("pdfinfo page count %q: %w", strings.TrimSpace(rest), err)
		}
		return n, nil
	}
	return 0, errors.New("pdfinfo reported no page count")
}

func (e *Extractor) extractImages(ctx context.Context, path, docID string) ([]domain.Chunk, error) {
	tmp, err := os.MkdirTemp("", "mmrag-pdfimages-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	if _, err := e.runner.Run(ctx, toolImages, "-png", "-p", path, filepath.Join(tmp, "img")); err != nil {
		return nil, fmt.Errorf("pdfimages failed: %w", err)
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(e.imageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	prefix := strings.ReplaceAll(docID, ".", "_")
	perPage := make(map[int]int)
	var chunks []domain.Chunk
	for _, entry := range entries {
		m := imageFileName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		page, _ := strconv.Atoi(m[1])
		if page < 1 {
			continue
		}

		data, err := os.ReadFile(filepath.Join(tmp, entry.Name()))
		if err != nil {
			return chunks, err
		}
		sum := md5.Sum(data) //nolint:gosec // see import
		idx := perPage[page]
		perPage[page]++

		name := fmt.Sprintf("%s_p%d_img%d_%s.png", prefix, page, idx, hex.EncodeToString(sum[:])[:8])
		dest := filepath.Join(e.imageDir, name)
		if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
			if err := os.WriteFile(dest, data, 0o644); err != nil { //nolint:gosec // images are not secret
				return chunks, fmt.Errorf("write %s: %w", dest, err)
			}
		}

		var ocrText string
		if e.ocr != nil {
			ocrText = e.ocr.Recognise(ctx, dest)
		}
		chunks = append(chunks, domain.Chunk{
			DocID:   docID,
			Page:    page,
			Kind:    domain.KindImage,
			Content: dest,
			AuxText: ocrText,
			Metadata: domain.ChunkMetadata{
				Source:      path,
				PageNumber:  page,
				ContentType: domain.KindImage,
				ImagePath:   dest,
				OCRText:     ocrText,
			},
		})
	}
	return chunks, nil
}
