package extractors

import (
	"github.com/custodia-labs/mmrag/internal/extractors/cmdrun"
	"github.com/custodia-labs/mmrag/internal/extractors/image"
	"github.com/custodia-labs/mmrag/internal/extractors/markdown"
	"github.com/custodia-labs/mmrag/internal/extractors/pdf"
	"github.com/custodia-labs/mmrag/internal/extractors/plaintext"
)

// Config controls the default extractor set.
type Config struct {
	// ProcessedDir receives images extracted from PDFs, under images/.
	ProcessedDir string

	// OCR runs tesseract over standalone and extracted images.
	OCR bool

	// Runner overrides the external tool runner. Nil means os/exec.
	Runner cmdrun.Runner
}

// NewDefaultRegistry registers every built-in extractor.
func NewDefaultRegistry(cfg Config) *Registry {
	var (
		img  *image.Extractor
		pdfx *pdf.Extractor
	)
	if cfg.Runner != nil {
		img = image.NewWithRunner(cfg.Runner, cfg.OCR)
		pdfx = pdf.NewWithRunner(cfg.Runner, cfg.ProcessedDir)
	} else {
		img = image.New(cfg.OCR)
		pdfx = pdf.New(cfg.ProcessedDir)
	}
	if cfg.OCR {
		pdfx.SetOCR(img)
	}

	return NewRegistry(
		plaintext.New(),
		markdown.New(),
		pdfx,
		img,
	)
}
