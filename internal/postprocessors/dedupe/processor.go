// Package dedupe drops text chunks that would only waste embedding calls.
package dedupe

import (
	"context"
	"strings"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// Processor removes text and table chunks that are blank or repeat an
// earlier chunk of the same page word for word. Image chunks always pass.
type Processor struct{}

// New returns a dedupe processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "dedupe"
}

type pageKey struct {
	doc  string
	page int
	kind domain.ContentKind
	text string
}

// Process keeps the first occurrence of each chunk, in order.
func (p *Processor) Process(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	seen := make(map[pageKey]bool, len(chunks))
	out := chunks[:0:0]
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Kind == domain.KindImage {
			out = append(out, c)
			continue
		}
		text := strings.Join(strings.Fields(c.Content), " ")
		if text == "" {
			continue
		}
		key := pageKey{doc: c.DocID, page: c.Page, kind: c.Kind, text: text}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out, nil
}
