// Package markdown extracts Markdown documents section by section.
package markdown

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

var (
	headingLine   = regexp.MustCompile(`^#{1,6}\s+`)
	codeBlock     = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode    = regexp.MustCompile("`[^`]+`")
	images        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquote    = regexp.MustCompile(`(?m)^>\s*`)
	horizontal    = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Extractor handles Markdown documents.
type Extractor struct{}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Extract returns one text chunk per heading section, plus a table chunk for
// each pipe table. Everything is on page 1.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	docID := domain.DocumentID(path)
	var chunks []domain.Chunk
	add := func(kind domain.ContentKind, content string) {
		chunks = append(chunks, domain.Chunk{
			DocID:   docID,
			Page:    1,
			Kind:    kind,
			Content: content,
			Metadata: domain.ChunkMetadata{
				Source:      path,
				PageNumber:  1,
				ContentType: kind,
				ElementID:   fmt.Sprintf("%s_el_%d", docID, len(chunks)),
			},
		})
	}

	content := strings.ToValidUTF8(strings.ReplaceAll(string(data), "\r\n", "\n"), "�")
	for _, section := range splitSections(content) {
		text, tables := separateTables(section)
		if text = stripMarkdown(text); text != "" {
			add(domain.KindText, text)
		}
		for _, table := range tables {
			add(domain.KindTable, table)
		}
	}
	return chunks, nil
}

// splitSections cuts the document before every heading line.
// Headings inside fenced code blocks are ignored.
func splitSections(content string) []string {
	var (
		sections []string
		current  []string
		fenced   bool
	)
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			fenced = !fenced
		}
		if !fenced && headingLine.MatchString(line) && len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		sections = append(sections, strings.Join(current, "\n"))
	}
	return sections
}

// separateTables pulls pipe tables out of a section.
// A table is a run of at least two consecutive lines starting with '|'.
func separateTables(section string) (string, []string) {
	var (
		text   []string
		tables []string
		run    []string
	)
	flush := func() {
		if len(run) >= 2 {
			tables = append(tables, strings.Join(run, "\n"))
		} else {
			text = append(text, run...)
		}
		run = nil
	}
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "|") {
			run = append(run, strings.TrimSpace(line))
			continue
		}
		flush()
		text = append(text, line)
	}
	flush()
	return strings.Join(text, "\n"), tables
}

// stripMarkdown removes common markdown formatting for plain text content.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = strings.ReplaceAll(content, "_", " ")

	content = blockquote.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
