package pdf

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// columnGap matches two cells separated by a run of spaces in -layout output.
var columnGap = regexp.MustCompile(`\S {2,}\S`)

type element struct {
	kind    domain.ContentKind
	content string
}

// splitElements cuts one page of layout text into paragraph elements.
// Blank lines separate elements. An element whose lines are mostly
// column-aligned is a table and keeps its line structure; prose is reflowed
// onto a single line.
func splitElements(page string) []element {
	page = strings.ReplaceAll(page, "\f", "")
	page = strings.ReplaceAll(page, "\r\n", "\n")

	var (
		elements []element
		block    []string
	)
	flush := func() {
		if len(block) == 0 {
			return
		}
		if isTabular(block) {
			elements = append(elements, element{kind: domain.KindTable, content: dedent(block)})
		} else {
			elements = append(elements, element{
				kind:    domain.KindText,
				content: strings.Join(strings.Fields(strings.Join(block, " ")), " "),
			})
		}
		block = nil
	}
	for _, line := range strings.Split(page, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()
	return elements
}

func isTabular(lines []string) bool {
	if len(lines) < 2 {
		return false
	}
	aligned := 0
	for _, line := range lines {
		if columnGap.MatchString(strings.TrimSpace(line)) {
			aligned++
		}
	}
	return aligned*2 > len(lines)
}

// dedent strips the common leading indentation and trailing spaces.
func dedent(lines []string) string {
	indent := -1
	for _, line := range lines {
		n := len(line) - len(strings.TrimLeft(line, " "))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.TrimRight(line[indent:], " \t")
	}
	return strings.Join(out, "\n")
}
