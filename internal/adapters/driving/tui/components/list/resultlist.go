// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/mmrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// linesPerItem is the height of one rendered item.
const linesPerItem = 2

// ResultList displays retrieved chunks in a navigable list.
type ResultList struct {
	items    []domain.RetrievedItem
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the result list.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the visible window of items around the selection.
func (r *ResultList) View() string {
	if len(r.items) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := make([]string, 0, len(r.items)*linesPerItem+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Retrieved (%d)", len(r.items))), "")

	visible := max((r.height-2)/linesPerItem, 1)
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.items))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderItem(i, &r.items[i]))
	}
	return strings.Join(lines, "\n")
}

func (r *ResultList) renderItem(index int, item *domain.RetrievedItem) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	m := item.Metadata
	title := m.Source
	if m.PageNumber > 0 {
		title = fmt.Sprintf("%s p.%d", title, m.PageNumber)
	}
	title = clip(title, max(r.width-24, 10))

	var head string
	if index == r.selected {
		head = r.styles.Selected.Render(indicator+title) + " "
	} else {
		head = r.styles.Normal.Render(indicator+title) + " "
	}
	head += r.styles.Kind(m.ContentType) + " " + r.styles.Score.Render(fmt.Sprintf("%.2f", item.Score))

	preview := item.Content
	if m.ContentType == domain.KindImage && m.ImagePath != "" {
		preview = m.ImagePath
	}
	preview = clip(strings.Join(strings.Fields(preview), " "), max(r.width-6, 20))

	return head + "\n" + r.styles.Muted.Render("    "+preview)
}

// clip cuts s to n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// SetItems replaces the items and resets the selection.
func (r *ResultList) SetItems(items []domain.RetrievedItem) {
	r.items = items
	r.selected = 0
}

// Items returns the current items.
func (r *ResultList) Items() []domain.RetrievedItem {
	return r.items
}

// Selected returns the index of the selected item.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index when it is in range.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.items) {
		r.selected = index
	}
}

// SelectedItem returns the selected item, or nil if none.
func (r *ResultList) SelectedItem() *domain.RetrievedItem {
	if r.selected < 0 || r.selected >= len(r.items) {
		return nil
	}
	return &r.items[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.items)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of items.
func (r *ResultList) Count() int {
	return len(r.items)
}

// IsEmpty returns whether the list is empty.
func (r *ResultList) IsEmpty() bool {
	return len(r.items) == 0
}
