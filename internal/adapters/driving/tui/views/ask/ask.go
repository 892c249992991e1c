// Package ask provides the question view for the TUI.
package ask

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/mmrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/mmrag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/mmrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/mmrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/mmrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/mmrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
)

// maxK bounds the retrieval depth adjustable from the keyboard.
const maxK = 50

// View asks questions and shows either the answer with its sources or the
// retrieved chunks.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	list      *list.ResultList
	statusbar *status.Bar

	answerService    driving.AnswerService
	retrievalService driving.RetrievalService
	ctx              context.Context

	mode   messages.Mode
	k      int
	answer *domain.Answer

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing, false = reading results
}

// NewView creates a new ask view. The retrieval service may be nil, in which
// case retrieve mode reports an error.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	answerService driving.AnswerService,
	retrievalService driving.RetrievalService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:           s,
		keymap:           km,
		input:            input.NewQuestionInput(s),
		list:             list.NewResultList(s),
		statusbar:        status.NewBar(s, km),
		answerService:    answerService,
		retrievalService: retrievalService,
		ctx:              context.Background(),
		k:                domain.DefaultResultCount,
		width:            80,
		height:           24,
		focusInput:       true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		v.handleAnswer(msg)
		return v, nil

	case messages.RetrievalCompleted:
		v.handleRetrieval(msg)
		return v, nil

	case messages.StatusLoaded:
		if msg.Err == nil {
			v.statusbar.SetIndexStatus(msg.Status)
		}
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.focusInput {
		return v.handleInputKey(msg)
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.Back),
		keymap.Matches(msg.String(), v.keymap.NewQuestion):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case keymap.Matches(msg.String(), v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(msg.String(), v.keymap.Down):
		v.list.MoveDown()
	case keymap.Matches(msg.String(), v.keymap.More):
		v.SetK(v.k + 1)
	case keymap.Matches(msg.String(), v.keymap.Fewer):
		v.SetK(v.k - 1)
	case keymap.Matches(msg.String(), v.keymap.ToggleMode):
		v.SetMode(v.mode.Next())
	case keymap.Matches(msg.String(), v.keymap.Help):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewHelp} }
	case keymap.Matches(msg.String(), v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	}
	return v, nil
}

func (v *View) handleInputKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		return v, func() tea.Msg { return messages.Quit{} }
	case tea.KeyTab:
		v.SetMode(v.mode.Next())
		return v, nil
	case tea.KeyEnter:
		query := strings.TrimSpace(v.input.Value())
		if query == "" {
			return v, nil
		}
		v.focusInput = false
		v.input.Blur()
		v.err = nil
		v.statusbar.SetState(status.StateThinking)
		if v.mode == messages.ModeRetrieve {
			v.statusbar.SetMessage("Retrieving...")
			return v, v.performRetrieve(query)
		}
		v.statusbar.SetMessage("Thinking...")
		return v, v.performAnswer(query)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) performAnswer(query string) tea.Cmd {
	ctx, k := v.ctx, v.k
	return func() tea.Msg {
		if v.answerService == nil {
			return messages.ErrorOccurred{Err: ErrNoAnswerService}
		}
		answer, err := v.answerService.Answer(ctx, query, k)
		return messages.AnswerCompleted{Query: query, Answer: answer, Err: err}
	}
}

func (v *View) performRetrieve(query string) tea.Cmd {
	ctx, k := v.ctx, v.k
	return func() tea.Msg {
		if v.retrievalService == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}
		items, err := v.retrievalService.Retrieve(ctx, query, k)
		return messages.RetrievalCompleted{Query: query, Items: items, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	v.err = nil
	v.answer = msg.Answer
	v.list.SetItems(nil)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetMessage("")
	v.statusbar.SetResultCount(len(msg.Answer.Sources))
}

func (v *View) handleRetrieval(msg messages.RetrievalCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	v.err = nil
	v.answer = nil
	v.list.SetItems(msg.Items)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetMessage("")
	v.statusbar.SetResultCount(len(msg.Items))
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections,
		v.styles.Title.Render("mmrag")+"  "+v.styles.Muted.Render(v.mode.String()+" mode"),
		"",
		v.input.View(),
		"",
	)

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	switch {
	case v.answer != nil:
		sections = append(sections, v.renderAnswer())
	case !v.list.IsEmpty() || v.mode == messages.ModeRetrieve:
		sections = append(sections, v.list.View())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderAnswer() string {
	width := max(v.width-4, 20)
	lines := []string{v.styles.Answer.Width(width).Render(v.answer.Text)}

	if len(v.answer.Sources) > 0 {
		lines = append(lines, "", v.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(v.answer.Sources))))
		for i, src := range v.answer.Sources {
			cite := src.DocumentID
			if src.PageNumber > 0 {
				cite = fmt.Sprintf("%s p.%d", cite, src.PageNumber)
			}
			line := fmt.Sprintf("  %d. %s %s", i+1, v.styles.Citation.Render(cite), v.styles.Kind(src.ContentType))
			if src.ImagePath != "" {
				line += " " + v.styles.Muted.Render(src.ImagePath)
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
}

// SetMode switches between answer and retrieve mode.
func (v *View) SetMode(mode messages.Mode) {
	v.mode = mode
	if mode == messages.ModeRetrieve {
		v.input.SetLabel("Retrieve")
	} else {
		v.input.SetLabel("Ask")
	}
	v.input.SetWidth(v.width)
}

// Mode returns the current mode.
func (v *View) Mode() messages.Mode {
	return v.mode
}

// SetK sets the retrieval depth, clamped to [1, maxK].
func (v *View) SetK(k int) {
	v.k = min(max(k, 1), maxK)
	v.statusbar.SetK(v.k)
}

// K returns the retrieval depth.
func (v *View) K() int {
	return v.k
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current question.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the question text.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Answer returns the last answer, if any.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// Items returns the last retrieved items.
func (v *View) Items() []domain.RetrievedItem {
	return v.list.Items()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset returns the view to input mode with no results.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetItems(nil)
	v.answer = nil
	v.err = nil
	v.statusbar.Clear()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
