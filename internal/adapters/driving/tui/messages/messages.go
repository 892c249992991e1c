// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// Mode selects what a submitted question produces.
type Mode int

const (
	// ModeAnswer retrieves context and generates an answer.
	ModeAnswer Mode = iota
	// ModeRetrieve shows the retrieved chunks without generation.
	ModeRetrieve
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeAnswer:
		return "answer"
	case ModeRetrieve:
		return "retrieve"
	default:
		return "unknown"
	}
}

// Next returns the other mode.
func (m Mode) Next() Mode {
	if m == ModeAnswer {
		return ModeRetrieve
	}
	return ModeAnswer
}

// AnswerCompleted carries a generated answer back to the model.
type AnswerCompleted struct {
	Query  string
	Answer *domain.Answer
	Err    error
}

// RetrievalCompleted carries retrieved chunks back to the model.
type RetrievalCompleted struct {
	Query string
	Items []domain.RetrievedItem
	Err   error
}

// StatusLoaded carries the index status.
type StatusLoaded struct {
	Status *domain.IndexStatus
	Err    error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewAsk is the question input and results view.
	ViewAsk ViewType = iota
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewAsk:
		return "ask"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
