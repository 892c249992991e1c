// Package tui provides an interactive terminal user interface for asking
// questions over the index.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Answer retrieves context and generates answers. Required.
	Answer driving.AnswerService

	// Retrieval backs retrieve mode. Optional.
	Retrieval driving.RetrievalService

	// Status shows index readiness in the status bar. Optional.
	Status driving.StatusService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}
