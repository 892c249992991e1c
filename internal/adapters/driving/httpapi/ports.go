package httpapi

import (
	"net/http"

	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
)

// FileFinder expands requested paths into ingestible files.
type FileFinder interface {
	Find(paths ...string) ([]string, error)
}

// Ports aggregates the services the API drives.
type Ports struct {
	// Queue accepts background ingestion.
	Queue driving.IngestQueue

	// Retrieval ranks indexed items.
	Retrieval driving.RetrievalService

	// Answer runs retrieval and generation.
	Answer driving.AnswerService

	// Status reports index readiness.
	Status driving.StatusService

	// Files expands directories. Optional; without it paths are submitted as given.
	Files FileFinder

	// Metrics serves /metrics. Optional.
	Metrics http.Handler

	// DefaultDir is ingested when a request names no files.
	DefaultDir string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p == nil:
		return ErrMissingPorts
	case p.Queue == nil:
		return ErrMissingQueue
	case p.Retrieval == nil, p.Answer == nil:
		return ErrMissingQueryServices
	case p.Status == nil:
		return ErrMissingStatusService
	}
	return nil
}
