package mcp

import (
	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
)

// FileFinder expands requested paths into ingestible files.
type FileFinder interface {
	Find(paths ...string) ([]string, error)
}

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval ranks indexed items.
	Retrieval driving.RetrievalService

	// Answer answers questions over retrieved context.
	Answer driving.AnswerService

	// Status reports index readiness.
	Status driving.StatusService

	// Ingest processes files synchronously.
	Ingest driving.IngestionService

	// Queue accepts background ingestion.
	Queue driving.IngestQueue

	// Files expands directories before ingestion.
	Files FileFinder
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// The rest are optional; their tools report ErrNotConfigured.
	return nil
}
