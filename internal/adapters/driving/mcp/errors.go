// Package mcp provides an MCP (Model Context Protocol) server adapter for mmrag.
// It lets AI assistants ingest files into the multimodal index and ask
// grounded questions over it.
package mcp

import "errors"

var (
	// ErrMissingRetrievalService is returned when the retrieval service is not provided.
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

	// ErrNotConfigured is returned by tools whose backing service is absent.
	ErrNotConfigured = errors.New("mcp: service not configured")
)
