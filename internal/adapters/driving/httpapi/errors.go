// Package httpapi exposes ingestion, retrieval and answering over HTTP/JSON.
package httpapi

import "errors"

var (
	ErrMissingPorts         = errors.New("httpapi: ports are required")
	ErrMissingQueue         = errors.New("httpapi: ingest queue is required")
	ErrMissingQueryServices = errors.New("httpapi: retrieval and answer services are required")
	ErrMissingStatusService = errors.New("httpapi: status service is required")
)
