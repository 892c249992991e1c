package ask

import "errors"

// Error definitions for the ask view.
var (
	// ErrNoAnswerService indicates that no answer service was provided.
	ErrNoAnswerService = errors.New("answer service is required")

	// ErrNoRetrievalService indicates retrieve mode has no service behind it.
	ErrNoRetrievalService = errors.New("retrieval service is not configured")
)
