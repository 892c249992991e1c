package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidK indicates a retrieval was requested with a non-positive result count.
	ErrInvalidK = errors.New("k must be greater than zero")

	// ErrUnsupportedFormat indicates no extractor handles the file's extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	// Mixed dimensions in one index are a fatal consistency violation.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrBatchTooLarge indicates an upsert above the configured maximum batch size.
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")

	// ErrImageEncodingUnsupported indicates the embedder cannot encode images.
	ErrImageEncodingUnsupported = errors.New("image encoding not supported by embedder")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the generation service is not configured.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrQueueFull indicates the ingestion queue cannot accept more work.
	ErrQueueFull = errors.New("ingestion queue full")

	// ErrQueueStopped indicates the ingestion queue is not running.
	ErrQueueStopped = errors.New("ingestion queue stopped")
)

// ExtractionError scopes a failure to one source file.
// The file is skipped and other files continue.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EncodingError scopes a failure to one chunk.
// The chunk is skipped and the rest of its batch continues.
type EncodingError struct {
	ChunkID string
	Err     error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding chunk %s: %v", e.ChunkID, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// IndexWriteError scopes a failure to one upsert batch.
type IndexWriteError struct {
	// BatchIndex is the zero-based batch position within the file, or -1 when unknown.
	BatchIndex int
	Size       int
	Err        error
}

func (e *IndexWriteError) Error() string {
	if e.BatchIndex < 0 {
		return fmt.Sprintf("index write of %d records: %v", e.Size, e.Err)
	}
	return fmt.Sprintf("index write of batch %d (%d records): %v", e.BatchIndex, e.Size, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }

// IndexReadError scopes a failure to one query.
// Callers surface it as an empty result rather than a hard failure.
type IndexReadError struct {
	Err error
}

func (e *IndexReadError) Error() string {
	return fmt.Sprintf("index read: %v", e.Err)
}

func (e *IndexReadError) Unwrap() error { return e.Err }

// ImageLoadError scopes a failure to one image during context fusion.
type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("loading image %s: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }
