package driven

import "time"

// PipelineMetrics receives counters from the ingestion and query paths.
type PipelineMetrics interface {
	// ChunksEncoded records successfully embedded chunks of a kind.
	ChunksEncoded(kind string, n int)

	// ChunkEncodeFailed records a chunk skipped for an encoding error.
	ChunkEncodeFailed(kind string)

	// BatchUpserted records a committed batch and its size.
	BatchUpserted(size int, took time.Duration)

	// BatchFailed records a batch dropped after retries.
	BatchFailed(size int)

	// FileProcessed records a file's terminal status.
	FileProcessed(status string, took time.Duration)

	// QueryServed records a retrieval and its result count.
	QueryServed(results int, took time.Duration)
}
