// Package domain defines the core entities of the multimodal retrieval pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A unit of extracted content (text, table or image)
//   - VectorRecord: The persisted unit in a vector index
//   - RetrievedItem: A scored result of a retrieval query
//   - FusedContext: The text and image payload handed to generation
//   - IngestRun: The per-file outcomes of an ingestion request
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
