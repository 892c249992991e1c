// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - MultimodalEmbedder: Encodes text and images into one vector space
//   - VectorIndex: Stores records and answers nearest-neighbour queries
//   - ContentExtractor: Turns a source file into chunks
//   - ExtractorRegistry: Selects the extractor for a file
//   - ImageLoader: Reads image bytes for multimodal prompting
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - GenerationService: Answers a query from fused context. Without it, only retrieval is available.
//   - IngestRunStore: Persists ingestion outcomes. Without it, runs are kept in memory only.
//   - PostProcessor: Splits or rewrites chunks between extraction and embedding.
//   - PipelineMetrics: Receives pipeline counters.
//   - PromptStore: User-editable prompt templates. Without it, built-in defaults are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
