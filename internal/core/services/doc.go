// Package services implements the driving port interfaces.
//
// The ingestion side assigns chunk identities, batches embeddings and
// upserts them into a vector index, one isolated unit of work per file.
// The query side embeds a question, retrieves nearest records, fuses them
// into a multimodal context and asks a generation backend for an answer.
//
// Services depend only on driven ports; adapters are injected at start-up.
package services
