// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// MultimodalEmbedder maps text and images into a shared fixed-dimension vector space.
//
// Both entry points return one vector per input, in input order, and every
// vector has length Dimensions(). A shared space is required: a text query
// must be comparable with an image embedding.
//
// Implementations may include:
//   - Jina (jina-clip-v2, native text and image encoders)
//   - Ollama (text embedding model plus a vision model that captions images)
//   - OpenAI (text-embedding-3-* plus a vision chat model that captions images)
type MultimodalEmbedder interface {
	// EncodeText embeds each string. Empty strings are embedded like any other.
	EncodeText(ctx context.Context, texts []string) ([][]float32, error)

	// EncodeImage embeds each image file referenced by path.
	EncodeImage(ctx context.Context, imagePaths []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	// This is determined by the model and must match the VectorIndex.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
