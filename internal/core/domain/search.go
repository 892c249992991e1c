package domain

// VectorRecord is the persisted unit in a vector index.
// Records are never mutated in place; an upsert with the same ID replaces them.
type VectorRecord struct {
	// ID is unique across the index's lifetime.
	ID string

	// Embedding has exactly the index's declared dimension.
	Embedding []float32

	// Metadata is a copy of the originating chunk's metadata.
	Metadata ChunkMetadata

	// Document is the display text for the record.
	Document string
}

// VectorMatch is a single nearest-neighbour hit returned by an index.
type VectorMatch struct {
	ID       string
	Metadata ChunkMetadata
	Document string

	// Distance is the cosine distance to the query vector.
	Distance float64
}

// Score converts the match distance to a similarity where higher is better.
func (m VectorMatch) Score() float64 {
	return 1 - m.Distance
}

// RetrievedItem is a scored result of a retrieval query.
type RetrievedItem struct {
	// Content is the record's display text.
	Content string `json:"content"`

	// Metadata identifies the chunk the item came from.
	Metadata ChunkMetadata `json:"metadata"`

	// Score is the similarity, roughly in [0,1].
	Score float64 `json:"score"`
}
