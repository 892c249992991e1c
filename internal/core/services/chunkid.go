package services

import (
	"fmt"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// IdentifiedChunk pairs a chunk with the ID of the record it will become.
type IdentifiedChunk struct {
	ID    string
	Chunk domain.Chunk
}

// ChunkID derives a record ID from a chunk and its zero-based position in the
// extraction output of its file: "<docId>_<seq>_<kind>_<page>".
//
// IDs are position based. Re-ingesting an unchanged extraction replaces the
// same records; a reordered extraction overwrites records by position.
func ChunkID(c domain.Chunk, seq int) string {
	return fmt.Sprintf("%s_%d_%s_%d", c.DocID, seq, c.Kind, c.Page)
}

// AssignIDs numbers chunks in order and returns them with their IDs.
func AssignIDs(chunks []domain.Chunk) []IdentifiedChunk {
	out := make([]IdentifiedChunk, len(chunks))
	for i, c := range chunks {
		out[i] = IdentifiedChunk{ID: ChunkID(c, i), Chunk: c}
	}
	return out
}
