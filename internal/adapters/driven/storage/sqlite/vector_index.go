package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/custodia-labs/mmrag/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

const metaDimensions = "dimensions"

// VectorIndex implements driven.VectorIndex with an exact cosine scan.
type VectorIndex struct {
	store    *Store
	dims     int
	maxBatch int
}

var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex opens the vector table for vectors of the given dimension.
// The first call on a fresh database records the dimension; later calls with
// another dimension fail with domain.ErrDimensionMismatch.
// maxBatch <= 0 disables the batch size limit.
func (s *Store) VectorIndex(ctx context.Context, dims, maxBatch int) (*VectorIndex, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, dims)
	}

	var stored string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", metaDimensions).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO index_meta (key, value) VALUES (?, ?)", metaDimensions, strconv.Itoa(dims)); err != nil {
			return nil, fmt.Errorf("recording index dimension: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("reading index dimension: %w", err)
	default:
		if n, _ := strconv.Atoi(stored); n != dims {
			return nil, fmt.Errorf("%w: index at %s holds %s-dimensional vectors, embedder produces %d",
				domain.ErrDimensionMismatch, s.path, stored, dims)
		}
	}

	return &VectorIndex{store: s, dims: dims, maxBatch: maxBatch}, nil
}

// Upsert inserts or replaces records by ID in a single transaction.
func (v *VectorIndex) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := vecmath.CheckRecords(records, v.dims, v.maxBatch); err != nil {
		return err
	}

	writeErr := func(err error) error {
		return &domain.IndexWriteError{BatchIndex: -1, Size: len(records), Err: err}
	}

	v.store.writeMu.Lock()
	defer v.store.writeMu.Unlock()

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(fmt.Errorf("beginning transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, embedding, metadata, document, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			document = excluded.document,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return writeErr(fmt.Errorf("preparing upsert: %w", err))
	}
	defer stmt.Close()

	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return writeErr(fmt.Errorf("marshaling metadata for %s: %w", r.ID, err))
		}
		if _, err := stmt.ExecContext(ctx, r.ID, float32SliceToBytes(r.Embedding), string(metadataJSON), r.Document); err != nil {
			return writeErr(fmt.Errorf("upserting %s: %w", r.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return writeErr(fmt.Errorf("committing upsert: %w", err))
	}
	return nil
}

// Query scans every record and returns the k nearest by cosine distance.
func (v *VectorIndex) Query(ctx context.Context, embedding []float32, k int) ([]domain.VectorMatch, error) {
	if err := vecmath.CheckQuery(embedding, k, v.dims); err != nil {
		return nil, err
	}

	rows, err := v.store.db.QueryContext(ctx, "SELECT id, embedding, metadata, document FROM vectors")
	if err != nil {
		return nil, &domain.IndexReadError{Err: fmt.Errorf("querying vectors: %w", err)}
	}
	defer rows.Close()

	top := vecmath.NewTopK(k)
	for rows.Next() {
		var (
			id, metadataJSON, document string
			blob                       []byte
		)
		if err := rows.Scan(&id, &blob, &metadataJSON, &document); err != nil {
			return nil, &domain.IndexReadError{Err: fmt.Errorf("scanning vector: %w", err)}
		}
		vec := bytesToFloat32Slice(blob)
		if len(vec) != v.dims {
			return nil, &domain.IndexReadError{
				Err: fmt.Errorf("%w: stored record %s has %d dimensions", domain.ErrDimensionMismatch, id, len(vec)),
			}
		}

		match := domain.VectorMatch{ID: id, Document: document, Distance: vecmath.CosineDistance(embedding, vec)}
		if err := json.Unmarshal([]byte(metadataJSON), &match.Metadata); err != nil {
			return nil, &domain.IndexReadError{Err: fmt.Errorf("unmarshaling metadata for %s: %w", id, err)}
		}
		top.Push(match)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.IndexReadError{Err: fmt.Errorf("iterating vectors: %w", err)}
	}

	return top.Sorted(), nil
}

// Count returns the number of stored records.
func (v *VectorIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, &domain.IndexReadError{Err: fmt.Errorf("counting vectors: %w", err)}
	}
	return n, nil
}

// Dimensions returns the declared vector dimension.
func (v *VectorIndex) Dimensions() int {
	return v.dims
}

// Close is a no-op; the Store owns the database connection.
func (v *VectorIndex) Close() error {
	return nil
}
