// Package storage opens the configured vector index together with a run store.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/mmrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mmrag/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/mmrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// Backend bundles an open vector index with the store that records ingestion runs.
type Backend struct {
	Index driven.VectorIndex
	Runs  driven.IngestRunStore
	Kind  domain.IndexBackend

	closers []func() error
}

// Close releases the index and any database behind it.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Open creates the backend named by settings.
//
// The memory backend keeps runs in memory too. The sqlite backend keeps vectors
// and runs in one database under dataDir (or settings.Path when set). The qdrant
// backend stores vectors remotely and runs in the local sqlite database.
func Open(ctx context.Context, settings domain.IndexSettings, dataDir string, dims int) (*Backend, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d", domain.ErrInvalidInput, dims)
	}
	maxBatch := settings.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = domain.DefaultMaxBatchSize
	}
	if settings.Path != "" {
		dataDir = settings.Path
	}

	switch settings.Backend {
	case domain.IndexBackendMemory:
		idx := memory.NewVectorIndex(dims, maxBatch)
		return &Backend{
			Index:   idx,
			Runs:    memory.NewRunStore(),
			Kind:    settings.Backend,
			closers: []func() error{idx.Close},
		}, nil

	case domain.IndexBackendSQLite, "":
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		idx, err := store.VectorIndex(ctx, dims, maxBatch)
		if err != nil {
			store.Close()
			return nil, err
		}
		return &Backend{
			Index:   idx,
			Runs:    store.IngestRunStore(),
			Kind:    domain.IndexBackendSQLite,
			closers: []func() error{store.Close, idx.Close},
		}, nil

	case domain.IndexBackendQdrant:
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		idx, err := qdrant.Open(ctx, qdrant.Config{
			Addr:       settings.Addr,
			Collection: settings.Collection,
			Dimensions: dims,
			MaxBatch:   maxBatch,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		return &Backend{
			Index:   idx,
			Runs:    store.IngestRunStore(),
			Kind:    settings.Backend,
			closers: []func() error{store.Close, idx.Close},
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}
