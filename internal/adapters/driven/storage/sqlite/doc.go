// Package sqlite provides a SQLite-backed vector index and ingestion run store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Both stores share one database connection:
//
//   - VectorIndex: Vector records with brute-force cosine search
//   - IngestRunStore: Ingestion runs and per-file outcomes
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.mmrag/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode, and upserts run in a transaction per batch.
package sqlite
