// Package sqlite provides a local vector store backed by a single SQLite file.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Chunks are stored as a JSON payload plus a
// little-endian float32 embedding blob, keyed by (collection, document_id,
// chunk_index).
//
// # Search
//
// Similarity search is brute-force cosine over the collection. Exact-match
// filters are pushed into SQL; substring and tag filters are applied in Go.
// This suits personal indexes of a few hundred thousand chunks.
//
// # Data Location
//
// By default, the database is stored at ~/.docindex/data/vectors.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
