// Package domain defines the core business entities for docindex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: the logical unit callers store, find and mutate
//   - Chunk: a single vector record; documents are materialised into chunks
//   - Metadata: the block copied identically onto every chunk of a document
//   - Filter: document selection criteria
//   - Outcome: the applied-or-ambiguous result of a mutating operation
//   - CleanupReport: the result of a decay cleanup run
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
