package driven

import (
	"context"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// VectorStore persists chunk records and performs similarity search.
// Records are keyed by (document_id, chunk_index) within a named collection.
// Implementations translate domain.Filter into their native query form;
// filters they cannot express natively must be applied after fetching.
type VectorStore interface {
	// Collections lists the available collection names.
	Collections(ctx context.Context) ([]string, error)

	// CollectionExists reports whether the collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// EnsureCollection creates the collection for vectors of the given size
	// if it does not exist yet.
	EnsureCollection(ctx context.Context, collection string, dimensions int) error

	// Upsert writes or overwrites the given chunks as one batch.
	Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error

	// Scroll returns up to limit chunks matching filter, starting at offset.
	// The returned offset is empty when there are no further pages.
	// Embeddings are not populated.
	Scroll(ctx context.Context, collection string, filter domain.Filter, limit int, offset string) ([]domain.Chunk, string, error)

	// Search returns the chunks most similar to vector, best first.
	Search(ctx context.Context, collection string, vector []float32, filter domain.Filter, limit int) ([]domain.ScoredChunk, error)

	// SetMetadata replaces the metadata block of the given chunks in one batch.
	// Content, abstract and embeddings are left untouched.
	SetMetadata(ctx context.Context, collection string, keys []domain.ChunkKey, metadata domain.Metadata) error

	// Delete removes the given chunks in one batch. Missing keys are ignored.
	Delete(ctx context.Context, collection string, keys []domain.ChunkKey) error

	// Ping validates the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
