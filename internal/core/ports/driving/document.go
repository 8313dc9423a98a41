package driving

import (
	"context"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// DocumentService exposes document-level operations over the chunk store.
// An empty Collection in any request selects the configured default.
type DocumentService interface {
	// Store chunks, embeds and writes a new document.
	Store(ctx context.Context, req StoreRequest) (domain.Document, error)

	// Find ranks documents by similarity to a query. Matches are tracked (+3).
	Find(ctx context.Context, req FindRequest) ([]domain.DocumentResult, error)

	// List enumerates documents by filter. Matches are tracked (+1).
	List(ctx context.Context, req ListRequest) ([]domain.DocumentResult, error)

	// Get loads one document by ID without access tracking.
	Get(ctx context.Context, collection, documentID string) (domain.Document, error)

	// Update replaces the content of a composed document.
	Update(ctx context.Context, req UpdateRequest) (domain.Outcome, error)

	// Append adds text to the end of a composed document.
	Append(ctx context.Context, req AppendRequest) (domain.Outcome, error)

	// SetMetadata patches metadata on every matching document.
	SetMetadata(ctx context.Context, req MetadataRequest) (domain.MutationResult, error)

	// AddTags adds tags to every matching document.
	AddTags(ctx context.Context, req TagsRequest) (domain.MutationResult, error)

	// RemoveTags removes tags from every matching document.
	RemoveTags(ctx context.Context, req TagsRequest) (domain.MutationResult, error)

	// Delete removes a composed document.
	Delete(ctx context.Context, req DeleteRequest) (domain.Outcome, error)

	// Collections lists the backend collections.
	Collections(ctx context.Context) ([]string, error)

	// Replace writes a document under an explicit ID regardless of source type,
	// creating it if absent. Used by the sync API, which owns external content.
	Replace(ctx context.Context, req StoreRequest) (domain.Document, error)

	// Purge deletes a document by ID regardless of source type.
	Purge(ctx context.Context, collection, documentID string) (domain.MutationResult, error)
}

// StoreRequest describes a new document.
type StoreRequest struct {
	Collection string

	// DocumentID is normally empty and assigned by the service.
	DocumentID string

	Title    string
	Content  string
	Category string
	Tags     []string

	// SourceType defaults to composed.
	SourceType domain.SourceType

	// SourceRef is required for external source types.
	SourceRef string
}

// FindRequest describes a similarity query.
type FindRequest struct {
	Collection string
	Query      string
	Filter     domain.Filter

	// Limit caps the number of chunk hits; zero uses the configured default.
	Limit int
}

// ListRequest describes a filtered enumeration.
type ListRequest struct {
	Collection string
	Filter     domain.Filter

	// Limit caps the number of documents; zero uses the configured default.
	Limit int
}

// MetadataPatch lists metadata fields to change. Nil fields are kept.
type MetadataPatch struct {
	Category  *string
	SourceRef *string

	// SourceType is immutable; a non-nil value is rejected.
	SourceType *domain.SourceType

	// Tags replaces the tag set when non-nil. An empty slice clears it.
	Tags []string
}

// IsEmpty returns true if the patch changes nothing.
func (p MetadataPatch) IsEmpty() bool {
	return p.Category == nil && p.SourceRef == nil && p.SourceType == nil && p.Tags == nil
}

// UpdateRequest replaces a document's content.
type UpdateRequest struct {
	Collection string
	Filter     domain.Filter
	Content    string

	// Title renames the document when non-empty.
	Title string

	Patch MetadataPatch
}

// AppendRequest appends text to a document's content.
type AppendRequest struct {
	Collection string
	Filter     domain.Filter
	Content    string
}

// MetadataRequest patches document metadata.
type MetadataRequest struct {
	Collection string
	Filter     domain.Filter
	Patch      MetadataPatch
}

// TagsRequest adds or removes tags.
type TagsRequest struct {
	Collection string
	Filter     domain.Filter
	Tags       []string
}

// DeleteRequest removes a document.
type DeleteRequest struct {
	Collection string
	Filter     domain.Filter
}
