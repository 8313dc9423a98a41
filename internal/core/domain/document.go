package domain

import (
	"slices"
	"strconv"
	"time"
)

// SourceType identifies where a document's content comes from.
// Composed documents are authored through this system and own their content.
// Every other kind is an external source whose content is read-only here.
type SourceType string

// Known source types. Unknown non-empty values are accepted as external kinds.
const (
	// SourceComposed is a document authored directly in the index.
	SourceComposed SourceType = "composed"

	// SourceTrilium is a note synchronised from Trilium.
	SourceTrilium SourceType = "trilium"

	// SourcePDF is an extracted PDF document.
	SourcePDF SourceType = "pdf"

	// SourcePaperless is a document synchronised from Paperless.
	SourcePaperless SourceType = "paperless"
)

// IsValid returns true if the source type is non-empty.
func (s SourceType) IsValid() bool {
	return s != ""
}

// IsComposed returns true for locally authored documents.
func (s SourceType) IsComposed() bool {
	return s == SourceComposed
}

// ContentWritable reports whether content mutations are allowed.
func (s SourceType) ContentWritable() bool {
	return s.IsComposed()
}

// String returns the string representation.
func (s SourceType) String() string {
	return string(s)
}

// KnownSourceTypes returns the built-in source types.
func KnownSourceTypes() []SourceType {
	return []SourceType{SourceComposed, SourceTrilium, SourcePDF, SourcePaperless}
}

// Access weights applied to relevance_score by each operation kind.
const (
	WeightFind   = 3
	WeightUpdate = 2
	WeightList   = 1
)

// Metadata is the document-level metadata block copied onto every chunk.
type Metadata struct {
	// SourceType distinguishes composed documents from external ones.
	SourceType SourceType

	// SourceRef points at the external origin. Empty for composed documents.
	SourceRef string

	// Category is an optional single-valued tag.
	Category string

	// Tags is the free-form tag set.
	Tags []string

	// CreatedAt is set once when the document is stored.
	CreatedAt time.Time

	// UpdatedAt is bumped on any content or metadata mutation.
	UpdatedAt time.Time

	// LastAccessedAt is nil for legacy records without access tracking.
	LastAccessedAt *time.Time

	// RelevanceScore accumulates access weights. Decay is never stored.
	RelevanceScore int
}

// Tracked returns true if the record carries access-tracking fields.
func (m Metadata) Tracked() bool {
	return m.LastAccessedAt != nil
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Tags != nil {
		out.Tags = slices.Clone(m.Tags)
	}
	if m.LastAccessedAt != nil {
		t := *m.LastAccessedAt
		out.LastAccessedAt = &t
	}
	return out
}

// Equal reports whether two metadata blocks are identical.
func (m Metadata) Equal(o Metadata) bool {
	if m.SourceType != o.SourceType || m.SourceRef != o.SourceRef || m.Category != o.Category {
		return false
	}
	if m.RelevanceScore != o.RelevanceScore {
		return false
	}
	if !m.CreatedAt.Equal(o.CreatedAt) || !m.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	if (m.LastAccessedAt == nil) != (o.LastAccessedAt == nil) {
		return false
	}
	if m.LastAccessedAt != nil && !m.LastAccessedAt.Equal(*o.LastAccessedAt) {
		return false
	}
	return slices.Equal(m.Tags, o.Tags)
}

// HasTag returns true if the tag set contains tag.
func (m Metadata) HasTag(tag string) bool {
	return slices.Contains(m.Tags, tag)
}

// Touch records an access at now, adding weight to the relevance score.
func (m *Metadata) Touch(now time.Time, weight int) {
	t := now
	m.LastAccessedAt = &t
	m.RelevanceScore += weight
}

// Document is the logical unit callers work with.
// It is never stored as one record: it is materialised into chunks.
type Document struct {
	// ID is the opaque document identifier shared by all chunks.
	ID string

	// Title is the human-readable title.
	Title string

	// Abstract is the optional summary copied onto every chunk.
	Abstract string

	// Content is the full text. Only populated for composed documents,
	// where it is read back from chunk 0.
	Content string

	// Metadata is the synchronised metadata block.
	Metadata Metadata

	// ChunkCount is the number of stored chunks.
	ChunkCount int
}

// Chunk is a single stored vector record.
type Chunk struct {
	// DocumentID links the chunk to its document.
	DocumentID string

	// Index is the 0-based dense position within the document.
	Index int

	// Title is a redundant copy of the document title.
	Title string

	// Text is the chunk's own text, the part that gets embedded.
	Text string

	// Abstract is a redundant copy of the document abstract.
	Abstract string

	// FullContent is set only on chunk 0 of composed documents.
	FullContent string

	// Metadata is a redundant copy of the document metadata.
	Metadata Metadata

	// Embedding is the vector for Text. Backends may omit it on reads.
	Embedding []float32
}

// Key returns the chunk's point key.
func (c Chunk) Key() ChunkKey {
	return ChunkKey{DocumentID: c.DocumentID, Index: c.Index}
}

// ChunkKey addresses a chunk record within a collection.
type ChunkKey struct {
	DocumentID string
	Index      int
}

// ScoredChunk is a similarity-search hit.
type ScoredChunk struct {
	Chunk
	Score float64
}

// DocumentResult is a document returned by find or list.
type DocumentResult struct {
	Document

	// Score is the best chunk similarity for find, zero for list.
	Score float64
}

// Materialise builds the chunk records for a document from its chunk texts
// and embeddings. Every chunk receives an identical copy of the metadata;
// chunk 0 of a composed document carries the full content.
func Materialise(doc Document, texts []string, embeddings [][]float32) []Chunk {
	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		c := Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Title:      doc.Title,
			Text:       text,
			Abstract:   doc.Abstract,
			Metadata:   doc.Metadata.Clone(),
		}
		if i < len(embeddings) {
			c.Embedding = embeddings[i]
		}
		if i == 0 && doc.Metadata.SourceType.IsComposed() {
			c.FullContent = doc.Content
		}
		chunks[i] = c
	}
	return chunks
}

// Assemble reconstructs a document from its complete chunk set.
// It returns a ConsistencyViolation if indices are not dense or metadata diverges.
func Assemble(chunks []Chunk) (Document, error) {
	if len(chunks) == 0 {
		return Document{}, &ConsistencyViolation{Reason: "document has no chunks"}
	}

	sorted := slices.Clone(chunks)
	slices.SortFunc(sorted, func(a, b Chunk) int { return a.Index - b.Index })

	first := sorted[0]
	for i, c := range sorted {
		if c.DocumentID != first.DocumentID {
			return Document{}, &ConsistencyViolation{
				DocumentID: first.DocumentID,
				Reason:     "chunk set mixes document ids " + first.DocumentID + " and " + c.DocumentID,
			}
		}
		if c.Index != i {
			return Document{}, &ConsistencyViolation{
				DocumentID: first.DocumentID,
				Reason:     chunkIndexReason(i, c.Index),
			}
		}
		if !c.Metadata.Equal(first.Metadata) {
			return Document{}, &ConsistencyViolation{
				DocumentID: first.DocumentID,
				Reason:     "metadata diverges on chunk " + strconv.Itoa(c.Index),
			}
		}
		if c.Index > 0 && c.FullContent != "" {
			return Document{}, &ConsistencyViolation{
				DocumentID: first.DocumentID,
				Reason:     "full_content present on chunk " + strconv.Itoa(c.Index),
			}
		}
	}

	return Document{
		ID:         first.DocumentID,
		Title:      first.Title,
		Abstract:   first.Abstract,
		Content:    first.FullContent,
		Metadata:   first.Metadata.Clone(),
		ChunkCount: len(sorted),
	}, nil
}

// Keys returns the point keys of a chunk set.
func Keys(chunks []Chunk) []ChunkKey {
	keys := make([]ChunkKey, len(chunks))
	for i, c := range chunks {
		keys[i] = c.Key()
	}
	return keys
}

// KeyRange returns keys for indices [from, to) of a document.
func KeyRange(documentID string, from, to int) []ChunkKey {
	if to <= from {
		return nil
	}
	keys := make([]ChunkKey, 0, to-from)
	for i := from; i < to; i++ {
		keys = append(keys, ChunkKey{DocumentID: documentID, Index: i})
	}
	return keys
}

func chunkIndexReason(want, got int) string {
	if got < want {
		return "duplicate chunk_index " + strconv.Itoa(got)
	}
	return "chunk_index gap: expected " + strconv.Itoa(want) + ", found " + strconv.Itoa(got)
}
