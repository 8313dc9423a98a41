// Package payload converts chunks to and from the JSON payload shared by the
// persistent vector store backends.
//
// The layout is flat: document-level fields are repeated on every chunk and
// the metadata block is nested under "metadata" so backends can index
// metadata.source_type, metadata.category and metadata.tags.
package payload

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// Field paths used by backends for filtering and indexing.
const (
	FieldDocumentID = "document_id"
	FieldChunkIndex = "chunk_index"
	FieldTitle      = "title"
	FieldContent    = "content"
	FieldSourceType = "metadata.source_type"
	FieldSourceRef  = "metadata.source_ref"
	FieldCategory   = "metadata.category"
	FieldTags       = "metadata.tags"
)

// Payload is the stored form of a chunk, minus its vector.
type Payload struct {
	DocumentID  string   `json:"document_id"`
	ChunkIndex  int      `json:"chunk_index"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Abstract    string   `json:"abstract,omitempty"`
	FullContent string   `json:"full_content,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

// Metadata is the stored form of domain.Metadata. Timestamps are RFC 3339.
// Legacy records omit last_accessed_at and relevance_score.
type Metadata struct {
	SourceType     string   `json:"source_type"`
	SourceRef      string   `json:"source_ref,omitempty"`
	Category       string   `json:"category,omitempty"`
	Tags           []string `json:"tags"`
	CreatedAt      string   `json:"created_at,omitempty"`
	UpdatedAt      string   `json:"updated_at,omitempty"`
	LastAccessedAt string   `json:"last_accessed_at,omitempty"`
	RelevanceScore *int     `json:"relevance_score,omitempty"`
}

// FromChunk builds the payload for c.
func FromChunk(c domain.Chunk) Payload {
	return Payload{
		DocumentID:  c.DocumentID,
		ChunkIndex:  c.Index,
		Title:       c.Title,
		Content:     c.Text,
		Abstract:    c.Abstract,
		FullContent: c.FullContent,
		Metadata:    FromMetadata(c.Metadata),
	}
}

// FromMetadata builds the stored metadata block.
func FromMetadata(m domain.Metadata) Metadata {
	out := Metadata{
		SourceType: string(m.SourceType),
		SourceRef:  m.SourceRef,
		Category:   m.Category,
		Tags:       m.Tags,
		CreatedAt:  formatTime(m.CreatedAt),
		UpdatedAt:  formatTime(m.UpdatedAt),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if m.Tracked() {
		out.LastAccessedAt = formatTime(*m.LastAccessedAt)
		score := m.RelevanceScore
		out.RelevanceScore = &score
	}
	return out
}

// Chunk converts the payload back into a chunk without an embedding.
func (p Payload) Chunk() (domain.Chunk, error) {
	meta, err := p.Metadata.Domain()
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("chunk %s/%d: %w", p.DocumentID, p.ChunkIndex, err)
	}
	return domain.Chunk{
		DocumentID:  p.DocumentID,
		Index:       p.ChunkIndex,
		Title:       p.Title,
		Text:        p.Content,
		Abstract:    p.Abstract,
		FullContent: p.FullContent,
		Metadata:    meta,
	}, nil
}

// Domain converts the stored block into domain.Metadata.
// A record counts as tracked only when it carries last_accessed_at.
func (m Metadata) Domain() (domain.Metadata, error) {
	out := domain.Metadata{
		SourceType: domain.SourceType(m.SourceType),
		SourceRef:  m.SourceRef,
		Category:   m.Category,
	}
	if len(m.Tags) > 0 {
		out.Tags = append([]string(nil), m.Tags...)
	}

	var err error
	if out.CreatedAt, err = parseTime(m.CreatedAt); err != nil {
		return domain.Metadata{}, fmt.Errorf("created_at: %w", err)
	}
	if out.UpdatedAt, err = parseTime(m.UpdatedAt); err != nil {
		return domain.Metadata{}, fmt.Errorf("updated_at: %w", err)
	}
	if m.LastAccessedAt != "" {
		t, err := parseTime(m.LastAccessedAt)
		if err != nil {
			return domain.Metadata{}, fmt.Errorf("last_accessed_at: %w", err)
		}
		out.LastAccessedAt = &t
		if m.RelevanceScore != nil {
			out.RelevanceScore = *m.RelevanceScore
		}
	}
	return out, nil
}

// Marshal encodes the payload as JSON.
func Marshal(c domain.Chunk) ([]byte, error) {
	return json.Marshal(FromChunk(c))
}

// Unmarshal decodes a JSON payload into a chunk.
func Unmarshal(data []byte) (domain.Chunk, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Chunk{}, fmt.Errorf("decode payload: %w", err)
	}
	return p.Chunk()
}

// MarshalMetadata encodes only the metadata block.
func MarshalMetadata(m domain.Metadata) ([]byte, error) {
	return json.Marshal(FromMetadata(m))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime accepts RFC 3339 and the offset-less ISO form older writers used.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02T15:04:05.999999", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
