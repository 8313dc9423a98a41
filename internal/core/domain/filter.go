package domain

import (
	"fmt"
	"strings"
)

// Filter selects documents. All set fields must match (logical AND).
type Filter struct {
	// DocumentID matches exactly.
	DocumentID string

	// Title matches as a substring of the document title.
	Title string

	// Content matches as a substring of any chunk's text.
	Content string

	// Category matches exactly.
	Category string

	// SourceType matches exactly.
	SourceType SourceType

	// SourceRef matches exactly.
	SourceRef string

	// Tags matches if any listed tag is present on the document.
	Tags []string
}

// IsEmpty returns true if no criteria are set.
func (f Filter) IsEmpty() bool {
	return f.DocumentID == "" && f.Title == "" && f.Content == "" &&
		f.Category == "" && f.SourceType == "" && f.SourceRef == "" && len(f.Tags) == 0
}

// ByDocumentID returns a filter selecting a single document.
func ByDocumentID(id string) Filter {
	return Filter{DocumentID: id}
}

// MatchChunk reports whether a chunk satisfies the filter.
// A document matches when any of its chunks matches, because metadata is
// identical across chunks and content is matched per chunk.
func (f Filter) MatchChunk(c Chunk) bool {
	if f.DocumentID != "" && c.DocumentID != f.DocumentID {
		return false
	}
	if f.Title != "" && !strings.Contains(c.Title, f.Title) {
		return false
	}
	if f.Content != "" && !strings.Contains(c.Text, f.Content) {
		return false
	}
	return f.MatchMetadata(c.Metadata)
}

// MatchMetadata checks only the metadata criteria.
func (f Filter) MatchMetadata(m Metadata) bool {
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	if f.SourceType != "" && m.SourceType != f.SourceType {
		return false
	}
	if f.SourceRef != "" && m.SourceRef != f.SourceRef {
		return false
	}
	if len(f.Tags) > 0 {
		for _, tag := range f.Tags {
			if m.HasTag(tag) {
				return true
			}
		}
		return false
	}
	return true
}

// String renders the filter for messages and logs.
func (f Filter) String() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", k, v))
		}
	}
	add("document_id", f.DocumentID)
	add("title", f.Title)
	add("content", f.Content)
	add("category", f.Category)
	add("source_type", string(f.SourceType))
	add("source_ref", f.SourceRef)
	if len(f.Tags) > 0 {
		parts = append(parts, "tags="+strings.Join(f.Tags, ","))
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, " ") + "}"
}
