package qdrant

import (
	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/payload"
	"github.com/custodia-labs/docindex/internal/core/domain"
)

// translateFilter converts a domain filter into a Qdrant filter object.
// Every criterion is expressed natively: exact fields use match.value, tags
// use match.any, and title/content use match.text, which Qdrant evaluates as
// a substring test on fields without a full-text index.
// Returns nil for an empty filter.
func translateFilter(f domain.Filter) map[string]any {
	var must []any
	if f.DocumentID != "" {
		must = append(must, matchValue(payload.FieldDocumentID, f.DocumentID))
	}
	if f.SourceType != "" {
		must = append(must, matchValue(payload.FieldSourceType, string(f.SourceType)))
	}
	if f.SourceRef != "" {
		must = append(must, matchValue(payload.FieldSourceRef, f.SourceRef))
	}
	if f.Category != "" {
		must = append(must, matchValue(payload.FieldCategory, f.Category))
	}
	if len(f.Tags) > 0 {
		must = append(must, map[string]any{
			"key":   payload.FieldTags,
			"match": map[string]any{"any": f.Tags},
		})
	}
	if f.Title != "" {
		must = append(must, matchText(payload.FieldTitle, f.Title))
	}
	if f.Content != "" {
		must = append(must, matchText(payload.FieldContent, f.Content))
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func matchValue(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func matchText(key, text string) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"text": text},
	}
}
