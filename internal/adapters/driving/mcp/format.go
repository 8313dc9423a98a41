package mcp

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/services"
)

const noMatchText = services.NoMatchMessage

// formatDocument renders a document for LLM consumption. Content is
// included only when withContent is set and the document carries any.
func formatDocument(doc domain.Document, score float64, withContent bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<document id=%q", doc.ID)
	if score > 0 {
		fmt.Fprintf(&b, " score=\"%.3f\"", score)
	}
	b.WriteString(">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", doc.Title)
	if doc.Abstract != "" {
		fmt.Fprintf(&b, "<abstract>%s</abstract>\n", doc.Abstract)
	}
	if meta := formatMetadata(doc.Metadata, doc.ChunkCount); meta != "" {
		fmt.Fprintf(&b, "<metadata>%s</metadata>\n", meta)
	}
	if withContent && doc.Content != "" {
		fmt.Fprintf(&b, "<content>%s</content>\n", doc.Content)
	}
	b.WriteString("</document>")
	return b.String()
}

func formatMetadata(m domain.Metadata, chunks int) string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("source_type", string(m.SourceType))
	add("source_ref", m.SourceRef)
	add("category", m.Category)
	if len(m.Tags) > 0 {
		add("tags", strings.Join(m.Tags, ","))
	}
	if !m.CreatedAt.IsZero() {
		add("created_at", m.CreatedAt.Format("2006-01-02"))
	}
	if !m.UpdatedAt.IsZero() {
		add("updated_at", m.UpdatedAt.Format("2006-01-02"))
	}
	if chunks > 0 {
		add("chunks", fmt.Sprint(chunks))
	}
	return strings.Join(parts, " | ")
}

// formatResults renders find and list results under a heading.
func formatResults(heading string, results []domain.DocumentResult, withContent bool) string {
	if len(results) == 0 {
		return noMatchText
	}
	parts := make([]string, 0, len(results)+1)
	parts = append(parts, heading)
	for _, r := range results {
		parts = append(parts, formatDocument(r.Document, r.Score, withContent))
	}
	return strings.Join(parts, "\n")
}

// formatMutation renders a write result with the documents it touched.
func formatMutation(r domain.MutationResult) string {
	if len(r.Documents) == 0 {
		return r.Message
	}
	parts := []string{r.Message, "", "Affected documents:"}
	for _, doc := range r.Documents {
		parts = append(parts, formatDocument(doc, 0, false))
	}
	return strings.Join(parts, "\n")
}

// formatOutcome renders either the applied write or the ambiguity candidates.
func formatOutcome(o domain.Outcome) string {
	if r, ok := o.Result(); ok {
		return formatMutation(r)
	}
	parts := []string{o.Message(), "", "Matching documents:"}
	for _, doc := range o.Candidates() {
		parts = append(parts, formatDocument(doc, 0, false))
	}
	return strings.Join(parts, "\n")
}
