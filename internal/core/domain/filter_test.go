package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_MatchChunk(t *testing.T) {
	chunk := Chunk{
		DocumentID: "doc-1",
		Title:      "Docker Bridge Config",
		Text:       "the bridge network uses a server on 10.0.0.1",
		Metadata: Metadata{
			SourceType: SourceComposed,
			Category:   "homelab",
			Tags:       []string{"docker", "network"},
		},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches", Filter{}, true},
		{"document id exact", Filter{DocumentID: "doc-1"}, true},
		{"document id prefix does not match", Filter{DocumentID: "doc"}, false},
		{"title substring", Filter{Title: "Bridge"}, true},
		{"title is case sensitive", Filter{Title: "bridge config"}, false},
		{"content substring", Filter{Content: "server"}, true},
		{"content miss", Filter{Content: "kubernetes"}, false},
		{"category exact", Filter{Category: "homelab"}, true},
		{"category substring does not match", Filter{Category: "home"}, false},
		{"source type exact", Filter{SourceType: SourceComposed}, true},
		{"source type mismatch", Filter{SourceType: SourcePDF}, false},
		{"any tag intersects", Filter{Tags: []string{"linux", "docker"}}, true},
		{"no tag intersects", Filter{Tags: []string{"linux"}}, false},
		{"and of matching keys", Filter{Category: "homelab", Tags: []string{"network"}, Content: "bridge"}, true},
		{"and fails on one key", Filter{Category: "homelab", Tags: []string{"linux"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.MatchChunk(chunk))
		})
	}
}

func TestFilter_IsEmpty(t *testing.T) {
	assert.True(t, Filter{}.IsEmpty())
	assert.False(t, Filter{Tags: []string{"x"}}.IsEmpty())
	assert.False(t, ByDocumentID("doc-1").IsEmpty())
}

func TestFilter_String(t *testing.T) {
	assert.Equal(t, "{}", Filter{}.String())
	assert.Equal(t, `{document_id="d" tags=a,b}`, Filter{DocumentID: "d", Tags: []string{"a", "b"}}.String())
}
