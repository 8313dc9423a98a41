package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMetadata() Metadata {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return Metadata{
		SourceType:     SourceComposed,
		Category:       "homelab",
		Tags:           []string{"docker", "network"},
		CreatedAt:      created,
		UpdatedAt:      created,
		LastAccessedAt: &created,
	}
}

func TestSourceType(t *testing.T) {
	tests := []struct {
		name     string
		source   SourceType
		writable bool
		valid    bool
	}{
		{"composed is writable", SourceComposed, true, true},
		{"trilium is read-only", SourceTrilium, false, true},
		{"pdf is read-only", SourcePDF, false, true},
		{"paperless is read-only", SourcePaperless, false, true},
		{"unknown kind is external", SourceType("obsidian"), false, true},
		{"empty is invalid", SourceType(""), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.writable, tt.source.ContentWritable())
			assert.Equal(t, tt.valid, tt.source.IsValid())
		})
	}
}

func TestMetadata_CloneIsDeep(t *testing.T) {
	m := testMetadata()
	c := m.Clone()

	c.Tags[0] = "changed"
	*c.LastAccessedAt = c.LastAccessedAt.Add(time.Hour)

	assert.Equal(t, "docker", m.Tags[0])
	assert.True(t, m.Equal(testMetadata()))
}

func TestMetadata_Equal(t *testing.T) {
	base := testMetadata()

	t.Run("identical", func(t *testing.T) {
		assert.True(t, base.Equal(testMetadata()))
	})

	t.Run("different score", func(t *testing.T) {
		o := testMetadata()
		o.RelevanceScore = 1
		assert.False(t, base.Equal(o))
	})

	t.Run("missing last accessed", func(t *testing.T) {
		o := testMetadata()
		o.LastAccessedAt = nil
		assert.False(t, base.Equal(o))
	})

	t.Run("different tags", func(t *testing.T) {
		o := testMetadata()
		o.Tags = []string{"docker"}
		assert.False(t, base.Equal(o))
	})
}

func TestMetadata_Touch(t *testing.T) {
	m := testMetadata()
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	m.Touch(now, WeightFind)

	assert.Equal(t, 3, m.RelevanceScore)
	require.NotNil(t, m.LastAccessedAt)
	assert.Equal(t, now, *m.LastAccessedAt)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), m.CreatedAt)
}

func TestMaterialise(t *testing.T) {
	doc := Document{
		ID:       "doc-1",
		Title:    "Docker Bridge Config",
		Abstract: "How the bridge is set up.",
		Content:  "part one part two part three",
		Metadata: testMetadata(),
	}
	texts := []string{"part one", "part two", "part three"}
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}

	chunks := Materialise(doc, texts, vectors)

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, doc.Title, c.Title)
		assert.Equal(t, doc.Abstract, c.Abstract)
		assert.Equal(t, texts[i], c.Text)
		assert.Equal(t, vectors[i], c.Embedding)
		assert.True(t, c.Metadata.Equal(doc.Metadata))
	}
	assert.Equal(t, doc.Content, chunks[0].FullContent)
	assert.Empty(t, chunks[1].FullContent)
	assert.Empty(t, chunks[2].FullContent)

	t.Run("external document has no full content", func(t *testing.T) {
		ext := doc
		ext.Metadata.SourceType = SourcePDF
		chunks := Materialise(ext, texts, vectors)
		assert.Empty(t, chunks[0].FullContent)
	})

	t.Run("chunks do not share tag slices", func(t *testing.T) {
		chunks[0].Metadata.Tags[0] = "mutated"
		assert.Equal(t, "docker", chunks[1].Metadata.Tags[0])
	})
}

func TestAssemble(t *testing.T) {
	doc := Document{
		ID:       "doc-1",
		Title:    "Notes",
		Content:  "alpha beta",
		Metadata: testMetadata(),
	}

	t.Run("round trips materialised chunks", func(t *testing.T) {
		chunks := Materialise(doc, []string{"alpha", "beta"}, nil)
		// Out of order input is fine.
		chunks[0], chunks[1] = chunks[1], chunks[0]

		got, err := Assemble(chunks)
		require.NoError(t, err)
		assert.Equal(t, "doc-1", got.ID)
		assert.Equal(t, "alpha beta", got.Content)
		assert.Equal(t, 2, got.ChunkCount)
	})

	t.Run("index gap", func(t *testing.T) {
		chunks := Materialise(doc, []string{"a", "b", "c"}, nil)
		_, err := Assemble([]Chunk{chunks[0], chunks[2]})
		assert.ErrorIs(t, err, ErrConsistency)
		assert.Contains(t, err.Error(), "gap")
	})

	t.Run("duplicate index", func(t *testing.T) {
		chunks := Materialise(doc, []string{"a", "b"}, nil)
		_, err := Assemble([]Chunk{chunks[0], chunks[1], chunks[1]})
		assert.ErrorIs(t, err, ErrConsistency)
	})

	t.Run("metadata divergence", func(t *testing.T) {
		chunks := Materialise(doc, []string{"a", "b"}, nil)
		chunks[1].Metadata.RelevanceScore = 7
		_, err := Assemble(chunks)
		assert.ErrorIs(t, err, ErrConsistency)
		assert.Contains(t, err.Error(), "metadata diverges")
	})

	t.Run("empty set", func(t *testing.T) {
		_, err := Assemble(nil)
		assert.ErrorIs(t, err, ErrConsistency)
	})
}

func TestKeyRange(t *testing.T) {
	assert.Nil(t, KeyRange("d", 3, 3))
	assert.Equal(t, []ChunkKey{{"d", 2}, {"d", 3}}, KeyRange("d", 2, 4))
}
