package mcp

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

var sampleDoc = domain.Document{
	ID:       "doc-1",
	Title:    "Backups",
	Abstract: "How backups run",
	Content:  "Nightly restic runs.",
	Metadata: domain.Metadata{
		SourceType: domain.SourceComposed,
		Category:   "ops",
		Tags:       []string{"infra", "backup"},
		CreatedAt:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	},
	ChunkCount: 1,
}

func TestHandleStore(t *testing.T) {
	svc := &mockDocumentService{document: sampleDoc}
	s := newTestServer(t, svc, Options{})

	res, _, err := s.handleStore(context.Background(), nil, StoreInput{
		Title: "Backups", Content: "Nightly restic runs.", Category: "ops", Tags: []string{"infra"}, Collection: "notes",
	})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Stored document doc-1.")
	assert.Equal(t, "notes", svc.storeReq.Collection)
	assert.Equal(t, []string{"infra"}, svc.storeReq.Tags)
	assert.Empty(t, svc.storeReq.SourceType)
}

func TestHandleFind(t *testing.T) {
	t.Run("formats results with content", func(t *testing.T) {
		svc := &mockDocumentService{results: []domain.DocumentResult{{Document: sampleDoc, Score: 0.9}}}
		s := newTestServer(t, svc, Options{})

		res, _, err := s.handleFind(context.Background(), nil, FindInput{
			Query: "backups", Limit: 4, Filter: &FilterInput{Tags: []string{"infra"}, DocumentID: " doc-1 "},
		})
		require.NoError(t, err)

		text := resultText(t, res)
		assert.Contains(t, text, `<document id="doc-1" score="0.900">`)
		assert.Contains(t, text, "<title>Backups</title>")
		assert.Contains(t, text, "<abstract>How backups run</abstract>")
		assert.Contains(t, text, "source_type=composed | category=ops | tags=infra,backup")
		assert.Contains(t, text, "<content>Nightly restic runs.</content>")
		assert.Equal(t, "backups", svc.findReq.Query)
		assert.Equal(t, 4, svc.findReq.Limit)
		assert.Equal(t, "doc-1", svc.findReq.Filter.DocumentID)
	})

	t.Run("no results", func(t *testing.T) {
		s := newTestServer(t, &mockDocumentService{}, Options{})
		res, _, err := s.handleFind(context.Background(), nil, FindInput{Query: "x"})
		require.NoError(t, err)
		assert.Equal(t, noMatchText, resultText(t, res))
	})

	t.Run("backend error is returned", func(t *testing.T) {
		boom := &domain.BackendError{Op: "search", Err: errors.New("down")}
		s := newTestServer(t, &mockDocumentService{err: boom}, Options{})
		_, _, err := s.handleFind(context.Background(), nil, FindInput{Query: "x"})
		assert.ErrorIs(t, err, domain.ErrBackend)
	})
}

func TestHandleList(t *testing.T) {
	svc := &mockDocumentService{results: []domain.DocumentResult{{Document: sampleDoc}}}
	s := newTestServer(t, svc, Options{})

	res, _, err := s.handleList(context.Background(), nil, ListInput{Filter: &FilterInput{Category: "ops"}})
	require.NoError(t, err)

	text := resultText(t, res)
	assert.Contains(t, text, `<document id="doc-1">`)
	assert.NotContains(t, text, "<content>")
	assert.Equal(t, "ops", svc.listReq.Filter.Category)
}

func TestHandleCollections(t *testing.T) {
	s := newTestServer(t, &mockDocumentService{}, Options{})
	res, _, err := s.handleCollections(context.Background(), nil, CollectionsInput{})
	require.NoError(t, err)
	assert.Equal(t, "No collections found", resultText(t, res))
}

func TestHandleUpdate(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		svc := &mockDocumentService{outcome: domain.Applied(domain.MutationResult{
			Documents: []domain.Document{sampleDoc}, Chunks: 1, Message: "Updated document doc-1.",
		})}
		s := newTestServer(t, svc, Options{})

		res, _, err := s.handleUpdate(context.Background(), nil, UpdateInput{
			Filter: FilterInput{DocumentID: "doc-1"}, Content: "new", Title: "Renamed",
		})
		require.NoError(t, err)
		text := resultText(t, res)
		assert.Contains(t, text, "Updated document doc-1.")
		assert.Contains(t, text, "Affected documents:")
		assert.Equal(t, "Renamed", svc.updateReq.Title)
		assert.Equal(t, "new", svc.updateReq.Content)
	})

	t.Run("metadata is kept unless overridden", func(t *testing.T) {
		svc := &mockDocumentService{outcome: domain.Applied(domain.MutationResult{Message: "Updated."})}
		s := newTestServer(t, svc, Options{})

		_, _, err := s.handleUpdate(context.Background(), nil, UpdateInput{Filter: FilterInput{DocumentID: "doc-1"}, Content: "x"})
		require.NoError(t, err)
		assert.True(t, svc.updateReq.Patch.IsEmpty())

		category := "runbooks"
		_, _, err = s.handleUpdate(context.Background(), nil, UpdateInput{
			Filter: FilterInput{DocumentID: "doc-1"}, Content: "x", Category: &category, Tags: []string{"ops"},
		})
		require.NoError(t, err)
		require.NotNil(t, svc.updateReq.Patch.Category)
		assert.Equal(t, "runbooks", *svc.updateReq.Patch.Category)
		assert.Equal(t, []string{"ops"}, svc.updateReq.Patch.Tags)
		assert.Nil(t, svc.updateReq.Patch.SourceRef)
	})

	t.Run("ambiguous lists candidates", func(t *testing.T) {
		other := sampleDoc
		other.ID = "doc-2"
		svc := &mockDocumentService{outcome: domain.AmbiguousCandidates([]domain.Document{sampleDoc, other})}
		s := newTestServer(t, svc, Options{})

		res, _, err := s.handleUpdate(context.Background(), nil, UpdateInput{Filter: FilterInput{Title: "Back"}, Content: "x"})
		require.NoError(t, err)
		text := resultText(t, res)
		assert.Contains(t, text, "Multiple documents matched (2). Please specify which one by document_id.")
		assert.Contains(t, text, "Matching documents:")
		assert.Contains(t, text, `<document id="doc-2">`)
	})

	t.Run("not found is a plain message", func(t *testing.T) {
		svc := &mockDocumentService{err: &domain.NotFoundError{Collection: "docs"}}
		s := newTestServer(t, svc, Options{})

		res, _, err := s.handleUpdate(context.Background(), nil, UpdateInput{Filter: FilterInput{DocumentID: "x"}, Content: "x"})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, noMatchText, resultText(t, res))
	})

	t.Run("read-only content is a tool error", func(t *testing.T) {
		svc := &mockDocumentService{err: &domain.ReadOnlyContentError{DocumentID: "doc-1", SourceType: domain.SourcePDF}}
		s := newTestServer(t, svc, Options{})

		res, _, err := s.handleUpdate(context.Background(), nil, UpdateInput{Filter: FilterInput{DocumentID: "doc-1"}, Content: "x"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestHandleAppend(t *testing.T) {
	svc := &mockDocumentService{outcome: domain.Applied(domain.MutationResult{Message: "Appended."})}
	s := newTestServer(t, svc, Options{})

	res, _, err := s.handleAppend(context.Background(), nil, AppendInput{Filter: FilterInput{DocumentID: "doc-1"}, Content: "more"})
	require.NoError(t, err)
	assert.Equal(t, "Appended.", resultText(t, res))
	assert.Equal(t, "more", svc.appendReq.Content)
}

func TestHandleSetMetadata(t *testing.T) {
	svc := &mockDocumentService{mutation: domain.MutationResult{Message: "Updated metadata on 1 document(s)."}}
	s := newTestServer(t, svc, Options{})

	category := "runbooks"
	_, _, err := s.handleSetMetadata(context.Background(), nil, SetMetadataInput{
		Filter: FilterInput{Tags: []string{"infra"}}, Category: &category,
	})
	require.NoError(t, err)
	require.NotNil(t, svc.metadataReq.Patch.Category)
	assert.Equal(t, "runbooks", *svc.metadataReq.Patch.Category)
	assert.Nil(t, svc.metadataReq.Patch.SourceRef)
	assert.Nil(t, svc.metadataReq.Patch.Tags)
	assert.Equal(t, []string{"infra"}, svc.metadataReq.Filter.Tags)
}

func TestHandleTags(t *testing.T) {
	svc := &mockDocumentService{mutation: domain.MutationResult{Message: noMatchText}}
	s := newTestServer(t, svc, Options{})

	res, _, err := s.handleAddTags(context.Background(), nil, TagsInput{Filter: FilterInput{Category: "ops"}, Tags: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, noMatchText, resultText(t, res))
	assert.Equal(t, []string{"a"}, svc.tagsReq.Tags)

	_, _, err = s.handleRemoveTags(context.Background(), nil, TagsInput{Filter: FilterInput{Category: "dev"}, Tags: []string{"b"}})
	require.NoError(t, err)
	assert.Equal(t, "dev", svc.tagsReq.Filter.Category)
}

func TestHandleDelete(t *testing.T) {
	t.Run("validation is a tool error", func(t *testing.T) {
		svc := &mockDocumentService{err: &domain.ValidationError{Field: "filter", Reason: "must not be empty"}}
		s := newTestServer(t, svc, Options{})

		res, _, err := s.handleDelete(context.Background(), nil, DeleteInput{})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "filter")
	})

	t.Run("applied", func(t *testing.T) {
		svc := &mockDocumentService{outcome: domain.Applied(domain.MutationResult{Message: "Deleted document doc-1."})}
		s := newTestServer(t, svc, Options{})

		res, _, err := s.handleDelete(context.Background(), nil, DeleteInput{Filter: FilterInput{DocumentID: "doc-1"}})
		require.NoError(t, err)
		assert.Equal(t, "Deleted document doc-1.", resultText(t, res))
		assert.Equal(t, "doc-1", svc.deleteReq.Filter.DocumentID)
	})
}

func TestFilterInput_NilIsEmpty(t *testing.T) {
	var f *FilterInput
	assert.True(t, f.toFilter().IsEmpty())
}

func TestFindInput_LimitDescribesChunkHits(t *testing.T) {
	field, ok := reflect.TypeFor[FindInput]().FieldByName("Limit")
	require.True(t, ok)
	assert.Contains(t, field.Tag.Get("jsonschema"), "before grouping into documents")
}
