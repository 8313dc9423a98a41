package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

var testDoc = domain.Document{
	ID:    "doc-1",
	Title: "Test Document 1",
	Metadata: domain.Metadata{
		SourceType: domain.SourceComposed,
		Category:   "ops",
		Tags:       []string{"infra"},
		CreatedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	},
	ChunkCount: 2,
}

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	var names []string
	for _, cmd := range documentCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{
		"store", "find", "list", "get", "update", "append", "tag", "untag", "set-metadata", "delete",
	}, names)
}

func TestDocumentStore(t *testing.T) {
	t.Run("flags", func(t *testing.T) {
		svc := &mockDocumentService{document: testDoc}
		defer setupTestServices(svc, &mockCleanupService{})()

		out, err := execute(t, "", "document", "store", "--title", "Note", "--content", "hello",
			"--category", "ops", "--tags", "a,b", "-c", "notes")
		require.NoError(t, err)
		assert.Contains(t, out, "Stored document doc-1 (2 chunks)")
		assert.Equal(t, "Note", svc.storeReq.Title)
		assert.Equal(t, "hello", svc.storeReq.Content)
		assert.Equal(t, []string{"a", "b"}, svc.storeReq.Tags)
		assert.Equal(t, "notes", svc.storeReq.Collection)
	})

	t.Run("stdin", func(t *testing.T) {
		svc := &mockDocumentService{document: testDoc}
		defer setupTestServices(svc, &mockCleanupService{})()

		_, err := execute(t, "from stdin", "document", "store", "--title", "Note", "--file", "-")
		require.NoError(t, err)
		assert.Equal(t, "from stdin", svc.storeReq.Content)
		assert.Empty(t, svc.storeReq.Collection)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "note.md")
		require.NoError(t, os.WriteFile(path, []byte("# Heading\n\nSome **bold** text"), 0600))
		svc := &mockDocumentService{document: testDoc}
		defer setupTestServices(svc, &mockCleanupService{})()

		_, err := execute(t, "", "document", "store", "--title", "Note", "--file", path)
		require.NoError(t, err)
		assert.Equal(t, "Heading\n\nSome bold text", svc.storeReq.Content)
		assert.Equal(t, "Note", svc.storeReq.Title)
	})

	t.Run("title from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "page.html")
		require.NoError(t, os.WriteFile(path, []byte("<title>Runbook</title><p>Restart the worker</p>"), 0600))
		svc := &mockDocumentService{document: testDoc}
		defer setupTestServices(svc, &mockCleanupService{})()

		_, err := execute(t, "", "document", "store", "--file", path)
		require.NoError(t, err)
		assert.Equal(t, "Runbook", svc.storeReq.Title)
		assert.Equal(t, "Restart the worker", svc.storeReq.Content)
	})

	t.Run("service error", func(t *testing.T) {
		svc := &mockDocumentService{err: &domain.ValidationError{Field: "title", Reason: "is required"}}
		defer setupTestServices(svc, &mockCleanupService{})()

		_, err := execute(t, "", "document", "store", "--content", "x")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestDocumentFind(t *testing.T) {
	svc := &mockDocumentService{results: []domain.DocumentResult{{Document: testDoc, Score: 0.82}}}
	defer setupTestServices(svc, &mockCleanupService{})()

	out, err := execute(t, "", "document", "find", "backup", "schedule", "-n", "3", "--match-tag", "infra")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 documents")
	assert.Contains(t, out, "doc-1  (score 0.820)")
	assert.Contains(t, out, "Tags:     infra")
	assert.Equal(t, "backup schedule", svc.findReq.Query)
	assert.Equal(t, 3, svc.findReq.Limit)
	assert.Equal(t, []string{"infra"}, svc.findReq.Filter.Tags)
}

func TestDocumentFind_NoResults(t *testing.T) {
	defer setupTestServices(&mockDocumentService{}, &mockCleanupService{})()

	out, err := execute(t, "", "document", "find", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found for: nothing")
}

func TestDocumentList(t *testing.T) {
	svc := &mockDocumentService{results: []domain.DocumentResult{{Document: testDoc}}}
	defer setupTestServices(svc, &mockCleanupService{})()

	out, err := execute(t, "", "document", "list", "--match-source-type", "pdf", "--match-source-ref", "scan.pdf")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Document 1")
	assert.Contains(t, out, "Total: 1 documents")
	assert.Equal(t, domain.SourcePDF, svc.listReq.Filter.SourceType)
	assert.Equal(t, "scan.pdf", svc.listReq.Filter.SourceRef)
}

func TestDocumentGet(t *testing.T) {
	doc := testDoc
	doc.Content = "full body"
	svc := &mockDocumentService{document: doc}
	defer setupTestServices(svc, &mockCleanupService{})()

	out, err := execute(t, "", "document", "get", "doc-1", "--collection", "archive")
	require.NoError(t, err)
	assert.Contains(t, out, "full body")
	assert.Equal(t, "doc-1", svc.getID)
	assert.Equal(t, "archive", svc.getColl)
}

func TestDocumentGet_RequiresExactlyOneArg(t *testing.T) {
	defer setupTestServices(&mockDocumentService{}, &mockCleanupService{})()

	_, err := execute(t, "", "document", "get")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestDocumentUpdate(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		svc := &mockDocumentService{outcome: domain.Applied(domain.MutationResult{
			Documents: []domain.Document{testDoc}, Message: "Updated document.",
		})}
		defer setupTestServices(svc, &mockCleanupService{})()

		out, err := execute(t, "", "document", "update", "--id", "doc-1", "--content", "new", "--title", "Renamed")
		require.NoError(t, err)
		assert.Contains(t, out, "Updated document.")
		assert.Equal(t, "doc-1", svc.updateReq.Filter.DocumentID)
		assert.Equal(t, "Renamed", svc.updateReq.Title)
		assert.Equal(t, "new", svc.updateReq.Content)
	})

	t.Run("metadata overrides", func(t *testing.T) {
		svc := &mockDocumentService{outcome: domain.Applied(domain.MutationResult{Message: "ok"})}
		defer setupTestServices(svc, &mockCleanupService{})()

		_, err := execute(t, "", "document", "update", "--id", "doc-1", "--content", "new")
		require.NoError(t, err)
		assert.True(t, svc.updateReq.Patch.IsEmpty())

		_, err = execute(t, "", "document", "update", "--id", "doc-1", "--content", "new",
			"--category", "runbooks", "--tags", "ops,infra")
		require.NoError(t, err)
		require.NotNil(t, svc.updateReq.Patch.Category)
		assert.Equal(t, "runbooks", *svc.updateReq.Patch.Category)
		assert.Equal(t, []string{"ops", "infra"}, svc.updateReq.Patch.Tags)
	})

	t.Run("ambiguous", func(t *testing.T) {
		other := testDoc
		other.ID = "doc-2"
		svc := &mockDocumentService{outcome: domain.AmbiguousCandidates([]domain.Document{testDoc, other})}
		defer setupTestServices(svc, &mockCleanupService{})()

		out, err := execute(t, "", "document", "update", "--match-title", "Test", "--content", "x")
		require.NoError(t, err)
		assert.Contains(t, out, "Multiple documents matched (2)")
		assert.Contains(t, out, "doc-2")
		assert.Equal(t, "Test", svc.updateReq.Filter.Title)
	})
}

func TestDocumentAppend(t *testing.T) {
	svc := &mockDocumentService{outcome: domain.Applied(domain.MutationResult{Message: "Appended."})}
	defer setupTestServices(svc, &mockCleanupService{})()

	out, err := execute(t, "more text", "document", "append", "--id", "doc-1", "--file", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Appended.")
	assert.Equal(t, "more text", svc.appendReq.Content)
}

func TestDocumentTagAndUntag(t *testing.T) {
	svc := &mockDocumentService{mutation: domain.MutationResult{Message: "Tagged 1 document(s)."}}
	defer setupTestServices(svc, &mockCleanupService{})()

	out, err := execute(t, "", "document", "tag", "urgent", "q3", "--match-category", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "Tagged 1 document(s).")
	assert.Equal(t, []string{"urgent", "q3"}, svc.tagsReq.Tags)
	assert.Equal(t, "ops", svc.tagsReq.Filter.Category)

	_, err = execute(t, "", "document", "untag", "q3", "--id", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"q3"}, svc.tagsReq.Tags)
	assert.Equal(t, "doc-1", svc.tagsReq.Filter.DocumentID)
	assert.Empty(t, svc.tagsReq.Filter.Category)
}

func TestDocumentSetMetadata(t *testing.T) {
	t.Run("only changed flags are patched", func(t *testing.T) {
		svc := &mockDocumentService{mutation: domain.MutationResult{Message: "ok"}}
		defer setupTestServices(svc, &mockCleanupService{})()

		_, err := execute(t, "", "document", "set-metadata", "--id", "doc-1", "--category", "runbooks")
		require.NoError(t, err)
		require.NotNil(t, svc.metadataReq.Patch.Category)
		assert.Equal(t, "runbooks", *svc.metadataReq.Patch.Category)
		assert.Nil(t, svc.metadataReq.Patch.SourceRef)
		assert.Nil(t, svc.metadataReq.Patch.Tags)
	})

	t.Run("empty tags clears", func(t *testing.T) {
		svc := &mockDocumentService{mutation: domain.MutationResult{Message: "ok"}}
		defer setupTestServices(svc, &mockCleanupService{})()

		_, err := execute(t, "", "document", "set-metadata", "--id", "doc-1", "--tags", "")
		require.NoError(t, err)
		require.NotNil(t, svc.metadataReq.Patch.Tags)
		assert.Empty(t, svc.metadataReq.Patch.Tags)
	})

	t.Run("nothing to change", func(t *testing.T) {
		defer setupTestServices(&mockDocumentService{}, &mockCleanupService{})()

		_, err := execute(t, "", "document", "set-metadata", "--id", "doc-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to change")
	})
}

func TestDocumentDelete(t *testing.T) {
	svc := &mockDocumentService{err: &domain.ReadOnlyContentError{
		DocumentID: "doc-1", Title: "Scan", SourceType: domain.SourcePDF, Op: "delete",
	}}
	defer setupTestServices(svc, &mockCleanupService{})()

	_, err := execute(t, "", "document", "delete", "--id", "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReadOnlyContent)
	assert.Equal(t, "doc-1", svc.deleteReq.Filter.DocumentID)
}

func TestCollections(t *testing.T) {
	t.Run("lists names", func(t *testing.T) {
		defer setupTestServices(&mockDocumentService{collections: []string{"docs", "notes"}}, &mockCleanupService{})()

		out, err := execute(t, "", "collections")
		require.NoError(t, err)
		assert.Contains(t, out, "docs\nnotes\n")
	})

	t.Run("empty", func(t *testing.T) {
		defer setupTestServices(&mockDocumentService{}, &mockCleanupService{})()

		out, err := execute(t, "", "collections")
		require.NoError(t, err)
		assert.Contains(t, out, "No collections found")
	})
}
