package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	document    domain.Document
	results     []domain.DocumentResult
	outcome     domain.Outcome
	mutation    domain.MutationResult
	collections []string
	err         error

	storeReq    driving.StoreRequest
	findReq     driving.FindRequest
	listReq     driving.ListRequest
	updateReq   driving.UpdateRequest
	appendReq   driving.AppendRequest
	metadataReq driving.MetadataRequest
	tagsReq     driving.TagsRequest
	deleteReq   driving.DeleteRequest
	getColl     string
	getID       string
}

var _ driving.DocumentService = (*mockDocumentService)(nil)

func (m *mockDocumentService) Store(_ context.Context, req driving.StoreRequest) (domain.Document, error) {
	m.storeReq = req
	return m.document, m.err
}

func (m *mockDocumentService) Find(_ context.Context, req driving.FindRequest) ([]domain.DocumentResult, error) {
	m.findReq = req
	return m.results, m.err
}

func (m *mockDocumentService) List(_ context.Context, req driving.ListRequest) ([]domain.DocumentResult, error) {
	m.listReq = req
	return m.results, m.err
}

func (m *mockDocumentService) Get(_ context.Context, coll, id string) (domain.Document, error) {
	m.getColl, m.getID = coll, id
	return m.document, m.err
}

func (m *mockDocumentService) Update(_ context.Context, req driving.UpdateRequest) (domain.Outcome, error) {
	m.updateReq = req
	return m.outcome, m.err
}

func (m *mockDocumentService) Append(_ context.Context, req driving.AppendRequest) (domain.Outcome, error) {
	m.appendReq = req
	return m.outcome, m.err
}

func (m *mockDocumentService) SetMetadata(_ context.Context, req driving.MetadataRequest) (domain.MutationResult, error) {
	m.metadataReq = req
	return m.mutation, m.err
}

func (m *mockDocumentService) AddTags(_ context.Context, req driving.TagsRequest) (domain.MutationResult, error) {
	m.tagsReq = req
	return m.mutation, m.err
}

func (m *mockDocumentService) RemoveTags(_ context.Context, req driving.TagsRequest) (domain.MutationResult, error) {
	m.tagsReq = req
	return m.mutation, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, req driving.DeleteRequest) (domain.Outcome, error) {
	m.deleteReq = req
	return m.outcome, m.err
}

func (m *mockDocumentService) Collections(_ context.Context) ([]string, error) {
	return m.collections, m.err
}

func (m *mockDocumentService) Replace(_ context.Context, req driving.StoreRequest) (domain.Document, error) {
	m.storeReq = req
	return m.document, m.err
}

func (m *mockDocumentService) Purge(_ context.Context, _, _ string) (domain.MutationResult, error) {
	return m.mutation, m.err
}

// mockCleanupService returns canned reports and records every run.
type mockCleanupService struct {
	report func(opts domain.CleanupOptions) *domain.CleanupReport
	err    error
	runs   []domain.CleanupOptions
}

var _ driving.CleanupService = (*mockCleanupService)(nil)

func (m *mockCleanupService) Run(_ context.Context, opts domain.CleanupOptions) (*domain.CleanupReport, error) {
	m.runs = append(m.runs, opts)
	if m.err != nil {
		return nil, m.err
	}
	return m.report(opts), nil
}

// setupTestServices installs mocks and returns a function restoring the
// previous services.
func setupTestServices(docs *mockDocumentService, cleanup *mockCleanupService) func() {
	prevDocs, prevCleanup, prevSettings := documentService, cleanupService, appSettings
	documentService = docs
	cleanupService = cleanup
	appSettings = nil
	return func() {
		documentService, cleanupService, appSettings = prevDocs, prevCleanup, prevSettings
	}
}

// execute runs the root command with fresh flag values and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--env-file", ""))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
