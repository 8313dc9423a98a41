package rest

import (
	"context"
	"errors"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

var errUnused = errors.New("not used by the sync API")

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	document domain.Document
	results  []domain.DocumentResult
	mutation domain.MutationResult
	getErr   error
	err      error

	stored    *driving.StoreRequest
	replaced  *driving.StoreRequest
	listReq   driving.ListRequest
	purgedID  string
	purgeColl string
}

var _ driving.DocumentService = (*mockDocumentService)(nil)

func (m *mockDocumentService) Store(_ context.Context, req driving.StoreRequest) (domain.Document, error) {
	m.stored = &req
	return m.document, m.err
}

func (m *mockDocumentService) Find(context.Context, driving.FindRequest) ([]domain.DocumentResult, error) {
	return nil, errUnused
}

func (m *mockDocumentService) List(_ context.Context, req driving.ListRequest) ([]domain.DocumentResult, error) {
	m.listReq = req
	return m.results, m.err
}

func (m *mockDocumentService) Get(context.Context, string, string) (domain.Document, error) {
	return m.document, m.getErr
}

func (m *mockDocumentService) Update(context.Context, driving.UpdateRequest) (domain.Outcome, error) {
	return domain.Outcome{}, errUnused
}

func (m *mockDocumentService) Append(context.Context, driving.AppendRequest) (domain.Outcome, error) {
	return domain.Outcome{}, errUnused
}

func (m *mockDocumentService) SetMetadata(context.Context, driving.MetadataRequest) (domain.MutationResult, error) {
	return domain.MutationResult{}, errUnused
}

func (m *mockDocumentService) AddTags(context.Context, driving.TagsRequest) (domain.MutationResult, error) {
	return domain.MutationResult{}, errUnused
}

func (m *mockDocumentService) RemoveTags(context.Context, driving.TagsRequest) (domain.MutationResult, error) {
	return domain.MutationResult{}, errUnused
}

func (m *mockDocumentService) Delete(context.Context, driving.DeleteRequest) (domain.Outcome, error) {
	return domain.Outcome{}, errUnused
}

func (m *mockDocumentService) Collections(context.Context) ([]string, error) {
	return nil, errUnused
}

func (m *mockDocumentService) Replace(_ context.Context, req driving.StoreRequest) (domain.Document, error) {
	m.replaced = &req
	if m.err != nil {
		return domain.Document{}, m.err
	}
	return domain.Document{ID: req.DocumentID, Title: req.Title, ChunkCount: 2}, nil
}

func (m *mockDocumentService) Purge(_ context.Context, collection, id string) (domain.MutationResult, error) {
	m.purgedID, m.purgeColl = id, collection
	return m.mutation, m.err
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
