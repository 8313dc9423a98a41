package mcp

import (
	"context"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// mockDocumentService is a mock implementation of driving.DocumentService.
// It records the last request of each kind.
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

func (m *mockDocumentService) Get(_ context.Context, _, id string) (domain.Document, error) {
	m.getID = id
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

func (m *mockDocumentService) Purge(_ context.Context, _, id string) (domain.MutationResult, error) {
	m.getID = id
	return m.mutation, m.err
}
