package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// scrollPageSize is the page size for every scroll loop.
const scrollPageSize = 100

// resolved is a document loaded together with the keys of its full chunk set.
type resolved struct {
	doc  domain.Document
	keys []domain.ChunkKey
}

// scrollAll collects every chunk of collection that matches filter.
// Backends may apply the filter only partially, so each chunk is re-checked.
func scrollAll(
	ctx context.Context, store driven.VectorStore, collection string, filter domain.Filter,
) ([]domain.Chunk, error) {
	var (
		all    []domain.Chunk
		offset string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, next, err := store.Scroll(ctx, collection, filter, scrollPageSize, offset)
		if err != nil {
			return nil, &domain.BackendError{Op: "scroll", Collection: collection, Err: err}
		}
		for _, c := range page {
			if filter.MatchChunk(c) {
				all = append(all, c)
			}
		}
		if next == "" || len(page) == 0 {
			return all, nil
		}
		offset = next
	}
}

// groupByDocument groups chunks by document ID, preserving first-appearance order.
func groupByDocument(chunks []domain.Chunk) ([]string, map[string][]domain.Chunk) {
	var order []string
	groups := make(map[string][]domain.Chunk)
	for _, c := range chunks {
		if _, seen := groups[c.DocumentID]; !seen {
			order = append(order, c.DocumentID)
		}
		groups[c.DocumentID] = append(groups[c.DocumentID], c)
	}
	return order, groups
}

// load reads and validates the full chunk set of one document.
func load(
	ctx context.Context, store driven.VectorStore, collection, documentID string,
) (resolved, error) {
	filter := domain.ByDocumentID(documentID)
	chunks, err := scrollAll(ctx, store, collection, filter)
	if err != nil {
		return resolved{}, err
	}
	if len(chunks) == 0 {
		return resolved{}, &domain.NotFoundError{Collection: collection, Filter: filter}
	}
	return assemble(chunks)
}

func assemble(chunks []domain.Chunk) (resolved, error) {
	doc, err := domain.Assemble(chunks)
	if err != nil {
		return resolved{}, err
	}
	return resolved{doc: doc, keys: domain.KeyRange(doc.ID, 0, doc.ChunkCount)}, nil
}

// loadAll loads each document in order. Documents deleted since they were
// listed are dropped.
func loadAll(
	ctx context.Context, store driven.VectorStore, collection string, ids []string,
) ([]resolved, error) {
	out := make([]resolved, 0, len(ids))
	for _, id := range ids {
		r, err := load(ctx, store, collection, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// resolveFilter returns every document matching filter, in scroll order.
// When the filter has no content criterion the scrolled chunks already form
// complete chunk sets, because all other criteria are document-level.
func resolveFilter(
	ctx context.Context, store driven.VectorStore, collection string, filter domain.Filter,
) ([]resolved, error) {
	chunks, err := scrollAll(ctx, store, collection, filter)
	if err != nil {
		return nil, err
	}
	order, groups := groupByDocument(chunks)
	if filter.Content != "" {
		return loadAll(ctx, store, collection, order)
	}

	out := make([]resolved, 0, len(order))
	for _, id := range order {
		r, err := assemble(groups[id])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func documentsOf(rs []resolved) []domain.Document {
	docs := make([]domain.Document, len(rs))
	for i, r := range rs {
		docs[i] = r.doc
	}
	return docs
}
