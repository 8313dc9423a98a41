package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docindex/internal/chunker"
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// NoMatchMessage is reported when a metadata operation matched nothing.
const NoMatchMessage = "No matching documents found."

// appendSeparator joins appended text to existing content.
const appendSeparator = "\n\n"

// DocumentService is the document store façade. It composes document
// operations from chunk-level vector store calls.
type DocumentService struct {
	store      driven.VectorStore
	embedder   driven.EmbeddingService
	summariser driven.Summariser
	chunker    *chunker.Chunker
	tracker    *AccessTracker

	collection  string
	searchLimit int
	bestEffort  bool
	autoTags    bool
	adoptLegacy bool
	now         func() time.Time
	newID       func() string
}

// DocumentOption configures a DocumentService.
type DocumentOption func(*DocumentService)

// WithSummariser enables abstracts. With bestEffort set, summariser
// failures degrade to an empty abstract instead of failing the write.
func WithSummariser(s driven.Summariser, bestEffort bool) DocumentOption {
	return func(d *DocumentService) {
		d.summariser = s
		d.bestEffort = bestEffort
	}
}

// WithAutoTags asks the summariser for tags when a store has none.
func WithAutoTags(enabled bool) DocumentOption {
	return func(d *DocumentService) { d.autoTags = enabled }
}

// WithDefaultCollection sets the collection used when a request names none.
func WithDefaultCollection(name string) DocumentOption {
	return func(d *DocumentService) { d.collection = name }
}

// WithSearchLimit sets the default number of chunk hits for find and
// documents for list.
func WithSearchLimit(n int) DocumentOption {
	return func(d *DocumentService) { d.searchLimit = n }
}

// WithAdoptLegacy makes reads initialise tracking on legacy records.
func WithAdoptLegacy(enabled bool) DocumentOption {
	return func(d *DocumentService) { d.adoptLegacy = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) DocumentOption {
	return func(d *DocumentService) { d.now = now }
}

// WithIDGenerator overrides document ID generation.
func WithIDGenerator(f func() string) DocumentOption {
	return func(d *DocumentService) { d.newID = f }
}

// NewDocumentService creates the façade.
func NewDocumentService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	ch *chunker.Chunker,
	opts ...DocumentOption,
) *DocumentService {
	d := &DocumentService{
		store:       store,
		embedder:    embedder,
		chunker:     ch,
		collection:  domain.DefaultAppSettings().VectorStore.Collection,
		searchLimit: domain.DefaultAppSettings().VectorStore.SearchLimit,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.tracker = NewAccessTracker(store, d.adoptLegacy, d.now)
	return d
}

// Store creates a new document.
func (s *DocumentService) Store(ctx context.Context, req driving.StoreRequest) (domain.Document, error) {
	if err := validateStore(req); err != nil {
		return domain.Document{}, err
	}
	coll := s.collectionName(req.Collection)

	id := req.DocumentID
	if id == "" {
		id = s.newID()
	} else if _, err := load(ctx, s.store, coll, id); err == nil {
		return domain.Document{}, &domain.ValidationError{Field: "document_id", Reason: "already exists"}
	} else if !isAbsent(err) {
		return domain.Document{}, err
	}

	now := s.now().UTC()
	doc := domain.Document{
		ID:      id,
		Title:   strings.TrimSpace(req.Title),
		Content: req.Content,
		Metadata: domain.Metadata{
			SourceType:     sourceTypeOrDefault(req.SourceType),
			SourceRef:      req.SourceRef,
			Category:       strings.TrimSpace(req.Category),
			Tags:           normaliseTags(req.Tags),
			CreatedAt:      now,
			UpdatedAt:      now,
			LastAccessedAt: &now,
		},
	}

	if s.autoTags && len(doc.Metadata.Tags) == 0 {
		tags, err := s.suggestTags(ctx, doc)
		if err != nil {
			return domain.Document{}, err
		}
		doc.Metadata.Tags = tags
	}

	if err := s.write(ctx, coll, &doc, 0); err != nil {
		return domain.Document{}, err
	}
	logger.Info("stored %s %q as %d chunks in %s", doc.ID, doc.Title, doc.ChunkCount, coll)
	return visible(doc), nil
}

// Find runs a similarity search and groups hits into documents, best first.
func (s *DocumentService) Find(ctx context.Context, req driving.FindRequest) ([]domain.DocumentResult, error) {
	logger.Section("Find")
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, &domain.ValidationError{Field: "query", Reason: "is required"}
	}
	coll := s.collectionName(req.Collection)
	if ok, err := s.exists(ctx, coll); err != nil || !ok {
		return []domain.DocumentResult{}, err
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.searchLimit
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &domain.BackendError{Op: "embed query", Collection: coll, Err: err}
	}
	hits, err := s.store.Search(ctx, coll, vector, req.Filter, limit)
	if err != nil {
		return nil, &domain.BackendError{Op: "search", Collection: coll, Err: err}
	}
	logger.Debug("find %q in %s: %d chunk hits", query, coll, len(hits))

	var order []string
	best := make(map[string]float64)
	for _, h := range hits {
		if !req.Filter.MatchChunk(h.Chunk) {
			continue
		}
		score, seen := best[h.DocumentID]
		if !seen {
			order = append(order, h.DocumentID)
		}
		if !seen || h.Score > score {
			best[h.DocumentID] = h.Score
		}
	}

	loaded, err := loadAll(ctx, s.store, coll, order)
	if err != nil {
		return nil, err
	}
	tracked, err := s.tracker.Track(ctx, coll, loaded, domain.WeightFind)
	if err != nil {
		return nil, err
	}

	results := make([]domain.DocumentResult, len(tracked))
	for i, doc := range tracked {
		results[i] = domain.DocumentResult{Document: doc, Score: best[doc.ID]}
	}
	slices.SortStableFunc(results, func(a, b domain.DocumentResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return results, nil
}

// List enumerates documents matching the filter, up to the limit.
func (s *DocumentService) List(ctx context.Context, req driving.ListRequest) ([]domain.DocumentResult, error) {
	coll := s.collectionName(req.Collection)
	if ok, err := s.exists(ctx, coll); err != nil || !ok {
		return []domain.DocumentResult{}, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.searchLimit
	}

	var (
		order  []string
		groups = make(map[string][]domain.Chunk)
		offset string
	)
scroll:
	for {
		page, next, err := s.store.Scroll(ctx, coll, req.Filter, scrollPageSize, offset)
		if err != nil {
			return nil, &domain.BackendError{Op: "scroll", Collection: coll, Err: err}
		}
		for _, c := range page {
			if !req.Filter.MatchChunk(c) {
				continue
			}
			if _, seen := groups[c.DocumentID]; !seen {
				if len(order) == limit {
					break scroll
				}
				order = append(order, c.DocumentID)
			}
			groups[c.DocumentID] = append(groups[c.DocumentID], c)
		}
		if next == "" || len(page) == 0 {
			break
		}
		offset = next
	}

	loaded, err := loadAll(ctx, s.store, coll, order)
	if err != nil {
		return nil, err
	}
	tracked, err := s.tracker.Track(ctx, coll, loaded, domain.WeightList)
	if err != nil {
		return nil, err
	}
	results := make([]domain.DocumentResult, len(tracked))
	for i, doc := range tracked {
		results[i] = domain.DocumentResult{Document: doc}
	}
	return results, nil
}

// Get loads one document by ID without tracking an access.
func (s *DocumentService) Get(ctx context.Context, collection, documentID string) (domain.Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return domain.Document{}, &domain.ValidationError{Field: "document_id", Reason: "is required"}
	}
	coll := s.collectionName(collection)
	r, err := load(ctx, s.store, coll, documentID)
	if err != nil {
		return domain.Document{}, notFoundIfAbsent(err, coll, domain.ByDocumentID(documentID))
	}
	return r.doc, nil
}

// Update replaces the content of the single composed document the filter resolves to.
func (s *DocumentService) Update(ctx context.Context, req driving.UpdateRequest) (domain.Outcome, error) {
	if strings.TrimSpace(req.Content) == "" {
		return domain.Outcome{}, &domain.ValidationError{Field: "content", Reason: "is required"}
	}
	if req.Patch.SourceRef != nil {
		return domain.Outcome{}, &domain.ValidationError{
			Field: "source_ref", Reason: "cannot be set on composed documents",
		}
	}
	if err := checkSourceType(req.Patch); err != nil {
		return domain.Outcome{}, err
	}
	coll := s.collectionName(req.Collection)
	target, outcome, err := s.resolveOne(ctx, coll, req.Filter, "update")
	if err != nil || outcome.IsAmbiguous() {
		return outcome, err
	}

	doc, err := s.rewrite(ctx, coll, target, req.Content, req.Title, req.Patch)
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.Applied(domain.MutationResult{
		Documents: []domain.Document{doc},
		Chunks:    doc.ChunkCount,
		Message:   fmt.Sprintf("Updated document %q (%d chunks).", doc.Title, doc.ChunkCount),
	}), nil
}

// Append adds text to the end of the single composed document the filter resolves to.
func (s *DocumentService) Append(ctx context.Context, req driving.AppendRequest) (domain.Outcome, error) {
	if strings.TrimSpace(req.Content) == "" {
		return domain.Outcome{}, &domain.ValidationError{Field: "content", Reason: "is required"}
	}
	coll := s.collectionName(req.Collection)
	target, outcome, err := s.resolveOne(ctx, coll, req.Filter, "append to")
	if err != nil || outcome.IsAmbiguous() {
		return outcome, err
	}

	// Without full_content on chunk 0 the rewrite would drop the existing text.
	if target.doc.Content == "" {
		return domain.Outcome{}, &domain.ConsistencyViolation{
			DocumentID: target.doc.ID,
			Reason:     "full_content missing on chunk 0, cannot append",
		}
	}
	content := target.doc.Content + appendSeparator + req.Content
	doc, err := s.rewrite(ctx, coll, target, content, "", driving.MetadataPatch{})
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.Applied(domain.MutationResult{
		Documents: []domain.Document{doc},
		Chunks:    doc.ChunkCount,
		Message:   fmt.Sprintf("Appended to document %q (%d chunks).", doc.Title, doc.ChunkCount),
	}), nil
}

// SetMetadata patches metadata on every matching document.
func (s *DocumentService) SetMetadata(
	ctx context.Context, req driving.MetadataRequest,
) (domain.MutationResult, error) {
	if req.Patch.IsEmpty() {
		return domain.MutationResult{}, &domain.ValidationError{Field: "metadata", Reason: "has no fields to change"}
	}
	if err := checkSourceType(req.Patch); err != nil {
		return domain.MutationResult{}, err
	}
	matches, err := s.resolveMany(ctx, req.Collection, req.Filter)
	if err != nil || len(matches) == 0 {
		return domain.MutationResult{Message: NoMatchMessage}, err
	}
	if req.Patch.SourceRef != nil {
		for _, r := range matches {
			if r.doc.Metadata.SourceType.IsComposed() {
				return domain.MutationResult{}, &domain.ValidationError{
					Field: "source_ref", Reason: "cannot be set on composed document " + r.doc.ID,
				}
			}
		}
	}

	return s.patchAll(ctx, s.collectionName(req.Collection), matches, "Updated metadata on",
		func(m *domain.Metadata) bool {
			applyPatch(m, req.Patch)
			return true
		})
}

// AddTags adds tags to every matching document.
func (s *DocumentService) AddTags(ctx context.Context, req driving.TagsRequest) (domain.MutationResult, error) {
	tags := normaliseTags(req.Tags)
	if len(tags) == 0 {
		return domain.MutationResult{}, &domain.ValidationError{Field: "tags", Reason: "is required"}
	}
	matches, err := s.resolveMany(ctx, req.Collection, req.Filter)
	if err != nil || len(matches) == 0 {
		return domain.MutationResult{Message: NoMatchMessage}, err
	}
	return s.patchAll(ctx, s.collectionName(req.Collection), matches, "Added tags to",
		func(m *domain.Metadata) bool {
			changed := false
			for _, tag := range tags {
				if !m.HasTag(tag) {
					m.Tags = append(m.Tags, tag)
					changed = true
				}
			}
			return changed
		})
}

// RemoveTags removes tags from every matching document.
func (s *DocumentService) RemoveTags(ctx context.Context, req driving.TagsRequest) (domain.MutationResult, error) {
	tags := normaliseTags(req.Tags)
	if len(tags) == 0 {
		return domain.MutationResult{}, &domain.ValidationError{Field: "tags", Reason: "is required"}
	}
	matches, err := s.resolveMany(ctx, req.Collection, req.Filter)
	if err != nil || len(matches) == 0 {
		return domain.MutationResult{Message: NoMatchMessage}, err
	}
	return s.patchAll(ctx, s.collectionName(req.Collection), matches, "Removed tags from",
		func(m *domain.Metadata) bool {
			before := len(m.Tags)
			m.Tags = slices.DeleteFunc(m.Tags, func(t string) bool { return slices.Contains(tags, t) })
			return len(m.Tags) != before
		})
}

// Delete removes the single composed document the filter resolves to.
func (s *DocumentService) Delete(ctx context.Context, req driving.DeleteRequest) (domain.Outcome, error) {
	coll := s.collectionName(req.Collection)
	target, outcome, err := s.resolveOne(ctx, coll, req.Filter, "delete")
	if err != nil || outcome.IsAmbiguous() {
		return outcome, err
	}
	if err := s.store.Delete(ctx, coll, target.keys); err != nil {
		return domain.Outcome{}, &domain.BackendError{
			Op: "delete document", Collection: coll, DocumentID: target.doc.ID, Partial: true, Err: err,
		}
	}
	logger.Info("deleted %s %q (%d chunks) from %s", target.doc.ID, target.doc.Title, len(target.keys), coll)
	return domain.Applied(domain.MutationResult{
		Documents: []domain.Document{target.doc},
		Chunks:    len(target.keys),
		Message:   fmt.Sprintf("Deleted document %q (%d chunks).", target.doc.Title, len(target.keys)),
	}), nil
}

// Collections lists the backend collections.
func (s *DocumentService) Collections(ctx context.Context) ([]string, error) {
	names, err := s.store.Collections(ctx)
	if err != nil {
		return nil, &domain.BackendError{Op: "list collections", Err: err}
	}
	return names, nil
}

// Replace writes a document under an explicit ID regardless of source type.
// An existing document keeps its created_at and access tracking.
func (s *DocumentService) Replace(ctx context.Context, req driving.StoreRequest) (domain.Document, error) {
	if strings.TrimSpace(req.DocumentID) == "" {
		return domain.Document{}, &domain.ValidationError{Field: "document_id", Reason: "is required"}
	}
	if err := validateStore(req); err != nil {
		return domain.Document{}, err
	}
	coll := s.collectionName(req.Collection)

	now := s.now().UTC()
	meta := domain.Metadata{CreatedAt: now, LastAccessedAt: &now}
	previous := 0
	existing, err := load(ctx, s.store, coll, req.DocumentID)
	switch {
	case err == nil:
		meta = existing.doc.Metadata.Clone()
		previous = existing.doc.ChunkCount
	case !isAbsent(err):
		return domain.Document{}, err
	}
	meta.SourceType = sourceTypeOrDefault(req.SourceType)
	meta.SourceRef = req.SourceRef
	meta.Category = strings.TrimSpace(req.Category)
	meta.Tags = normaliseTags(req.Tags)
	meta.UpdatedAt = now

	doc := domain.Document{
		ID:       req.DocumentID,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		Metadata: meta,
	}
	if existing.doc.Abstract != "" && existing.doc.Content == req.Content {
		doc.Abstract = existing.doc.Abstract
	}
	if err := s.write(ctx, coll, &doc, previous); err != nil {
		return domain.Document{}, err
	}
	logger.Info("replaced %s %q as %d chunks in %s", doc.ID, doc.Title, doc.ChunkCount, coll)
	return visible(doc), nil
}

// Purge deletes a document by ID regardless of source type.
func (s *DocumentService) Purge(ctx context.Context, collection, documentID string) (domain.MutationResult, error) {
	if strings.TrimSpace(documentID) == "" {
		return domain.MutationResult{}, &domain.ValidationError{Field: "document_id", Reason: "is required"}
	}
	coll := s.collectionName(collection)
	filter := domain.ByDocumentID(documentID)
	chunks, err := scrollAll(ctx, s.store, coll, filter)
	if err != nil {
		return domain.MutationResult{}, notFoundIfAbsent(err, coll, filter)
	}
	if len(chunks) == 0 {
		return domain.MutationResult{}, &domain.NotFoundError{Collection: coll, Filter: filter}
	}
	// Purge removes whatever is there, so it also clears inconsistent sets.
	if err := s.store.Delete(ctx, coll, domain.Keys(chunks)); err != nil {
		return domain.MutationResult{}, &domain.BackendError{
			Op: "purge document", Collection: coll, DocumentID: documentID, Partial: true, Err: err,
		}
	}
	doc := domain.Document{ID: documentID, Title: chunks[0].Title, Metadata: chunks[0].Metadata, ChunkCount: len(chunks)}
	return domain.MutationResult{
		Documents: []domain.Document{doc},
		Chunks:    len(chunks),
		Message:   fmt.Sprintf("Purged document %q (%d chunks).", doc.Title, len(chunks)),
	}, nil
}

// resolveOne resolves a filter that must match exactly one document whose
// content is writable. Several matches yield the ambiguous outcome.
func (s *DocumentService) resolveOne(
	ctx context.Context, coll string, filter domain.Filter, op string,
) (resolved, domain.Outcome, error) {
	matches, err := s.resolveMany(ctx, coll, filter)
	if err != nil {
		return resolved{}, domain.Outcome{}, err
	}
	switch len(matches) {
	case 0:
		return resolved{}, domain.Outcome{}, &domain.NotFoundError{Collection: coll, Filter: filter}
	case 1:
	default:
		logger.Debug("%s: %s matched %d documents, returning candidates", op, filter, len(matches))
		return resolved{}, domain.AmbiguousCandidates(documentsOf(matches)), nil
	}

	target := matches[0]
	meta := target.doc.Metadata
	if !meta.SourceType.ContentWritable() {
		return resolved{}, domain.Outcome{}, &domain.ReadOnlyContentError{
			DocumentID: target.doc.ID,
			Title:      target.doc.Title,
			SourceType: meta.SourceType,
			SourceRef:  meta.SourceRef,
			Op:         op,
		}
	}
	return target, domain.Applied(domain.MutationResult{}), nil
}

// resolveMany returns every document a mutation filter matches.
// An empty filter is rejected so a mutation can never address everything.
func (s *DocumentService) resolveMany(ctx context.Context, collection string, filter domain.Filter) ([]resolved, error) {
	if filter.IsEmpty() {
		return nil, &domain.ValidationError{Field: "filter", Reason: "needs at least one criterion"}
	}
	coll := s.collectionName(collection)
	ok, err := s.exists(ctx, coll)
	if err != nil || !ok {
		return nil, err
	}
	return resolveFilter(ctx, s.store, coll, filter)
}

// rewrite re-chunks a composed document with new content and replaces its chunk set.
func (s *DocumentService) rewrite(
	ctx context.Context, coll string, target resolved, content, title string, patch driving.MetadataPatch,
) (domain.Document, error) {
	meta := target.doc.Metadata.Clone()
	applyPatch(&meta, patch)
	meta.UpdatedAt = s.now().UTC()
	s.tracker.Stamp(&meta, domain.WeightUpdate)

	doc := domain.Document{
		ID:       target.doc.ID,
		Title:    target.doc.Title,
		Content:  content,
		Metadata: meta,
	}
	if t := strings.TrimSpace(title); t != "" {
		doc.Title = t
	}
	if err := s.write(ctx, coll, &doc, target.doc.ChunkCount); err != nil {
		return domain.Document{}, err
	}
	logger.Info("rewrote %s %q as %d chunks (was %d)", doc.ID, doc.Title, doc.ChunkCount, target.doc.ChunkCount)
	return doc, nil
}

// patchAll applies mutate to each document's metadata and writes the changed
// ones back as one metadata batch per document.
func (s *DocumentService) patchAll(
	ctx context.Context, coll string, matches []resolved, verb string, mutate func(*domain.Metadata) bool,
) (domain.MutationResult, error) {
	now := s.now().UTC()
	var result domain.MutationResult
	for _, r := range matches {
		meta := r.doc.Metadata.Clone()
		if !mutate(&meta) {
			continue
		}
		meta.UpdatedAt = now
		if err := s.store.SetMetadata(ctx, coll, r.keys, meta); err != nil {
			return result, &domain.BackendError{
				Op: "set metadata", Collection: coll, DocumentID: r.doc.ID, Partial: true, Err: err,
			}
		}
		doc := r.doc
		doc.Metadata = meta
		result.Documents = append(result.Documents, doc)
		result.Chunks += len(r.keys)
	}
	result.Message = fmt.Sprintf("%s %d of %d matching document(s).", verb, len(result.Documents), len(matches))
	return result, nil
}

// write materialises doc into chunks and replaces its stored chunk set.
// Phase one upserts the new set over the old indices; phase two deletes
// indices the new set no longer covers. previous is the old chunk count.
func (s *DocumentService) write(ctx context.Context, coll string, doc *domain.Document, previous int) error {
	chunks, err := s.materialise(ctx, doc)
	if err != nil {
		return err
	}
	if err := s.store.EnsureCollection(ctx, coll, s.embedder.Dimensions()); err != nil {
		return &domain.BackendError{Op: "ensure collection", Collection: coll, Err: err}
	}
	if err := s.store.Upsert(ctx, coll, chunks); err != nil {
		return &domain.BackendError{
			Op: "upsert chunks", Collection: coll, DocumentID: doc.ID, Partial: previous > 0, Err: err,
		}
	}
	if stale := domain.KeyRange(doc.ID, len(chunks), previous); len(stale) > 0 {
		if err := s.store.Delete(ctx, coll, stale); err != nil {
			return &domain.BackendError{
				Op: "delete stale chunks", Collection: coll, DocumentID: doc.ID, Partial: true, Err: err,
			}
		}
	}
	doc.ChunkCount = len(chunks)
	return nil
}

// materialise runs every provider call a write needs before anything is written.
func (s *DocumentService) materialise(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	texts := s.chunker.Split(doc.Content)
	if len(texts) == 0 {
		return nil, &domain.ValidationError{Field: "content", Reason: "is required"}
	}

	if doc.Abstract == "" {
		abstract, err := s.summarise(ctx, *doc)
		if err != nil {
			return nil, err
		}
		doc.Abstract = abstract
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, &domain.BackendError{Op: "embed chunks", DocumentID: doc.ID, Err: err}
	}
	if len(embeddings) != len(texts) {
		return nil, &domain.BackendError{
			Op:         "embed chunks",
			DocumentID: doc.ID,
			Err:        fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(texts)),
		}
	}
	return domain.Materialise(*doc, texts, embeddings), nil
}

func (s *DocumentService) summarise(ctx context.Context, doc domain.Document) (string, error) {
	if s.summariser == nil {
		return "", nil
	}
	abstract, err := s.summariser.Summarise(ctx, doc.Title, doc.Content)
	if err == nil {
		return strings.TrimSpace(abstract), nil
	}
	if s.bestEffort {
		logger.Warn("summary for %q failed, storing without abstract: %v", doc.Title, err)
		return "", nil
	}
	return "", &domain.BackendError{Op: "summarise", DocumentID: doc.ID, Err: err}
}

func (s *DocumentService) suggestTags(ctx context.Context, doc domain.Document) ([]string, error) {
	if s.summariser == nil {
		return nil, nil
	}
	tags, err := s.summariser.SuggestTags(ctx, doc.Title, doc.Content)
	if err == nil {
		return normaliseTags(tags), nil
	}
	if s.bestEffort {
		logger.Warn("tag suggestion for %q failed: %v", doc.Title, err)
		return nil, nil
	}
	return nil, &domain.BackendError{Op: "suggest tags", DocumentID: doc.ID, Err: err}
}

func (s *DocumentService) collectionName(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return s.collection
}

func (s *DocumentService) exists(ctx context.Context, coll string) (bool, error) {
	ok, err := s.store.CollectionExists(ctx, coll)
	if err != nil {
		return false, &domain.BackendError{Op: "check collection", Collection: coll, Err: err}
	}
	return ok, nil
}

func validateStore(req driving.StoreRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return &domain.ValidationError{Field: "title", Reason: "is required"}
	}
	if strings.TrimSpace(req.Content) == "" {
		return &domain.ValidationError{Field: "content", Reason: "is required"}
	}
	st := sourceTypeOrDefault(req.SourceType)
	if st.IsComposed() && req.SourceRef != "" {
		return &domain.ValidationError{Field: "source_ref", Reason: "must be empty for composed documents"}
	}
	if !st.IsComposed() && strings.TrimSpace(req.SourceRef) == "" {
		return &domain.ValidationError{Field: "source_ref", Reason: "is required for " + st.String() + " documents"}
	}
	return nil
}

func checkSourceType(p driving.MetadataPatch) error {
	if p.SourceType != nil {
		return &domain.ValidationError{Field: "source_type", Reason: "cannot be changed"}
	}
	return nil
}

func applyPatch(m *domain.Metadata, p driving.MetadataPatch) {
	if p.Category != nil {
		m.Category = strings.TrimSpace(*p.Category)
	}
	if p.SourceRef != nil {
		m.SourceRef = *p.SourceRef
	}
	if p.Tags != nil {
		m.Tags = normaliseTags(p.Tags)
	}
}

func sourceTypeOrDefault(st domain.SourceType) domain.SourceType {
	if st == "" {
		return domain.SourceComposed
	}
	return st
}

// normaliseTags trims, drops empties and de-duplicates, keeping order.
func normaliseTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// visible drops content that is not stored for external documents.
func visible(doc domain.Document) domain.Document {
	if !doc.Metadata.SourceType.IsComposed() {
		doc.Content = ""
	}
	return doc
}

func isAbsent(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrCollectionNotFound)
}

func notFoundIfAbsent(err error, coll string, filter domain.Filter) error {
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return &domain.NotFoundError{Collection: coll, Filter: filter}
	}
	return err
}
