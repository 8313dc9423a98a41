package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// listAllLimit caps unfiltered listings.
const listAllLimit = 100

type storeRequest struct {
	DocumentID string   `json:"document_id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Collection string   `json:"collection"`
	SourceType string   `json:"source_type"`
	SourceRef  string   `json:"source_ref"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
}

// replaceRequest carries optional fields; unset ones keep their stored value.
type replaceRequest struct {
	Content    string    `json:"content"`
	Collection string    `json:"collection"`
	Title      *string   `json:"title"`
	SourceType *string   `json:"source_type"`
	SourceRef  *string   `json:"source_ref"`
	Category   *string   `json:"category"`
	Tags       *[]string `json:"tags"`
}

type syncResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	DocumentID string `json:"document_id,omitempty"`
	ChunkCount int    `json:"chunk_count"`
}

type metadataJSON struct {
	SourceType     string     `json:"source_type"`
	SourceRef      string     `json:"source_ref,omitempty"`
	Category       string     `json:"category,omitempty"`
	Tags           []string   `json:"tags"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	RelevanceScore int        `json:"relevance_score"`
}

type documentSummary struct {
	DocumentID string       `json:"document_id"`
	Title      string       `json:"title"`
	Abstract   string       `json:"abstract,omitempty"`
	ChunkCount int          `json:"chunk_count"`
	Metadata   metadataJSON `json:"metadata"`
}

type listResponse struct {
	Success   bool              `json:"success"`
	Count     int               `json:"count"`
	Documents []documentSummary `json:"documents"`
}

func toMetadataJSON(m domain.Metadata) metadataJSON {
	out := metadataJSON{
		SourceType:     string(m.SourceType),
		SourceRef:      m.SourceRef,
		Category:       m.Category,
		Tags:           append([]string{}, m.Tags...),
		CreatedAt:      m.CreatedAt,
		LastAccessedAt: m.LastAccessedAt,
		RelevanceScore: m.RelevanceScore,
	}
	if !m.UpdatedAt.IsZero() {
		updated := m.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	sreq := driving.StoreRequest{
		Collection: req.Collection,
		DocumentID: req.DocumentID,
		Title:      req.Title,
		Content:    req.Content,
		Category:   req.Category,
		Tags:       req.Tags,
		SourceType: domain.SourceType(req.SourceType),
		SourceRef:  req.SourceRef,
	}

	var (
		doc domain.Document
		err error
	)
	if req.DocumentID != "" {
		doc, err = s.docs.Replace(r.Context(), sreq)
	} else {
		doc, err = s.docs.Store(r.Context(), sreq)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, syncResponse{
		Success:    true,
		Message:    fmt.Sprintf("Stored document %q with %d chunk(s).", doc.Title, doc.ChunkCount),
		DocumentID: doc.ID,
		ChunkCount: doc.ChunkCount,
	})
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")

	var req replaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	collection := req.Collection
	if collection == "" {
		collection = r.URL.Query().Get("collection")
	}

	existing, err := s.docs.Get(r.Context(), collection, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sreq := driving.StoreRequest{
		Collection: collection,
		DocumentID: id,
		Title:      existing.Title,
		Content:    req.Content,
		Category:   existing.Metadata.Category,
		Tags:       existing.Metadata.Tags,
		SourceType: existing.Metadata.SourceType,
		SourceRef:  existing.Metadata.SourceRef,
	}
	if req.Title != nil && *req.Title != "" {
		sreq.Title = *req.Title
	}
	if req.SourceType != nil {
		sreq.SourceType = domain.SourceType(*req.SourceType)
	}
	if req.SourceRef != nil {
		sreq.SourceRef = *req.SourceRef
	}
	if req.Category != nil {
		sreq.Category = *req.Category
	}
	if req.Tags != nil {
		sreq.Tags = *req.Tags
	}

	doc, err := s.docs.Replace(r.Context(), sreq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		Success:    true,
		Message:    fmt.Sprintf("Updated document %q with %d chunk(s).", doc.Title, doc.ChunkCount),
		DocumentID: doc.ID,
		ChunkCount: doc.ChunkCount,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")

	res, err := s.docs.Purge(r.Context(), r.URL.Query().Get("collection"), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		Success:    true,
		Message:    res.Message,
		DocumentID: id,
		ChunkCount: res.Chunks,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.Filter{
		SourceRef:  q.Get("source_ref"),
		SourceType: domain.SourceType(q.Get("source_type")),
		Category:   q.Get("category"),
		Title:      q.Get("title"),
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	if limit == 0 && filter.IsEmpty() {
		limit = listAllLimit
	}

	results, err := s.docs.List(r.Context(), driving.ListRequest{
		Collection: q.Get("collection"),
		Filter:     filter,
		Limit:      limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	docs := make([]documentSummary, 0, len(results))
	for _, res := range results {
		docs = append(docs, documentSummary{
			DocumentID: res.ID,
			Title:      res.Title,
			Abstract:   res.Abstract,
			ChunkCount: res.ChunkCount,
			Metadata:   toMetadataJSON(res.Metadata),
		})
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Count: len(docs), Documents: docs})
}
