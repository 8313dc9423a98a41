// Package qdrant provides a vector store adapter for the Qdrant REST API.
//
// Each chunk is one point. Point ids are derived deterministically from
// (document_id, chunk_index), so rewriting a document overwrites its points
// in place and retries are idempotent.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/payload"
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultURL     = "http://localhost:6333"
	DefaultTimeout = 30 * time.Second

	maxErrorBodyBytes = 1024
)

var pointIDNamespace = uuid.MustParse("6f1d2c0e-8b7a-5e43-9a51-3c2d7e0f4b19")

// indexedFields are created as payload indexes when a collection is bootstrapped.
var indexedFields = []struct {
	name   string
	schema string
}{
	{payload.FieldDocumentID, "keyword"},
	{payload.FieldChunkIndex, "integer"},
	{payload.FieldSourceType, "keyword"},
	{payload.FieldCategory, "keyword"},
	{payload.FieldTags, "keyword"},
}

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the REST endpoint (default: http://localhost:6333).
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
}

// Store is a driven.VectorStore backed by Qdrant.
type Store struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.SugaredLogger
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type point struct {
	ID      string          `json:"id"`
	Vector  []float32       `json:"vector"`
	Payload payload.Payload `json:"payload"`
}

type scoredPoint struct {
	Score   float64         `json:"score"`
	Payload payload.Payload `json:"payload"`
}

// NewStore creates a Qdrant store. No request is made until first use.
func NewStore(cfg Config) *Store {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     logger.Named("qdrant"),
	}
}

// PointID returns the deterministic point id for a chunk key.
func PointID(key domain.ChunkKey) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(key.DocumentID+"|"+strconv.Itoa(key.Index))).String()
}

// Ping checks the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	const op = "ping"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/readyz", http.NoBody)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	s.setHeaders(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("ready check returned status=%d", resp.StatusCode),
		}
	}
	return nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

// Collections lists collection names in sorted order.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	var result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	}
	if err := s.doJSON(ctx, "list_collections", http.MethodGet, "/collections", nil, &result); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Collections))
	for _, c := range result.Collections {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names, nil
}

// CollectionExists reports whether the collection exists.
func (s *Store) CollectionExists(ctx context.Context, collection string) (bool, error) {
	var result struct {
		Exists bool `json:"exists"`
	}
	if err := s.doJSON(ctx, "collection_exists", http.MethodGet, collectionPath(collection, "/exists"), nil, &result); err != nil {
		return false, err
	}
	return result.Exists, nil
}

// EnsureCollection creates a cosine collection with payload indexes if it
// does not exist. An existing collection with a different size is an error.
func (s *Store) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	const op = "ensure_collection"

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		size, err := s.vectorSize(ctx, collection)
		if err != nil {
			return err
		}
		if size != 0 && size != dimensions {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("collection %q has dimension %d, not %d", collection, size, dimensions), nil)
		}
		return nil
	}

	create := map[string]any{
		"vectors": map[string]any{"size": dimensions, "distance": "Cosine"},
	}
	if err := s.doJSON(ctx, op, http.MethodPut, collectionPath(collection, ""), create, nil); err != nil {
		return err
	}
	for _, field := range indexedFields {
		body := map[string]any{"field_name": field.name, "field_schema": field.schema}
		if err := s.doJSON(ctx, op, http.MethodPut, collectionPath(collection, "/index?wait=true"), body, nil); err != nil {
			return err
		}
	}
	s.log.Infow("created collection", "collection", collection, "dimensions", dimensions)
	return nil
}

// Upsert writes chunks as points in one request.
func (s *Store) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]point, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return opErr("upsert", OperationErrorValidation,
				fmt.Sprintf("chunk %s/%d has no embedding", c.DocumentID, c.Index), nil)
		}
		points[i] = point{
			ID:      PointID(c.Key()),
			Vector:  c.Embedding,
			Payload: payload.FromChunk(c),
		}
	}
	return s.doJSON(ctx, "upsert", http.MethodPut, collectionPath(collection, "/points?wait=true"),
		map[string]any{"points": points}, nil)
}

// Scroll returns a page of matching points. The offset is a point id.
func (s *Store) Scroll(
	ctx context.Context, collection string, filter domain.Filter, limit int, offset string,
) ([]domain.Chunk, string, error) {
	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if f := translateFilter(filter); f != nil {
		req["filter"] = f
	}
	if offset != "" {
		req["offset"] = offset
	}

	var result struct {
		Points []struct {
			Payload payload.Payload `json:"payload"`
		} `json:"points"`
		NextPageOffset json.RawMessage `json:"next_page_offset"`
	}
	if err := s.doJSON(ctx, "scroll", http.MethodPost, collectionPath(collection, "/points/scroll"), req, &result); err != nil {
		return nil, "", err
	}

	chunks := make([]domain.Chunk, 0, len(result.Points))
	for _, p := range result.Points {
		c, err := p.Payload.Chunk()
		if err != nil {
			return nil, "", opErr("scroll", OperationErrorDecodeFailed, "decode payload failed", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, decodePointID(result.NextPageOffset), nil
}

// Search returns the nearest points to vector, best first.
func (s *Store) Search(
	ctx context.Context, collection string, vector []float32, filter domain.Filter, limit int,
) ([]domain.ScoredChunk, error) {
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if f := translateFilter(filter); f != nil {
		req["filter"] = f
	}

	var result []scoredPoint
	if err := s.doJSON(ctx, op, http.MethodPost, collectionPath(collection, "/points/search"), req, &result); err != nil {
		return nil, err
	}

	hits := make([]domain.ScoredChunk, 0, len(result))
	for _, p := range result {
		c, err := p.Payload.Chunk()
		if err != nil {
			return nil, opErr(op, OperationErrorDecodeFailed, "decode payload failed", err)
		}
		hits = append(hits, domain.ScoredChunk{Chunk: c, Score: p.Score})
	}
	return hits, nil
}

// SetMetadata overwrites the metadata key of the given points in one request.
// Other payload keys are left untouched.
func (s *Store) SetMetadata(
	ctx context.Context, collection string, keys []domain.ChunkKey, metadata domain.Metadata,
) error {
	if len(keys) == 0 {
		return nil
	}
	req := map[string]any{
		"payload": map[string]any{"metadata": payload.FromMetadata(metadata)},
		"points":  pointIDs(keys),
	}
	return s.doJSON(ctx, "set_payload", http.MethodPost, collectionPath(collection, "/points/payload?wait=true"), req, nil)
}

// Delete removes the given points. Missing points are ignored by Qdrant.
func (s *Store) Delete(ctx context.Context, collection string, keys []domain.ChunkKey) error {
	if len(keys) == 0 {
		return nil
	}
	return s.doJSON(ctx, "delete", http.MethodPost, collectionPath(collection, "/points/delete?wait=true"),
		map[string]any{"points": pointIDs(keys)}, nil)
}

func (s *Store) vectorSize(ctx context.Context, collection string) (int, error) {
	var info struct {
		Config struct {
			Params struct {
				Vectors json.RawMessage `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	if err := s.doJSON(ctx, "collection_info", http.MethodGet, collectionPath(collection, ""), nil, &info); err != nil {
		return 0, err
	}
	// Named-vector collections report a map; only the unnamed form is sized here.
	var single struct {
		Size int `json:"size"`
	}
	if err := json.Unmarshal(info.Config.Params.Vectors, &single); err != nil {
		return 0, nil
	}
	return single.Size, nil
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *Store) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	s.setHeaders(req)

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	s.log.Debugw("request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return &OperationError{
			Code:       OperationErrorNotFound,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    truncateBody(raw),
			Cause:      domain.ErrCollectionNotFound,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if msg := parseEnvelopeStatus(env.Status); msg != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") || strings.EqualFold(statusString, "acknowledged") ||
			strings.EqualFold(statusString, "completed") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}
	return "qdrant status=" + status
}

// decodePointID renders a point id or page offset, which Qdrant returns as
// either a UUID string or an unsigned integer.
func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatUint(n, 10)
	}
	return strings.TrimSpace(string(raw))
}

func pointIDs(keys []domain.ChunkKey) []string {
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = PointID(k)
	}
	return ids
}

func collectionPath(collection, suffix string) string {
	return "/collections/" + collection + suffix
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}
