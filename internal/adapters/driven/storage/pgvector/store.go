// Package pgvector provides a vector store backed by PostgreSQL with the
// pgvector extension.
//
// All collections share one chunks table. Each collection gets a partial
// HNSW index over its rows, cast to the collection's fixed dimension.
package pgvector

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/payload"
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS docindex_collections (
		name TEXT PRIMARY KEY,
		dimensions INTEGER NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS docindex_chunks (
		seq BIGSERIAL,
		collection TEXT NOT NULL REFERENCES docindex_collections(name) ON DELETE CASCADE,
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		payload JSONB NOT NULL,
		embedding vector NOT NULL,
		PRIMARY KEY (collection, document_id, chunk_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_docindex_chunks_seq ON docindex_chunks (collection, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_docindex_chunks_tags ON docindex_chunks USING gin ((payload->'metadata'->'tags'))`,
}

// Store is a pgvector-backed driven.VectorStore.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn and applies the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Collections lists collection names in sorted order.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM docindex_collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CollectionExists reports whether the collection exists.
func (s *Store) CollectionExists(ctx context.Context, collection string) (bool, error) {
	_, err := s.dimensions(ctx, collection)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return false, nil
	}
	return err == nil, err
}

// EnsureCollection registers the collection and creates its HNSW index.
func (s *Store) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	existing, err := s.dimensions(ctx, collection)
	switch {
	case err == nil:
		if existing != dimensions {
			return fmt.Errorf("collection %q has dimension %d, not %d", collection, existing, dimensions)
		}
		return nil
	case !errors.Is(err, domain.ErrCollectionNotFound):
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO docindex_collections (name, dimensions) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		collection, dimensions); err != nil {
		return fmt.Errorf("create collection %q: %w", collection, err)
	}
	if _, err := s.db.ExecContext(ctx, indexDDL(collection, dimensions)); err != nil {
		return fmt.Errorf("create index for %q: %w", collection, err)
	}
	return nil
}

// Upsert writes chunks in one transaction. Overwritten rows keep their seq.
func (s *Store) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error {
	dims, err := s.dimensions(ctx, collection)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if len(c.Embedding) != dims {
			return fmt.Errorf("chunk %s/%d: vector has %d dimensions, collection expects %d",
				c.DocumentID, c.Index, len(c.Embedding), dims)
		}
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range chunks {
			data, err := payload.Marshal(c)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO docindex_chunks (collection, document_id, chunk_index, payload, embedding)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (collection, document_id, chunk_index) DO UPDATE SET
					payload = EXCLUDED.payload,
					embedding = EXCLUDED.embedding
			`, collection, c.DocumentID, c.Index, string(data), formatVector(c.Embedding)); err != nil {
				return fmt.Errorf("upsert chunk %s/%d: %w", c.DocumentID, c.Index, err)
			}
		}
		return nil
	})
}

// Scroll returns a page of matching chunks in insertion order.
// The offset is the seq of the last row of the previous page.
func (s *Store) Scroll(
	ctx context.Context, collection string, filter domain.Filter, limit int, offset string,
) ([]domain.Chunk, string, error) {
	if _, err := s.dimensions(ctx, collection); err != nil {
		return nil, "", err
	}

	after := int64(0)
	if offset != "" {
		var err error
		if after, err = strconv.ParseInt(offset, 10, 64); err != nil || after < 0 {
			return nil, "", fmt.Errorf("invalid scroll offset %q", offset)
		}
	}

	q := newQuery(collection)
	q.filter(filter)
	where := q.where() + " AND seq > " + q.arg(after)
	query := "SELECT seq, payload FROM docindex_chunks WHERE " + where + " ORDER BY seq"
	if limit > 0 {
		query += " LIMIT " + q.arg(limit+1)
	}

	rows, err := s.db.QueryContext(ctx, query, q.args...)
	if err != nil {
		return nil, "", fmt.Errorf("scroll %q: %w", collection, err)
	}
	defer rows.Close()

	var (
		page []domain.Chunk
		seqs []int64
	)
	for rows.Next() {
		var (
			seq int64
			raw []byte
		)
		if err := rows.Scan(&seq, &raw); err != nil {
			return nil, "", fmt.Errorf("scan chunk: %w", err)
		}
		c, err := payload.Unmarshal(raw)
		if err != nil {
			return nil, "", err
		}
		page = append(page, c)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("scroll %q: %w", collection, err)
	}

	next := ""
	if limit > 0 && len(page) > limit {
		page = page[:limit]
		next = strconv.FormatInt(seqs[limit-1], 10)
	}
	return page, next, nil
}

// Search ranks matching chunks by cosine similarity using the collection's index.
func (s *Store) Search(
	ctx context.Context, collection string, vector []float32, filter domain.Filter, limit int,
) ([]domain.ScoredChunk, error) {
	dims, err := s.dimensions(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("query vector has %d dimensions, collection expects %d", len(vector), dims)
	}

	q := newQuery(collection)
	q.filter(filter)
	cast := fmt.Sprintf("::vector(%d)", dims)
	vec := q.arg(formatVector(vector)) + cast
	query := fmt.Sprintf(
		"SELECT payload, 1 - (embedding%s <=> %s) AS score FROM docindex_chunks WHERE %s ORDER BY embedding%s <=> %s",
		cast, vec, q.where(), cast, vec)
	if limit > 0 {
		query += " LIMIT " + q.arg(limit)
	}

	rows, err := s.db.QueryContext(ctx, query, q.args...)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", collection, err)
	}
	defer rows.Close()

	var hits []domain.ScoredChunk
	for rows.Next() {
		var (
			raw   []byte
			score float64
		)
		if err := rows.Scan(&raw, &score); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		c, err := payload.Unmarshal(raw)
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.ScoredChunk{Chunk: c, Score: score})
	}
	return hits, rows.Err()
}

// SetMetadata replaces the metadata object of the given chunks in one transaction.
func (s *Store) SetMetadata(
	ctx context.Context, collection string, keys []domain.ChunkKey, metadata domain.Metadata,
) error {
	if _, err := s.dimensions(ctx, collection); err != nil {
		return err
	}
	meta, err := payload.MarshalMetadata(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, `
				UPDATE docindex_chunks SET payload = jsonb_set(payload, '{metadata}', $1::jsonb)
				WHERE collection = $2 AND document_id = $3 AND chunk_index = $4
			`, string(meta), collection, k.DocumentID, k.Index); err != nil {
				return fmt.Errorf("update metadata of %s/%d: %w", k.DocumentID, k.Index, err)
			}
		}
		return nil
	})
}

// Delete removes chunks in one transaction. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, collection string, keys []domain.ChunkKey) error {
	if _, err := s.dimensions(ctx, collection); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM docindex_chunks WHERE collection = $1 AND document_id = $2 AND chunk_index = $3`,
				collection, k.DocumentID, k.Index); err != nil {
				return fmt.Errorf("delete %s/%d: %w", k.DocumentID, k.Index, err)
			}
		}
		return nil
	})
}

func (s *Store) dimensions(ctx context.Context, collection string) (int, error) {
	var dims int
	err := s.db.QueryRowContext(ctx,
		`SELECT dimensions FROM docindex_collections WHERE name = $1`, collection).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}
	if err != nil {
		return 0, fmt.Errorf("look up collection %q: %w", collection, err)
	}
	return dims, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// query accumulates WHERE clauses with numbered placeholders.
type query struct {
	clauses []string
	args    []any
}

func newQuery(collection string) *query {
	q := &query{}
	q.clauses = append(q.clauses, "collection = "+q.arg(collection))
	return q
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) filter(f domain.Filter) {
	if f.DocumentID != "" {
		q.clauses = append(q.clauses, "document_id = "+q.arg(f.DocumentID))
	}
	if f.SourceType != "" {
		q.clauses = append(q.clauses, "payload->'metadata'->>'source_type' = "+q.arg(string(f.SourceType)))
	}
	if f.SourceRef != "" {
		q.clauses = append(q.clauses, "payload->'metadata'->>'source_ref' = "+q.arg(f.SourceRef))
	}
	if f.Category != "" {
		q.clauses = append(q.clauses, "payload->'metadata'->>'category' = "+q.arg(f.Category))
	}
	if len(f.Tags) > 0 {
		q.clauses = append(q.clauses, "payload->'metadata'->'tags' ?| "+q.arg(f.Tags)+"::text[]")
	}
	if f.Title != "" {
		q.clauses = append(q.clauses, "strpos(payload->>'title', "+q.arg(f.Title)+") > 0")
	}
	if f.Content != "" {
		q.clauses = append(q.clauses, "strpos(payload->>'content', "+q.arg(f.Content)+") > 0")
	}
}

func (q *query) where() string {
	return strings.Join(q.clauses, " AND ")
}

// indexDDL builds the partial HNSW index for one collection. Index names are
// derived from a hash so any collection name is safe.
func indexDDL(collection string, dimensions int) string {
	sum := sha1.Sum([]byte(collection))
	name := "idx_docindex_hnsw_" + hex.EncodeToString(sum[:8])
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON docindex_chunks USING hnsw ((embedding::vector(%d)) vector_cosine_ops) WHERE collection = %s",
		name, dimensions, quoteLiteral(collection))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// formatVector renders a vector in pgvector text form: "[0.1,0.2,0.3]".
func formatVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
