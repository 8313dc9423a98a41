package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/payload"
	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a SQLite-backed vector store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the database at path.
// If path is empty, defaults to ~/.docindex/data/vectors.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".docindex", "data", "vectors.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode lets readers proceed during a write batch.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Collections lists collection names in sorted order.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM collections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CollectionExists reports whether the collection exists.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := s.dimensions(ctx, name)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return false, nil
	}
	return err == nil, err
}

// EnsureCollection creates the collection if it does not exist.
// An existing collection with a different vector size is an error.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	existing, err := s.dimensions(ctx, name)
	switch {
	case err == nil:
		if existing != dimensions {
			return fmt.Errorf("collection %q has dimension %d, not %d", name, existing, dimensions)
		}
		return nil
	case !errors.Is(err, domain.ErrCollectionNotFound):
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO collections (name, dimensions) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
		name, dimensions)
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", name, err)
	}
	return nil
}

// Upsert writes or overwrites chunks in one transaction.
// Overwritten rows keep their scroll position.
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
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (collection, document_id, chunk_index, payload, embedding)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(collection, document_id, chunk_index)
			DO UPDATE SET payload = excluded.payload, embedding = excluded.embedding
		`)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()

		for _, c := range chunks {
			data, err := payload.Marshal(c)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, collection, c.DocumentID, c.Index,
				string(data), float32SliceToBytes(c.Embedding)); err != nil {
				return fmt.Errorf("upserting chunk %s/%d: %w", c.DocumentID, c.Index, err)
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
		after, err = strconv.ParseInt(offset, 10, 64)
		if err != nil || after < 0 {
			return nil, "", fmt.Errorf("invalid scroll offset %q", offset)
		}
	}

	where, args := buildWhere(collection, filter)
	query := "SELECT seq, payload FROM chunks WHERE " + where + " AND seq > ? ORDER BY seq"
	rows, err := s.db.QueryContext(ctx, query, append(args, after)...)
	if err != nil {
		return nil, "", fmt.Errorf("scrolling %q: %w", collection, err)
	}
	defer rows.Close()

	var (
		page    []domain.Chunk
		lastSeq int64
		more    bool
	)
	for rows.Next() {
		var (
			seq int64
			raw string
		)
		if err := rows.Scan(&seq, &raw); err != nil {
			return nil, "", fmt.Errorf("scanning chunk: %w", err)
		}
		chunk, err := payload.Unmarshal([]byte(raw))
		if err != nil {
			return nil, "", err
		}
		if !filter.MatchChunk(chunk) {
			continue
		}
		if limit > 0 && len(page) == limit {
			more = true
			break
		}
		page = append(page, chunk)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("scrolling %q: %w", collection, err)
	}

	next := ""
	if more {
		next = strconv.FormatInt(lastSeq, 10)
	}
	return page, next, nil
}

// Search ranks matching chunks by cosine similarity to vector.
func (s *Store) Search(
	ctx context.Context, collection string, vector []float32, filter domain.Filter, limit int,
) ([]domain.ScoredChunk, error) {
	if _, err := s.dimensions(ctx, collection); err != nil {
		return nil, err
	}

	where, args := buildWhere(collection, filter)
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload, embedding FROM chunks WHERE "+where+" ORDER BY seq", args...)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", collection, err)
	}
	defer rows.Close()

	var hits []domain.ScoredChunk
	for rows.Next() {
		var (
			raw  string
			blob []byte
		)
		if err := rows.Scan(&raw, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk, err := payload.Unmarshal([]byte(raw))
		if err != nil {
			return nil, err
		}
		if !filter.MatchChunk(chunk) {
			continue
		}
		hits = append(hits, domain.ScoredChunk{
			Chunk: chunk,
			Score: cosine(vector, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searching %q: %w", collection, err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// SetMetadata replaces the metadata block of the given chunks in one transaction.
func (s *Store) SetMetadata(
	ctx context.Context, collection string, keys []domain.ChunkKey, metadata domain.Metadata,
) error {
	if _, err := s.dimensions(ctx, collection); err != nil {
		return err
	}
	meta, err := payload.MarshalMetadata(metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE chunks SET payload = json_set(payload, '$.metadata', json(?))
			WHERE collection = ? AND document_id = ? AND chunk_index = ?
		`)
		if err != nil {
			return fmt.Errorf("preparing metadata update: %w", err)
		}
		defer stmt.Close()

		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx, string(meta), collection, k.DocumentID, k.Index); err != nil {
				return fmt.Errorf("updating metadata of %s/%d: %w", k.DocumentID, k.Index, err)
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
		stmt, err := tx.PrepareContext(ctx,
			"DELETE FROM chunks WHERE collection = ? AND document_id = ? AND chunk_index = ?")
		if err != nil {
			return fmt.Errorf("preparing delete: %w", err)
		}
		defer stmt.Close()

		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx, collection, k.DocumentID, k.Index); err != nil {
				return fmt.Errorf("deleting %s/%d: %w", k.DocumentID, k.Index, err)
			}
		}
		return nil
	})
}

// dimensions returns the vector size of a collection, or ErrCollectionNotFound.
func (s *Store) dimensions(ctx context.Context, name string) (int, error) {
	var dims int
	err := s.db.QueryRowContext(ctx, "SELECT dimensions FROM collections WHERE name = ?", name).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("looking up collection %q: %w", name, err)
	}
	return dims, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// buildWhere pushes the exact-match criteria into SQL. Title, content and tag
// criteria are left to Filter.MatchChunk.
func buildWhere(collection string, f domain.Filter) (string, []any) {
	clauses := []string{"collection = ?"}
	args := []any{collection}

	if f.DocumentID != "" {
		clauses = append(clauses, "document_id = ?")
		args = append(args, f.DocumentID)
	}
	exact := []struct{ path, value string }{
		{"$." + payload.FieldSourceType, string(f.SourceType)},
		{"$." + payload.FieldSourceRef, f.SourceRef},
		{"$." + payload.FieldCategory, f.Category},
	}
	for _, e := range exact {
		if e.value == "" {
			continue
		}
		clauses = append(clauses, "json_extract(payload, '"+e.path+"') = ?")
		args = append(args, e.value)
	}
	return strings.Join(clauses, " AND "), args
}

// migrate applies every embedded NNN_*.up.sql newer than the recorded version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// float32SliceToBytes converts a float32 slice to little-endian bytes.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts little-endian bytes back to a float32 slice.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
