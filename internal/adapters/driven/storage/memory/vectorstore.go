package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"sync"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Scroll returns points in insertion order; search is brute-force cosine.
type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
	seq         int64
}

type collection struct {
	dimensions int
	points     map[domain.ChunkKey]point
}

type point struct {
	chunk domain.Chunk
	seq   int64
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		collections: make(map[string]*collection),
	}
}

// Collections lists collection names in sorted order.
func (s *VectorStore) Collections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CollectionExists reports whether the collection exists.
func (s *VectorStore) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

// EnsureCollection creates the collection if it does not exist.
func (s *VectorStore) EnsureCollection(_ context.Context, name string, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		if c.dimensions != dimensions {
			return fmt.Errorf("collection %q has dimension %d, not %d", name, c.dimensions, dimensions)
		}
		return nil
	}
	s.collections[name] = &collection{
		dimensions: dimensions,
		points:     make(map[domain.ChunkKey]point),
	}
	return nil
}

// Upsert writes or overwrites chunks. Overwritten points keep their position.
func (s *VectorStore) Upsert(_ context.Context, name string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	for i := range chunks {
		if len(chunks[i].Embedding) != c.dimensions {
			return fmt.Errorf("chunk %s/%d: vector has %d dimensions, collection expects %d",
				chunks[i].DocumentID, chunks[i].Index, len(chunks[i].Embedding), c.dimensions)
		}
	}
	for _, chunk := range chunks {
		key := chunk.Key()
		p, ok := c.points[key]
		if !ok {
			s.seq++
			p.seq = s.seq
		}
		p.chunk = copyChunk(chunk, true)
		c.points[key] = p
	}
	return nil
}

// Scroll returns a page of matching chunks. The offset is a position in the
// filtered result list.
func (s *VectorStore) Scroll(
	_ context.Context, name string, filter domain.Filter, limit int, offset string,
) ([]domain.Chunk, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return nil, "", err
	}

	start := 0
	if offset != "" {
		start, err = strconv.Atoi(offset)
		if err != nil || start < 0 {
			return nil, "", fmt.Errorf("invalid scroll offset %q", offset)
		}
	}

	matched := c.ordered(filter)
	if start >= len(matched) {
		return nil, "", nil
	}
	end := len(matched)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	page := make([]domain.Chunk, 0, end-start)
	for _, p := range matched[start:end] {
		page = append(page, copyChunk(p.chunk, false))
	}
	next := ""
	if end < len(matched) {
		next = strconv.Itoa(end)
	}
	return page, next, nil
}

// Search ranks matching chunks by cosine similarity to vector.
func (s *VectorStore) Search(
	_ context.Context, name string, vector []float32, filter domain.Filter, limit int,
) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return nil, err
	}

	matched := c.ordered(filter)
	hits := make([]domain.ScoredChunk, 0, len(matched))
	for _, p := range matched {
		hits = append(hits, domain.ScoredChunk{
			Chunk: copyChunk(p.chunk, false),
			Score: Cosine(vector, p.chunk.Embedding),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// SetMetadata replaces the metadata of existing chunks. Missing keys are ignored.
func (s *VectorStore) SetMetadata(
	_ context.Context, name string, keys []domain.ChunkKey, metadata domain.Metadata,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	for _, key := range keys {
		p, ok := c.points[key]
		if !ok {
			continue
		}
		p.chunk.Metadata = metadata.Clone()
		c.points[key] = p
	}
	return nil
}

// Delete removes chunks. Missing keys are ignored.
func (s *VectorStore) Delete(_ context.Context, name string, keys []domain.ChunkKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(c.points, key)
	}
	return nil
}

// Ping always succeeds.
func (s *VectorStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}

// Len returns the number of points in a collection.
func (s *VectorStore) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return 0
	}
	return len(c.points)
}

// Point returns a stored chunk including its embedding.
func (s *VectorStore) Point(name string, key domain.ChunkKey) (domain.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return domain.Chunk{}, false
	}
	p, ok := c.points[key]
	if !ok {
		return domain.Chunk{}, false
	}
	return copyChunk(p.chunk, true), true
}

func (s *VectorStore) get(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return c, nil
}

func (c *collection) ordered(filter domain.Filter) []point {
	out := make([]point, 0, len(c.points))
	for _, p := range c.points {
		if filter.MatchChunk(p.chunk) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func copyChunk(c domain.Chunk, withEmbedding bool) domain.Chunk {
	out := c
	out.Metadata = c.Metadata.Clone()
	if withEmbedding {
		out.Embedding = slices.Clone(c.Embedding)
	} else {
		out.Embedding = nil
	}
	return out
}

// Cosine returns the cosine similarity of two vectors, or 0 when either is
// empty or their lengths differ.
func Cosine(a, b []float32) float64 {
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
