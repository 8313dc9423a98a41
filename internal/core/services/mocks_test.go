package services

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docindex/internal/core/domain"
)

// testVocabulary gives each known word its own dimension; every other
// word shares the last one.
var testVocabulary = []string{
	"server", "port", "restart", "config", "pasta", "water", "salt", "docker", "bridge", "network", "notes",
}

var testDims = len(testVocabulary) + 1

var errInjected = errors.New("injected failure")

// fakeEmbedder builds bag-of-words vectors over testVocabulary.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return bagOfWords(text), nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int              { return testDims }
func (e *fakeEmbedder) ModelName() string            { return "fake-embed" }
func (e *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (e *fakeEmbedder) Close() error                 { return nil }

func bagOfWords(text string) []float32 {
	v := make([]float32, testDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		idx := slices.Index(testVocabulary, strings.Trim(w, ".,!?"))
		if idx < 0 {
			idx = testDims - 1
		}
		v[idx]++
	}
	return v
}

// fakeSummariser returns a fixed abstract and tag set.
type fakeSummariser struct {
	abstract string
	tags     []string
	err      error
	calls    int
}

func (s *fakeSummariser) Summarise(_ context.Context, title, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if s.abstract != "" {
		return s.abstract, nil
	}
	return "About " + title, nil
}

func (s *fakeSummariser) SuggestTags(_ context.Context, _, _ string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tags, nil
}

func (s *fakeSummariser) ModelName() string            { return "fake-summary" }
func (s *fakeSummariser) Ping(_ context.Context) error { return nil }
func (s *fakeSummariser) Close() error                 { return nil }

// faultyStore wraps the memory store and fails selected calls.
type faultyStore struct {
	*memory.VectorStore
	failDelete      bool
	failUpsert      bool
	failSetMetadata bool
	writes          int
}

func (s *faultyStore) Upsert(ctx context.Context, coll string, chunks []domain.Chunk) error {
	if s.failUpsert {
		return errInjected
	}
	s.writes++
	return s.VectorStore.Upsert(ctx, coll, chunks)
}

func (s *faultyStore) Delete(ctx context.Context, coll string, keys []domain.ChunkKey) error {
	if s.failDelete {
		return errInjected
	}
	s.writes++
	return s.VectorStore.Delete(ctx, coll, keys)
}

func (s *faultyStore) SetMetadata(ctx context.Context, coll string, keys []domain.ChunkKey, m domain.Metadata) error {
	if s.failSetMetadata {
		return errInjected
	}
	s.writes++
	return s.VectorStore.SetMetadata(ctx, coll, keys, m)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequentialIDs returns doc-1, doc-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "doc-" + strconv.Itoa(n)
	}
}
