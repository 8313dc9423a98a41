// Package instrumented wraps a vector store with timing logs, tracing spans
// and an optional request rate limit.
package instrumented

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const tracerName = "github.com/custodia-labs/docindex/storage"

// Store decorates a driven.VectorStore.
type Store struct {
	inner   driven.VectorStore
	backend string
	log     *zap.SugaredLogger
	tracer  trace.Tracer
	limiter *rate.Limiter
}

// Option configures a Store.
type Option func(*Store)

// WithRateLimit caps backend calls at perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Store) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTracerProvider sets the provider spans are created from.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Store) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// WithLogger overrides the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New wraps inner. backend names the wrapped implementation in logs and spans.
func New(inner driven.VectorStore, backend string, opts ...Option) *Store {
	s := &Store{
		inner:   inner,
		backend: backend,
		log:     logger.Named("store"),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Unwrap returns the decorated store.
func (s *Store) Unwrap() driven.VectorStore {
	return s.inner
}

// Collections lists collection names.
func (s *Store) Collections(ctx context.Context) (names []string, err error) {
	ctx, done := s.begin(ctx, "collections", "")
	defer func() { done(err, attribute.Int("result.count", len(names))) }()
	if err = s.wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Collections(ctx)
}

// CollectionExists reports whether the collection exists.
func (s *Store) CollectionExists(ctx context.Context, collection string) (ok bool, err error) {
	ctx, done := s.begin(ctx, "collection_exists", collection)
	defer func() { done(err, attribute.Bool("result.exists", ok)) }()
	if err = s.wait(ctx); err != nil {
		return false, err
	}
	return s.inner.CollectionExists(ctx, collection)
}

// EnsureCollection creates the collection if needed.
func (s *Store) EnsureCollection(ctx context.Context, collection string, dimensions int) (err error) {
	ctx, done := s.begin(ctx, "ensure_collection", collection, attribute.Int("dimensions", dimensions))
	defer func() { done(err) }()
	if err = s.wait(ctx); err != nil {
		return err
	}
	return s.inner.EnsureCollection(ctx, collection, dimensions)
}

// Upsert writes chunks.
func (s *Store) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) (err error) {
	ctx, done := s.begin(ctx, "upsert", collection, attribute.Int("chunks", len(chunks)))
	defer func() { done(err) }()
	if err = s.wait(ctx); err != nil {
		return err
	}
	return s.inner.Upsert(ctx, collection, chunks)
}

// Scroll returns a page of chunks.
func (s *Store) Scroll(
	ctx context.Context, collection string, filter domain.Filter, limit int, offset string,
) (page []domain.Chunk, next string, err error) {
	ctx, done := s.begin(ctx, "scroll", collection,
		attribute.String("filter", filter.String()), attribute.Int("limit", limit))
	defer func() { done(err, attribute.Int("result.count", len(page))) }()
	if err = s.wait(ctx); err != nil {
		return nil, "", err
	}
	return s.inner.Scroll(ctx, collection, filter, limit, offset)
}

// Search runs a similarity search.
func (s *Store) Search(
	ctx context.Context, collection string, vector []float32, filter domain.Filter, limit int,
) (hits []domain.ScoredChunk, err error) {
	ctx, done := s.begin(ctx, "search", collection,
		attribute.String("filter", filter.String()), attribute.Int("limit", limit))
	defer func() { done(err, attribute.Int("result.count", len(hits))) }()
	if err = s.wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Search(ctx, collection, vector, filter, limit)
}

// SetMetadata replaces chunk metadata.
func (s *Store) SetMetadata(
	ctx context.Context, collection string, keys []domain.ChunkKey, metadata domain.Metadata,
) (err error) {
	ctx, done := s.begin(ctx, "set_metadata", collection, attribute.Int("chunks", len(keys)))
	defer func() { done(err) }()
	if err = s.wait(ctx); err != nil {
		return err
	}
	return s.inner.SetMetadata(ctx, collection, keys, metadata)
}

// Delete removes chunks.
func (s *Store) Delete(ctx context.Context, collection string, keys []domain.ChunkKey) (err error) {
	ctx, done := s.begin(ctx, "delete", collection, attribute.Int("chunks", len(keys)))
	defer func() { done(err) }()
	if err = s.wait(ctx); err != nil {
		return err
	}
	return s.inner.Delete(ctx, collection, keys)
}

// Ping is passed through without rate limiting.
func (s *Store) Ping(ctx context.Context) (err error) {
	ctx, done := s.begin(ctx, "ping", "")
	defer func() { done(err) }()
	return s.inner.Ping(ctx)
}

// Close closes the wrapped store.
func (s *Store) Close() error {
	return s.inner.Close()
}

func (s *Store) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// begin starts a span and returns a function that ends it and logs the call.
func (s *Store) begin(
	ctx context.Context, op, collection string, attrs ...attribute.KeyValue,
) (context.Context, func(error, ...attribute.KeyValue)) {
	base := []attribute.KeyValue{attribute.String("db.system", s.backend)}
	if collection != "" {
		base = append(base, attribute.String("collection", collection))
	}
	ctx, span := s.tracer.Start(ctx, "vectorstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(base, attrs...)...))
	start := time.Now()

	return ctx, func(err error, extra ...attribute.KeyValue) {
		elapsed := time.Since(start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.log.Warnw("store call failed", "op", op, "backend", s.backend,
				"collection", collection, "duration", elapsed, "error", err)
		} else {
			span.SetAttributes(extra...)
			s.log.Debugw("store call", "op", op, "backend", s.backend,
				"collection", collection, "duration", elapsed)
		}
		span.End()
	}
}
