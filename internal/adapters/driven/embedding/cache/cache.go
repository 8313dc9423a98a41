// Package cache provides a Redis-backed caching decorator for embedding services.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const keyPrefix = "docindex:emb:"

// Client is the subset of the Redis client the cache uses.
type Client interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// EmbeddingService serves embeddings from Redis and forwards misses to the
// wrapped service. Cache failures are logged and never fail a request.
type EmbeddingService struct {
	next   driven.EmbeddingService
	client Client
	ttl    time.Duration
	log    *zap.SugaredLogger
}

// Dial connects to Redis at addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// New wraps next with a cache stored in client. A zero ttl keeps entries forever.
func New(next driven.EmbeddingService, client Client, ttl time.Duration) *EmbeddingService {
	return &EmbeddingService{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    logger.Named("embedding-cache"),
	}
}

// Embed returns the cached embedding for text, computing it on a miss.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch looks up every text in one MGET and embeds only the misses.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = s.key(t)
	}

	out := make([][]float32, len(texts))
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		s.log.Warnw("cache lookup failed", "error", err)
		vals = nil
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		if vec, ok := decode(raw); ok {
			out[i] = vec
		}
	}

	var missTexts []string
	var missIdx []int
	for i, vec := range out {
		if vec == nil {
			missTexts = append(missTexts, texts[i])
			missIdx = append(missIdx, i)
		}
	}
	s.log.Debugw("embedding cache", "hits", len(texts)-len(missIdx), "misses", len(missIdx))
	if len(missIdx) == 0 {
		return out, nil
	}

	computed, err := s.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missTexts) {
		return nil, fmt.Errorf("embedding cache: got %d embeddings for %d inputs", len(computed), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = computed[j]
		if err := s.client.Set(ctx, keys[i], encode(computed[j]), s.ttl).Err(); err != nil {
			s.log.Warnw("cache store failed", "error", err)
		}
	}
	return out, nil
}

// key is scoped by model so switching models never serves stale vectors.
func (s *EmbeddingService) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + s.next.ModelName() + ":" + hex.EncodeToString(sum[:])
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped service's model name.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping checks both Redis and the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return s.next.Ping(ctx)
}

// Close closes the Redis client and the wrapped service.
func (s *EmbeddingService) Close() error {
	cerr := s.client.Close()
	if err := s.next.Close(); err != nil {
		return err
	}
	return cerr
}

func encode(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decode(raw string) ([]float32, bool) {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(raw[4*i : 4*i+4])))
	}
	return vec, true
}
