package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)

	s, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, s.Dimensions())

	s, err = NewEmbeddingService(Config{APIKey: "k", Model: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, fallbackDimensions, s.Dimensions())
}

func TestEmbeddingService_EmbedBatchOrdersByIndex(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0,1],"index":1},{"embedding":[1,0],"index":0}]}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	vecs, err := s.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, 2, got.Dimensions, "override is sent for text-embedding-3 models")
	assert.Equal(t, []string{"first", "second"}, got.Input)
}

func TestEmbeddingService_MissingEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0],"index":0}]}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = s.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "input 1")
}

func TestEmbeddingService_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = s.Embed(context.Background(), "a")
	assert.ErrorContains(t, err, "rate limited")
}
