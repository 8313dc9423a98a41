package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, 768, s.Dimensions())

	assert.Zero(t, NewEmbeddingService(Config{Model: "custom-embed"}).Dimensions())
}

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := embedResponse{}
		for i := range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{float32(i), 1, 0})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL, Model: "custom-embed"})
	vecs, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1, 0}, {1, 1, 0}}, vecs)
	assert.Equal(t, 3, s.Dimensions(), "learned from the first response")

	vec, err := s.Embed(context.Background(), "c")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestEmbeddingService_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2}}})
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL, Dimensions: 768})
	_, err := s.Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "expected 768")
}

func TestEmbeddingService_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "model not pulled", http.StatusNotFound)
	}))
	defer server.Close()

	s := NewEmbeddingService(Config{BaseURL: server.URL})
	_, err := s.Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "model not pulled")
	assert.NoError(t, s.Ping(context.Background()))

	out, err := s.EmbedBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, out)
}
