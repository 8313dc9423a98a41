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

func TestNewSummariser_RequiresKey(t *testing.T) {
	_, err := NewSummariser(Config{})
	assert.Error(t, err)
}

func TestSummariser_Summarise(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "Title: Pasta")

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" Boil water, add salt. "}}]}`))
	}))
	defer server.Close()

	s, err := NewSummariser(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	abstract, err := s.Summarise(context.Background(), "Pasta", "boil water")
	require.NoError(t, err)
	assert.Equal(t, "Boil water, add salt.", abstract)
}

func TestSummariser_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth"}}`))
	}))
	defer server.Close()

	s, err := NewSummariser(Config{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.SuggestTags(context.Background(), "t", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}
