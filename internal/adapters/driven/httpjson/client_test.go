package httpjson

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/echo", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["say"]})
	}))
	defer server.Close()

	c := New("test", server.URL+"/", time.Second, http.Header{"X-Api-Key": {"secret"}})
	var out struct {
		Echo string `json:"echo"`
	}
	require.NoError(t, c.Post(context.Background(), "/v1/echo", map[string]string{"say": "hi"}, &out))
	assert.Equal(t, "hi", out.Echo)
	assert.Equal(t, "test", c.Provider())
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want string
	}{
		{"nested message", http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`, "rate limited"},
		{"string error", http.StatusNotFound, `{"error":"model not found"}`, "model not found"},
		{"plain text", http.StatusBadGateway, "upstream down\n", "upstream down"},
		{"empty body", http.StatusServiceUnavailable, "", "Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := New("prov", server.URL, time.Second, nil).Get(context.Background(), "/")
			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.code, statusErr.Code)
			assert.Equal(t, tt.want, statusErr.Message)
			assert.Contains(t, err.Error(), "prov: status")
		})
	}
}

func TestClient_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	var out map[string]any
	err := New("prov", server.URL, time.Second, nil).Post(context.Background(), "/", struct{}{}, &out)
	assert.ErrorContains(t, err, "prov: decode response")
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := New("prov", url, time.Second, nil).Get(context.Background(), "/")
	assert.ErrorContains(t, err, "prov: send request")
}
