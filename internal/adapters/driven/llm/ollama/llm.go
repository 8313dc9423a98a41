// Package ollama provides a summariser adapter using Ollama.
package ollama

import (
	"context"
	"time"

	"github.com/custodia-labs/docindex/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/docindex/internal/adapters/driven/llm/prompt"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// Ensure Summariser implements the interfaces.
var (
	_ driven.Summariser       = (*Summariser)(nil)
	_ driven.PromptStoreAware = (*Summariser)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama summariser.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Summariser produces abstracts and tags with a local Ollama model.
type Summariser struct {
	prompt.Runner
	api *httpjson.Client
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewSummariser creates a new Ollama summariser.
func NewSummariser(cfg Config) *Summariser {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Summariser{api: httpjson.New("ollama", cfg.BaseURL, cfg.Timeout, nil)}
	s.Runner = prompt.Runner{Model: cfg.Model, Complete: s.generate}
	return s
}

func (s *Summariser) generate(ctx context.Context, text string, maxTokens int) (string, error) {
	var resp generateResponse
	err := s.api.Post(ctx, "/api/generate", generateRequest{
		Model:   s.Model,
		Prompt:  text,
		Options: generateOptions{NumPredict: maxTokens, Temperature: prompt.Temperature},
	}, &resp)
	return resp.Response, err
}

// Ping lists local models without running inference.
func (s *Summariser) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/api/tags")
}

// Close releases resources.
func (s *Summariser) Close() error {
	return nil
}
