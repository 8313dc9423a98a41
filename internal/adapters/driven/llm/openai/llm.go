// Package openai provides a summariser adapter using the OpenAI API.
package openai

import (
	"context"
	"errors"
	"net/http"
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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI summariser.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL. Can be changed for compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Summariser produces abstracts and tags with the chat completions API.
type Summariser struct {
	prompt.Runner
	api *httpjson.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewSummariser creates a new OpenAI summariser.
func NewSummariser(cfg Config) (*Summariser, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	header := http.Header{"Authorization": {"Bearer " + cfg.APIKey}}
	s := &Summariser{api: httpjson.New("openai", cfg.BaseURL, cfg.Timeout, header)}
	s.Runner = prompt.Runner{Model: cfg.Model, Complete: s.complete}
	return s, nil
}

func (s *Summariser) complete(ctx context.Context, text string, maxTokens int) (string, error) {
	var resp chatCompletionResponse
	err := s.api.Post(ctx, "/chat/completions", chatCompletionRequest{
		Model:       s.Model,
		Messages:    []chatMessage{{Role: "user", Content: text}},
		MaxTokens:   maxTokens,
		Temperature: prompt.Temperature,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping lists models, which checks the key without running inference.
func (s *Summariser) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models")
}

// Close releases resources.
func (s *Summariser) Close() error {
	return nil
}
