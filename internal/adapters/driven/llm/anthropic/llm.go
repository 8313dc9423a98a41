// Package anthropic provides a summariser adapter using the Anthropic API.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
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
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-haiku-latest"
	DefaultTimeout = 120 * time.Second

	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic summariser.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use.
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Summariser produces abstracts and tags with the messages API.
// Anthropic has no embeddings endpoint, so it only serves this port.
type Summariser struct {
	prompt.Runner
	api *httpjson.Client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewSummariser creates a new Anthropic summariser.
func NewSummariser(cfg Config) (*Summariser, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
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

	header := http.Header{
		"X-Api-Key":         {cfg.APIKey},
		"Anthropic-Version": {anthropicVersion},
	}
	s := &Summariser{api: httpjson.New("anthropic", cfg.BaseURL, cfg.Timeout, header)}
	s.Runner = prompt.Runner{Model: cfg.Model, Complete: s.send}
	return s, nil
}

func (s *Summariser) send(ctx context.Context, text string, maxTokens int) (string, error) {
	var resp messagesResponse
	err := s.api.Post(ctx, "/v1/messages", messagesRequest{
		Model:       s.Model,
		Messages:    []message{{Role: "user", Content: text}},
		MaxTokens:   maxTokens,
		Temperature: prompt.Temperature,
	}, &resp)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", errors.New("anthropic: no text content returned")
	}
	return out.String(), nil
}

// Ping lists models, which checks the key without running inference.
func (s *Summariser) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/v1/models")
}

// Close releases resources.
func (s *Summariser) Close() error {
	return nil
}
