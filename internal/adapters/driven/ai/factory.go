// Package ai provides factory functions for creating embedding and summariser adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docindex/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/custodia-labs/docindex/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docindex/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docindex/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docindex/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docindex/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	Summariser       driven.Summariser
	Warnings         []string // Non-fatal issues, e.g. a disabled cache.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		_ = r.EmbeddingService.Close()
	}
	if r.Summariser != nil {
		_ = r.Summariser.Close()
	}
}

// Init creates the embedding service, its optional Redis cache and the optional
// summariser. With validate set, the embedding provider must answer a ping.
// An unreachable cache is a warning; an unconfigured embedder is an error.
func Init(ctx context.Context, settings *domain.AppSettings, prompts driven.PromptStore, validate bool) (*InitResult, error) {
	result := &InitResult{}

	create := CreateEmbeddingService
	if validate {
		create = CreateAndValidateEmbeddingService
	}
	embedder, err := create(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}

	if settings.EmbeddingCache.Enabled() {
		cached, err := WithCache(ctx, embedder, settings.EmbeddingCache)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("embedding cache disabled: %v", err))
		} else {
			embedder = cached
		}
	}
	result.EmbeddingService = embedder

	summariser, err := CreateSummariser(&settings.Summary, prompts)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.Summariser = summariser
	return result, nil
}

// WithCache wraps svc with a Redis cache at the configured address.
func WithCache(ctx context.Context, svc driven.EmbeddingService, settings domain.EmbeddingCacheSettings) (driven.EmbeddingService, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	client, err := cache.Dial(ctx, settings.RedisAddr)
	if err != nil {
		return nil, err
	}
	return cache.New(svc, client, settings.TTL), nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return svc, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama or openai",
			domain.ErrEmbeddingUnavailable)
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateSummariser creates the summariser selected by settings.
// Returns nil when summaries are not configured.
func CreateSummariser(settings *domain.SummarySettings, prompts driven.PromptStore) (driven.Summariser, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.Summariser
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamallm.NewSummariser(ollamallm.Config{BaseURL: settings.BaseURL, Model: settings.Model})
	case domain.AIProviderOpenAI:
		svc, err = openaillm.NewSummariser(openaillm.Config{
			APIKey: settings.APIKey, BaseURL: settings.BaseURL, Model: settings.Model,
		})
	case domain.AIProviderAnthropic:
		svc, err = anthropicllm.NewSummariser(anthropicllm.Config{
			APIKey: settings.APIKey, BaseURL: settings.BaseURL, Model: settings.Model,
		})
	default:
		err = errors.New("unsupported summary provider: " + settings.Provider.String())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSummaryUnavailable, err)
	}

	if aware, ok := svc.(driven.PromptStoreAware); ok && prompts != nil {
		aware.SetPromptStore(prompts)
	}
	return svc, nil
}

// ValidateSummariser pings the configured summariser.
// Returns nil if summaries are not configured.
func ValidateSummariser(settings *domain.SummarySettings) error {
	svc, err := CreateSummariser(settings, nil)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSummaryUnavailable, err)
	}
	return nil
}
