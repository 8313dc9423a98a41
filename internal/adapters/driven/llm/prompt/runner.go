package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// Temperature is the sampling temperature for both prompts.
const Temperature = 0.2

// Token budgets for the model replies.
const (
	SummaryTokens = 300
	TagTokens     = 60
)

// CompleteFunc sends one prompt to a model and returns its raw reply.
type CompleteFunc func(ctx context.Context, text string, maxTokens int) (string, error)

// Runner implements the provider-independent half of driven.Summariser.
// Adapters embed it and supply Complete.
type Runner struct {
	Model    string
	Complete CompleteFunc

	templates Templates
}

// Summarise returns a short abstract of the document.
func (r *Runner) Summarise(ctx context.Context, title, content string) (string, error) {
	out, err := r.Complete(ctx, r.templates.Render(driven.PromptSummarise, title, content), SummaryTokens)
	if err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// SuggestTags returns topic tags for the document.
func (r *Runner) SuggestTags(ctx context.Context, title, content string) ([]string, error) {
	out, err := r.Complete(ctx, r.templates.Render(driven.PromptTags, title, content), TagTokens)
	if err != nil {
		return nil, fmt.Errorf("suggest tags: %w", err)
	}
	return ParseTags(out), nil
}

// ModelName returns the model being used.
func (r *Runner) ModelName() string {
	return r.Model
}

// SetPromptStore sets the store consulted for customised prompts.
func (r *Runner) SetPromptStore(store driven.PromptStore) {
	r.templates.SetStore(store)
}
