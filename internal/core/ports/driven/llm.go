package driven

import "context"

// Summariser produces document abstracts and tag suggestions.
// This is an optional service - when nil, abstracts are not generated.
//
// Implementations may include:
//   - Ollama (local models)
//   - OpenAI (GPT-4o mini)
//   - Anthropic (Claude)
type Summariser interface {
	// Summarise returns a short abstract of the document.
	Summarise(ctx context.Context, title, content string) (string, error)

	// SuggestTags returns a handful of lowercase topic tags for the document.
	SuggestTags(ctx context.Context, title, content string) ([]string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
