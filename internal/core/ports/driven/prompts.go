package driven

// PromptStore provides access to summariser prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptSummarise produces a document abstract.
	// The template expects two %s placeholders: title, then content.
	PromptSummarise = "summarise"

	// PromptTags suggests topic tags, one per line.
	// The template expects two %s placeholders: title, then content.
	PromptTags = "tags"
)

// PromptStoreAware is an optional interface for summarisers that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the summariser uses its built-in prompts.
	SetPromptStore(store PromptStore)
}
