package domain

import (
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or summaries.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbeddings returns true if the provider can generate embeddings.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend selects the vector store implementation.
type VectorBackend string

// Available vector backends.
const (
	VectorBackendQdrant   VectorBackend = "qdrant"
	VectorBackendSQLite   VectorBackend = "sqlite"
	VectorBackendPgvector VectorBackend = "pgvector"
	VectorBackendMemory   VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendQdrant, VectorBackendSQLite, VectorBackendPgvector, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// VectorStoreSettings configures the vector store.
type VectorStoreSettings struct {
	// Backend selects the implementation.
	Backend VectorBackend

	// Collection is the default collection name.
	Collection string

	// SearchLimit is the default number of chunk hits for find.
	SearchLimit int

	// ReadOnly disables every write operation on the exposed surfaces.
	ReadOnly bool

	// RateLimit caps backend calls per second. Zero disables limiting.
	RateLimit float64
}

// QdrantSettings configures the Qdrant REST backend.
type QdrantSettings struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// SQLiteSettings configures the local SQLite backend.
type SQLiteSettings struct {
	// Path is the database file. Empty uses the config directory.
	Path string
}

// PostgresSettings configures the pgvector backend.
type PostgresSettings struct {
	DSN string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the known model dimension table.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// EmbeddingCacheSettings configures the Redis embedding cache.
type EmbeddingCacheSettings struct {
	// RedisAddr enables the cache when set.
	RedisAddr string

	// TTL is the cache entry lifetime. Zero keeps entries forever.
	TTL time.Duration
}

// Enabled returns true if a cache address is configured.
func (c EmbeddingCacheSettings) Enabled() bool {
	return c.RedisAddr != ""
}

// SummarySettings holds summariser configuration.
// Summaries are disabled when Provider or Model is empty.
type SummarySettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// BestEffort degrades summariser failures to "no abstract".
	BestEffort bool

	// AutoTags asks the summariser for tags when a store has none.
	AutoTags bool
}

// IsConfigured returns true if abstracts should be generated.
func (s SummarySettings) IsConfigured() bool {
	if !s.Provider.IsValid() || s.Model == "" {
		return false
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return false
	}
	return true
}

// Chunking defaults, in estimated tokens.
const (
	DefaultChunkSize     = 1500
	DefaultChunkOverlap  = 375
	DefaultCharsPerToken = 3.3
	DefaultLookback      = 300
)

// ChunkingSettings configures the chunker.
type ChunkingSettings struct {
	// ChunkSize is the target chunk size in estimated tokens.
	ChunkSize int

	// Overlap is the overlap between consecutive chunks in estimated tokens.
	Overlap int

	// CharsPerToken converts token estimates to characters.
	CharsPerToken float64

	// Lookback bounds the backward boundary search in estimated tokens.
	Lookback int
}

// Validate rejects settings the chunker cannot make progress with.
func (c ChunkingSettings) Validate() error {
	if c.ChunkSize <= 0 {
		return &ValidationError{Field: "chunk_size", Reason: "must be positive"}
	}
	if c.Overlap < 0 {
		return &ValidationError{Field: "chunk_overlap", Reason: "must not be negative"}
	}
	if c.Overlap >= c.ChunkSize {
		return &ValidationError{Field: "chunk_overlap", Reason: "must be smaller than chunk_size"}
	}
	if c.CharsPerToken <= 0 {
		return &ValidationError{Field: "chars_per_token", Reason: "must be positive"}
	}
	if c.Lookback < 0 {
		return &ValidationError{Field: "lookback", Reason: "must not be negative"}
	}
	return nil
}

// AccessSettings configures access tracking.
type AccessSettings struct {
	// AdoptLegacy initialises tracking fields on legacy records when read.
	AdoptLegacy bool
}

// CleanupSettings holds cleanup defaults.
type CleanupSettings struct {
	Threshold        float64
	DecayLambda      float64
	IncludeUntracked bool
}

// Policy returns the missing-tracking policy these settings select.
func (c CleanupSettings) Policy() MissingTrackingPolicy {
	if c.IncludeUntracked {
		return MissingTrackingZero
	}
	return MissingTrackingSkip
}

// Transport selects how the MCP server is exposed.
type Transport string

// Available transports.
const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// ServerSettings configures the exposed surfaces.
type ServerSettings struct {
	// Transport is the MCP transport.
	Transport Transport

	// Address is the MCP HTTP listen address.
	Address string

	// APIAddress is the REST sync API listen address.
	APIAddress string

	// ToolDescriptions overrides MCP tool descriptions by tool name.
	ToolDescriptions map[string]string
}

// AppSettings holds all application settings.
type AppSettings struct {
	VectorStore    VectorStoreSettings
	Qdrant         QdrantSettings
	SQLite         SQLiteSettings
	Postgres       PostgresSettings
	Embedding      EmbeddingSettings
	EmbeddingCache EmbeddingCacheSettings
	Summary        SummarySettings
	Chunking       ChunkingSettings
	Access         AccessSettings
	Cleanup        CleanupSettings
	Server         ServerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Summaries are left unconfigured by default.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		VectorStore: VectorStoreSettings{
			Backend:     VectorBackendQdrant,
			Collection:  "documents",
			SearchLimit: 10,
		},
		Qdrant: QdrantSettings{
			URL:     "http://localhost:6333",
			Timeout: 30 * time.Second,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		Chunking: ChunkingSettings{
			ChunkSize:     DefaultChunkSize,
			Overlap:       DefaultChunkOverlap,
			CharsPerToken: DefaultCharsPerToken,
			Lookback:      DefaultLookback,
		},
		Cleanup: CleanupSettings{
			Threshold:   DefaultCleanupThreshold,
			DecayLambda: DefaultDecayLambda,
		},
		Server: ServerSettings{
			Transport:  TransportStdio,
			Address:    ":8000",
			APIAddress: ":8080",
		},
	}
}

// Validate checks cross-field constraints.
func (s AppSettings) Validate() error {
	if !s.VectorStore.Backend.IsValid() {
		return &ValidationError{Field: "vector_store.backend", Reason: "unknown backend " + string(s.VectorStore.Backend)}
	}
	if strings.TrimSpace(s.VectorStore.Collection) == "" {
		return &ValidationError{Field: "vector_store.collection", Reason: "is required"}
	}
	if s.VectorStore.SearchLimit <= 0 {
		return &ValidationError{Field: "vector_store.search_limit", Reason: "must be positive"}
	}
	if s.VectorStore.Backend == VectorBackendPgvector && s.Postgres.DSN == "" {
		return &ValidationError{Field: "postgres.dsn", Reason: "is required for the pgvector backend"}
	}
	switch s.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return &ValidationError{Field: "server.transport", Reason: "must be stdio or http"}
	}
	return s.Chunking.Validate()
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default summary models for each provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
