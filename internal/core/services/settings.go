package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyBackend          = "vector_store.backend"
	keyCollection       = "vector_store.collection"
	keySearchLimit      = "vector_store.search_limit"
	keyReadOnly         = "vector_store.read_only"
	keyRateLimit        = "vector_store.rate_limit"
	keyQdrantURL        = "qdrant.url"
	keyQdrantAPIKey     = "qdrant.api_key"
	keyQdrantTimeout    = "qdrant.timeout"
	keySQLitePath       = "sqlite.path"
	keyPostgresDSN      = "postgres.dsn"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDims        = "embedding.dimensions"
	keyCacheRedisAddr   = "embedding_cache.redis_addr"
	keyCacheTTL         = "embedding_cache.ttl"
	keySummaryProvider  = "summary.provider"
	keySummaryModel     = "summary.model"
	keySummaryBaseURL   = "summary.base_url"
	keySummaryAPIKey    = "summary.api_key"
	keySummaryBestEff   = "summary.best_effort"
	keySummaryAutoTags  = "summary.auto_tags"
	keyChunkSize        = "chunking.chunk_size"
	keyChunkOverlap     = "chunking.overlap"
	keyCharsPerToken    = "chunking.chars_per_token"
	keyLookback         = "chunking.lookback"
	keyAdoptLegacy      = "access.adopt_legacy"
	keyCleanupThreshold = "cleanup.threshold"
	keyCleanupLambda    = "cleanup.decay_lambda"
	keyCleanupUntracked = "cleanup.include_untracked"
	keyTransport        = "server.transport"
	keyAddress          = "server.address"
	keyAPIAddress       = "server.api_address"
	keyToolDescriptions = "server.tool_descriptions"
)

// SettingsService manages application settings.
// Values come from the config store, then environment variables override them.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service reading the process environment.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// WithEnv replaces the environment lookup. Useful for testing.
func (s *SettingsService) WithEnv(lookup func(string) (string, bool)) *SettingsService {
	s.lookupEnv = lookup
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	timeout, err := s.getDuration(keyQdrantTimeout, d.Qdrant.Timeout)
	if err != nil {
		return nil, err
	}
	ttl, err := s.getDuration(keyCacheTTL, 0)
	if err != nil {
		return nil, err
	}

	settings := &domain.AppSettings{
		VectorStore: domain.VectorStoreSettings{
			Backend:     s.getBackend(d.VectorStore.Backend),
			Collection:  s.getString(keyCollection, d.VectorStore.Collection),
			SearchLimit: s.getInt(keySearchLimit, d.VectorStore.SearchLimit),
			ReadOnly:    s.getBool(keyReadOnly, d.VectorStore.ReadOnly),
			RateLimit:   s.getFloat(keyRateLimit, d.VectorStore.RateLimit),
		},
		Qdrant: domain.QdrantSettings{
			URL:     s.getString(keyQdrantURL, d.Qdrant.URL),
			APIKey:  s.configStore.GetString(keyQdrantAPIKey),
			Timeout: timeout,
		},
		SQLite:   domain.SQLiteSettings{Path: s.configStore.GetString(keySQLitePath)},
		Postgres: domain.PostgresSettings{DSN: s.configStore.GetString(keyPostgresDSN)},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(keyEmbedDims),
		},
		EmbeddingCache: domain.EmbeddingCacheSettings{
			RedisAddr: s.configStore.GetString(keyCacheRedisAddr),
			TTL:       ttl,
		},
		Summary: domain.SummarySettings{
			Provider:   s.getProvider(keySummaryProvider, ""),
			Model:      s.configStore.GetString(keySummaryModel),
			BaseURL:    s.configStore.GetString(keySummaryBaseURL),
			APIKey:     s.configStore.GetString(keySummaryAPIKey),
			BestEffort: s.getBool(keySummaryBestEff, d.Summary.BestEffort),
			AutoTags:   s.getBool(keySummaryAutoTags, d.Summary.AutoTags),
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize:     s.getInt(keyChunkSize, d.Chunking.ChunkSize),
			Overlap:       s.getInt(keyChunkOverlap, d.Chunking.Overlap),
			CharsPerToken: s.getFloat(keyCharsPerToken, d.Chunking.CharsPerToken),
			Lookback:      s.getInt(keyLookback, d.Chunking.Lookback),
		},
		Access: domain.AccessSettings{
			AdoptLegacy: s.getBool(keyAdoptLegacy, d.Access.AdoptLegacy),
		},
		Cleanup: domain.CleanupSettings{
			Threshold:        s.getFloat(keyCleanupThreshold, d.Cleanup.Threshold),
			DecayLambda:      s.getFloat(keyCleanupLambda, d.Cleanup.DecayLambda),
			IncludeUntracked: s.getBool(keyCleanupUntracked, d.Cleanup.IncludeUntracked),
		},
		Server: domain.ServerSettings{
			Transport:        domain.Transport(s.getString(keyTransport, string(d.Server.Transport))),
			Address:          s.getString(keyAddress, d.Server.Address),
			APIAddress:       s.getString(keyAPIAddress, d.Server.APIAddress),
			ToolDescriptions: s.configStore.GetStringMap(keyToolDescriptions),
		},
	}

	if err := s.applyEnv(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// applyEnv overrides settings from environment variables.
// Providers are applied before keys so a key lands on the final provider.
func (s *SettingsService) applyEnv(st *domain.AppSettings) error {
	str := func(name string, dst *string) {
		if v, ok := s.lookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	str("QDRANT_URL", &st.Qdrant.URL)
	str("QDRANT_API_KEY", &st.Qdrant.APIKey)
	str("COLLECTION_NAME", &st.VectorStore.Collection)
	str("REDIS_ADDR", &st.EmbeddingCache.RedisAddr)
	str("DATABASE_URL", &st.Postgres.DSN)
	str("EMBEDDING_MODEL", &st.Embedding.Model)
	str("SUMMARY_MODEL", &st.Summary.Model)

	if v, ok := s.lookupEnv("QDRANT_SEARCH_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &domain.ValidationError{Field: "QDRANT_SEARCH_LIMIT", Reason: "must be an integer"}
		}
		st.VectorStore.SearchLimit = n
	}
	if v, ok := s.lookupEnv("QDRANT_READ_ONLY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &domain.ValidationError{Field: "QDRANT_READ_ONLY", Reason: "must be a boolean"}
		}
		st.VectorStore.ReadOnly = b
	}
	if v, ok := s.lookupEnv("EMBEDDING_PROVIDER"); ok && v != "" {
		st.Embedding.Provider = domain.AIProvider(strings.ToLower(v))
	}
	if v, ok := s.lookupEnv("SUMMARY_PROVIDER"); ok && v != "" {
		st.Summary.Provider = domain.AIProvider(strings.ToLower(v))
		if st.Summary.Model == "" {
			st.Summary.Model = domain.DefaultLLMModels()[st.Summary.Provider]
		}
	}

	if v, ok := s.lookupEnv("OLLAMA_URL"); ok && v != "" {
		if st.Embedding.Provider == domain.AIProviderOllama {
			st.Embedding.BaseURL = v
		}
		if st.Summary.Provider == domain.AIProviderOllama {
			st.Summary.BaseURL = v
		}
	}
	if v, ok := s.lookupEnv("OPENAI_API_KEY"); ok && v != "" {
		if st.Embedding.Provider == domain.AIProviderOpenAI {
			st.Embedding.APIKey = v
		}
		if st.Summary.Provider == domain.AIProviderOpenAI {
			st.Summary.APIKey = v
		}
	}
	if v, ok := s.lookupEnv("ANTHROPIC_API_KEY"); ok && v != "" && st.Summary.Provider == domain.AIProviderAnthropic {
		st.Summary.APIKey = v
	}
	return nil
}

// Save persists application settings. Empty API keys are not written.
func (s *SettingsService) Save(st *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyBackend, string(st.VectorStore.Backend)},
		{keyCollection, st.VectorStore.Collection},
		{keySearchLimit, st.VectorStore.SearchLimit},
		{keyReadOnly, st.VectorStore.ReadOnly},
		{keyRateLimit, st.VectorStore.RateLimit},
		{keyQdrantURL, st.Qdrant.URL},
		{keyQdrantTimeout, st.Qdrant.Timeout.String()},
		{keySQLitePath, st.SQLite.Path},
		{keyEmbedProvider, st.Embedding.Provider.String()},
		{keyEmbedModel, st.Embedding.Model},
		{keyEmbedBaseURL, st.Embedding.BaseURL},
		{keyEmbedDims, st.Embedding.Dimensions},
		{keyCacheRedisAddr, st.EmbeddingCache.RedisAddr},
		{keyCacheTTL, st.EmbeddingCache.TTL.String()},
		{keySummaryProvider, st.Summary.Provider.String()},
		{keySummaryModel, st.Summary.Model},
		{keySummaryBaseURL, st.Summary.BaseURL},
		{keySummaryBestEff, st.Summary.BestEffort},
		{keySummaryAutoTags, st.Summary.AutoTags},
		{keyChunkSize, st.Chunking.ChunkSize},
		{keyChunkOverlap, st.Chunking.Overlap},
		{keyCharsPerToken, st.Chunking.CharsPerToken},
		{keyLookback, st.Chunking.Lookback},
		{keyAdoptLegacy, st.Access.AdoptLegacy},
		{keyCleanupThreshold, st.Cleanup.Threshold},
		{keyCleanupLambda, st.Cleanup.DecayLambda},
		{keyCleanupUntracked, st.Cleanup.IncludeUntracked},
		{keyTransport, string(st.Server.Transport)},
		{keyAddress, st.Server.Address},
		{keyAPIAddress, st.Server.APIAddress},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := map[string]string{
		keyQdrantAPIKey:  st.Qdrant.APIKey,
		keyPostgresDSN:   st.Postgres.DSN,
		keyEmbedAPIKey:   st.Embedding.APIKey,
		keySummaryAPIKey: st.Summary.APIKey,
	}
	for key, value := range secrets {
		if value == "" {
			continue
		}
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: %s needs an API key or does not support embeddings",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if settings.Summary.Provider != "" && !settings.Summary.IsConfigured() {
		logger.Warn("summary provider %s is incomplete, abstracts are disabled", settings.Summary.Provider)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := s.configStore.GetString(key)
	if val == "" {
		if secs := s.configStore.GetInt(key); secs > 0 {
			return time.Duration(secs) * time.Second, nil
		}
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, &domain.ValidationError{Field: key, Reason: "must be a duration such as 30s"}
	}
	return d, nil
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	val := s.configStore.GetString(keyBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.VectorBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
