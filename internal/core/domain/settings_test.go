package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests all valid and invalid providers
func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{"ollama is valid", AIProviderOllama, true},
		{"openai is valid", AIProviderOpenAI, true},
		{"anthropic is valid", AIProviderAnthropic, true},
		{"empty is invalid", AIProvider(""), false},
		{"unknown is invalid", AIProvider("cohere"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_SupportsEmbeddings(t *testing.T) {
	assert.True(t, AIProviderOllama.SupportsEmbeddings())
	assert.True(t, AIProviderOpenAI.SupportsEmbeddings())
	assert.False(t, AIProviderAnthropic.SupportsEmbeddings())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
}

func TestSummarySettings_IsConfigured(t *testing.T) {
	assert.False(t, SummarySettings{}.IsConfigured())
	assert.False(t, SummarySettings{Provider: AIProviderOllama}.IsConfigured())
	assert.True(t, SummarySettings{Provider: AIProviderOllama, Model: "llama3.2"}.IsConfigured())
	assert.False(t, SummarySettings{Provider: AIProviderAnthropic, Model: "claude"}.IsConfigured())
}

func TestChunkingSettings_Validate(t *testing.T) {
	valid := ChunkingSettings{ChunkSize: 1500, Overlap: 375, CharsPerToken: 3.3, Lookback: 300}

	tests := []struct {
		name   string
		mutate func(*ChunkingSettings)
		field  string
	}{
		{"valid", func(*ChunkingSettings) {}, ""},
		{"zero size", func(c *ChunkingSettings) { c.ChunkSize = 0 }, "chunk_size"},
		{"negative overlap", func(c *ChunkingSettings) { c.Overlap = -1 }, "chunk_overlap"},
		{"overlap equals size", func(c *ChunkingSettings) { c.Overlap = 1500 }, "chunk_overlap"},
		{"overlap exceeds size", func(c *ChunkingSettings) { c.Overlap = 2000 }, "chunk_overlap"},
		{"zero ratio", func(c *ChunkingSettings) { c.CharsPerToken = 0 }, "chars_per_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	require.NoError(t, s.Validate())
	assert.Equal(t, VectorBackendQdrant, s.VectorStore.Backend)
	assert.Equal(t, "documents", s.VectorStore.Collection)
	assert.Equal(t, 10, s.VectorStore.SearchLimit)
	assert.Equal(t, 1500, s.Chunking.ChunkSize)
	assert.Equal(t, 375, s.Chunking.Overlap)
	assert.Equal(t, 1.0, s.Cleanup.Threshold)
	assert.Equal(t, 0.001, s.Cleanup.DecayLambda)
	assert.Equal(t, MissingTrackingSkip, s.Cleanup.Policy())
	assert.False(t, s.Summary.IsConfigured())
}

func TestAppSettings_Validate(t *testing.T) {
	t.Run("pgvector requires dsn", func(t *testing.T) {
		s := DefaultAppSettings()
		s.VectorStore.Backend = VectorBackendPgvector
		assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
	})

	t.Run("unknown backend", func(t *testing.T) {
		s := DefaultAppSettings()
		s.VectorStore.Backend = "milvus"
		assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
	})

	t.Run("invalid chunking", func(t *testing.T) {
		s := DefaultAppSettings()
		s.Chunking.Overlap = s.Chunking.ChunkSize
		assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
	})
}
