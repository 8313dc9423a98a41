package chunker

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// reassemble joins segments, dropping each segment's overlap with its predecessor.
func reassemble(segs []Segment) string {
	var b strings.Builder
	end := 0
	for _, s := range segs {
		runes := []rune(s.Text)
		skip := end - s.Start
		if skip < 0 {
			skip = 0
		}
		b.WriteString(string(runes[skip:]))
		end = s.End
	}
	return b.String()
}

func mustNew(t *testing.T, opts ...Option) *Chunker {
	t.Helper()
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := mustNew(t)
		s := c.Settings()
		assert.Equal(t, domain.DefaultChunkSize, s.ChunkSize)
		assert.Equal(t, domain.DefaultChunkOverlap, s.Overlap)
		assert.Equal(t, 4950, c.sizeChars)
		assert.Equal(t, 1237, c.overlapChars)
		assert.Equal(t, 990, c.lookbackChars)
	})

	t.Run("custom chunk size", func(t *testing.T) {
		c := mustNew(t, WithChunkSize(500), WithOverlap(100))
		assert.Equal(t, 500, c.Settings().ChunkSize)
		assert.Equal(t, 1650, c.sizeChars)
	})

	t.Run("overlap equal to chunk size is rejected", func(t *testing.T) {
		c, err := New(WithChunkSize(100), WithOverlap(100))
		assert.Nil(t, c)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("overlap exceeding chunk size is rejected", func(t *testing.T) {
		_, err := New(WithChunkSize(100), WithOverlap(150))
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "chunk_overlap", ve.Field)
	})

	t.Run("zero chunk size is rejected", func(t *testing.T) {
		_, err := New(WithChunkSize(0))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("negative ratio is rejected", func(t *testing.T) {
		_, err := New(WithCharsPerToken(-1))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestChunker_EmptyInput(t *testing.T) {
	c := mustNew(t)

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t "))
}

func TestChunker_ShortTextIsOneChunk(t *testing.T) {
	c := mustNew(t, WithChunkSize(10), WithOverlap(2), WithCharsPerToken(1), WithLookback(3))

	for _, text := range []string{"a", "hello", "  padded  ", "exactly10!"} {
		chunks := c.Split(text)
		require.Len(t, chunks, 1, text)
		assert.Equal(t, text, chunks[0])
	}
}

func TestChunker_HardCut(t *testing.T) {
	c := mustNew(t, WithChunkSize(10), WithOverlap(2), WithCharsPerToken(1), WithLookback(3))
	text := strings.Repeat("a", 25)

	segs := c.Segments(text)

	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Start: 0, End: 10, Text: strings.Repeat("a", 10)}, segs[0])
	assert.Equal(t, 8, segs[1].Start)
	assert.Equal(t, 18, segs[1].End)
	assert.Equal(t, 16, segs[2].Start)
	assert.Equal(t, 25, segs[2].End)
	assert.Equal(t, text, reassemble(segs))
}

func TestChunker_BoundaryPriority(t *testing.T) {
	c := mustNew(t, WithChunkSize(20), WithOverlap(0), WithCharsPerToken(1), WithLookback(10))
	tail := strings.Repeat("z", 30)

	tests := []struct {
		name  string
		text  string
		first string
	}{
		{
			name:  "paragraph beats later newline",
			text:  "0123456789" + "a\n\nb c\nd ef" + tail,
			first: "0123456789a\n\n",
		},
		{
			name:  "newline beats later sentence and word",
			text:  "0123456789" + "ab\ncd. e fg" + tail,
			first: "0123456789ab\n",
		},
		{
			name:  "sentence beats later word",
			text:  "0123456789" + "ab. cd efgh" + tail,
			first: "0123456789ab. ",
		},
		{
			name:  "word boundary",
			text:  "0123456789" + "abcd efghij" + tail,
			first: "0123456789abcd ",
		},
		{
			name:  "boundary outside lookback is ignored",
			text:  "0123 56789" + "abcdefghij" + tail,
			first: "0123 56789abcdefghij",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := c.Split(tt.text)
			require.NotEmpty(t, chunks)
			assert.Equal(t, tt.first, chunks[0])
		})
	}
}

func TestChunker_OverlapClampedToPreviousStart(t *testing.T) {
	// A boundary close to the start combined with a large overlap would move
	// the cursor backwards; the next chunk must start at the cut instead.
	c := mustNew(t, WithChunkSize(10), WithOverlap(8), WithCharsPerToken(1), WithLookback(9))
	text := "ab cdefghijklmnopqrstuvwxyz"

	segs := c.Segments(text)

	for i := 1; i < len(segs); i++ {
		assert.Greater(t, segs[i].Start, segs[i-1].Start)
	}
	assert.Equal(t, text, reassemble(segs))
}

func TestChunker_Deterministic(t *testing.T) {
	c := mustNew(t, WithChunkSize(50), WithOverlap(10))
	text := generateText(rand.New(rand.NewSource(7)), 4000)

	first := c.Segments(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Segments(text))
	}
}

func TestChunker_ReconstructsOriginal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	configs := []struct {
		size, overlap, lookback int
	}{
		{50, 10, 15},
		{100, 25, 30},
		{20, 19, 5},
		{30, 0, 30},
	}

	for _, cfg := range configs {
		c := mustNew(t, WithChunkSize(cfg.size), WithOverlap(cfg.overlap), WithLookback(cfg.lookback))
		for i := 0; i < 25; i++ {
			text := generateText(rng, 200+rng.Intn(3000))
			segs := c.Segments(text)
			require.NotEmpty(t, segs)
			assert.Equal(t, text, reassemble(segs))
			for _, s := range segs {
				assert.NotEmpty(t, s.Text)
				assert.LessOrEqual(t, s.End-s.Start, c.sizeChars)
			}
		}
	}
}

func TestChunker_MultiByteText(t *testing.T) {
	c := mustNew(t, WithChunkSize(10), WithOverlap(2), WithCharsPerToken(1), WithLookback(3))
	text := strings.Repeat("äöü€", 10)

	segs := c.Segments(text)

	assert.Equal(t, text, reassemble(segs))
	for _, s := range segs {
		assert.Equal(t, s.End-s.Start, len([]rune(s.Text)))
	}
}

func TestChunker_DockerBridgeScenario(t *testing.T) {
	// 4500 estimated tokens at 3.3 chars per token.
	text := strings.Repeat("word ", 2970)
	require.Equal(t, 4500, EstimateTokens(text, domain.DefaultCharsPerToken))

	c := mustNew(t, WithChunkSize(1500), WithOverlap(375))
	segs := c.Segments(text)

	require.Len(t, segs, 4)
	assert.Equal(t, text, reassemble(segs))
}

func TestTokensToChars(t *testing.T) {
	assert.Equal(t, 4950, TokensToChars(1500, 3.3))
	assert.Equal(t, 1237, TokensToChars(375, 3.3))
	assert.Equal(t, 990, TokensToChars(300, 3.3))
	assert.Equal(t, 40, TokensToChars(10, 4))
}

// generateText builds text mixing paragraphs, lines, sentences and long words.
func generateText(rng *rand.Rand, n int) string {
	pieces := []string{"alpha", "beta", "gamma", "delta", "überlang", "x", "Configuration", "a-b-c"}
	seps := []string{" ", " ", " ", ". ", "! ", "\n", "\n\n", ", ", "? "}

	var b strings.Builder
	for b.Len() < n {
		b.WriteString(pieces[rng.Intn(len(pieces))])
		if rng.Intn(15) == 0 {
			b.WriteString(strings.Repeat("q", 40+rng.Intn(80)))
		}
		b.WriteString(seps[rng.Intn(len(seps))])
	}
	return b.String()
}
