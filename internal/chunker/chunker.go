// Package chunker splits document text into overlapping chunks that fit an
// embedding model's context window, preferring natural text boundaries.
package chunker

import (
	"strings"
	"unicode"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// Chunker splits text into boundary-aware, overlapping chunks.
// Sizes are configured in estimated tokens and converted to characters
// once, at construction. A Chunker is immutable and safe for concurrent use.
type Chunker struct {
	settings domain.ChunkingSettings

	sizeChars     int
	overlapChars  int
	lookbackChars int
}

// Option configures the chunker.
type Option func(*domain.ChunkingSettings)

// WithChunkSize sets the target chunk size in estimated tokens.
func WithChunkSize(tokens int) Option {
	return func(s *domain.ChunkingSettings) {
		s.ChunkSize = tokens
	}
}

// WithOverlap sets the overlap between chunks in estimated tokens.
func WithOverlap(tokens int) Option {
	return func(s *domain.ChunkingSettings) {
		s.Overlap = tokens
	}
}

// WithCharsPerToken sets the character-to-token ratio.
func WithCharsPerToken(ratio float64) Option {
	return func(s *domain.ChunkingSettings) {
		s.CharsPerToken = ratio
	}
}

// WithLookback sets how far back from the target position a boundary may be.
func WithLookback(tokens int) Option {
	return func(s *domain.ChunkingSettings) {
		s.Lookback = tokens
	}
}

// New creates a chunker. Invalid settings, including an overlap that is not
// smaller than the chunk size, are rejected here rather than at split time.
func New(opts ...Option) (*Chunker, error) {
	s := domain.ChunkingSettings{
		ChunkSize:     domain.DefaultChunkSize,
		Overlap:       domain.DefaultChunkOverlap,
		CharsPerToken: domain.DefaultCharsPerToken,
		Lookback:      domain.DefaultLookback,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return FromSettings(s)
}

// FromSettings creates a chunker from stored settings.
func FromSettings(s domain.ChunkingSettings) (*Chunker, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	c := &Chunker{
		settings:      s,
		sizeChars:     TokensToChars(s.ChunkSize, s.CharsPerToken),
		overlapChars:  TokensToChars(s.Overlap, s.CharsPerToken),
		lookbackChars: TokensToChars(s.Lookback, s.CharsPerToken),
	}
	if c.sizeChars < 1 {
		return nil, &domain.ValidationError{Field: "chunk_size", Reason: "is smaller than one character"}
	}
	if c.overlapChars >= c.sizeChars {
		return nil, &domain.ValidationError{Field: "chunk_overlap", Reason: "must be smaller than chunk_size"}
	}
	return c, nil
}

// Settings returns the settings the chunker was built with.
func (c *Chunker) Settings() domain.ChunkingSettings {
	return c.settings
}

// Segment is one chunk with its position in the source text.
// Start and End are rune offsets; End is exclusive.
type Segment struct {
	Start int
	End   int
	Text  string
}

// Split returns the chunk texts for text. Blank text yields no chunks.
func (c *Chunker) Split(text string) []string {
	segs := c.Segments(text)
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out
}

// Segments splits text and reports each chunk's rune offsets.
// Consecutive segments overlap; segment i+1 never starts before segment i.
func (c *Chunker) Segments(text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	if n <= c.sizeChars {
		return []Segment{{Start: 0, End: n, Text: text}}
	}

	var segs []Segment
	start := 0
	for n-start > c.sizeChars {
		target := start + c.sizeChars
		minPos := max(start+1, target-c.lookbackChars)
		cut := findBoundary(runes, minPos, target)

		segs = append(segs, Segment{Start: start, End: cut, Text: string(runes[start:cut])})

		next := cut - c.overlapChars
		if next <= start {
			next = cut
		}
		start = next
	}
	segs = append(segs, Segment{Start: start, End: n, Text: string(runes[start:])})

	return segs
}

// findBoundary searches runes[lo:hi] backwards for a cut position.
// Priority: paragraph break, line break, sentence end, word boundary.
// Returns hi (a hard cut) when the window holds no boundary.
func findBoundary(runes []rune, lo, hi int) int {
	if lo >= hi {
		return hi
	}

	for i := hi - 2; i >= lo; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}
	for i := hi - 1; i >= lo; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	for i := hi - 2; i >= lo; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 2
		}
	}
	for i := hi - 1; i >= lo; i-- {
		if runes[i] == ' ' {
			return i + 1
		}
	}
	return hi
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// TokensToChars converts an estimated token count to characters.
func TokensToChars(tokens int, charsPerToken float64) int {
	return int(float64(tokens)*charsPerToken + 1e-9)
}

// EstimateTokens estimates the token count of text from its length.
func EstimateTokens(text string, charsPerToken float64) int {
	if charsPerToken <= 0 {
		charsPerToken = domain.DefaultCharsPerToken
	}
	return int(float64(len([]rune(text)))/charsPerToken + 1e-9)
}
