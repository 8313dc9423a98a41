// Package normalisers turns files in common formats into the plain text a
// document is stored as. A normaliser is chosen by file extension; anything
// unrecognised is treated as plain text.
package normalisers

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// Result is the text extracted from a file.
type Result struct {
	// Title is the title found inside the file, or one derived from its name.
	Title string
	// Content is the extracted plain text.
	Content string
	// Format names the normaliser that produced the result.
	Format string
}

// Func converts raw file bytes into a Result. The name is used for title
// fallback only.
type Func func(name string, data []byte) (Result, error)

var byExtension = map[string]Func{
	".html":     HTML,
	".htm":      HTML,
	".xhtml":    HTML,
	".md":       Markdown,
	".markdown": Markdown,
	".docx":     DOCX,
	".eml":      EML,
}

// Normalise picks a normaliser from the file extension and runs it.
func Normalise(name string, data []byte) (Result, error) {
	fn, ok := byExtension[strings.ToLower(filepath.Ext(name))]
	if !ok {
		fn = PlainText
	}
	res, err := fn(name, data)
	if err != nil {
		return Result{}, fmt.Errorf("normalising %s: %w", filepath.Base(name), err)
	}
	return res, nil
}

// Supported reports whether a dedicated normaliser exists for the file.
func Supported(name string) bool {
	_, ok := byExtension[strings.ToLower(filepath.Ext(name))]
	return ok
}

// PlainText passes text through unchanged. Binary input is rejected.
func PlainText(name string, data []byte) (Result, error) {
	if !utf8.Valid(data) {
		return Result{}, &domain.ValidationError{Field: "content", Reason: "file is not valid UTF-8 text"}
	}
	return Result{
		Title:   titleFromName(name),
		Content: string(data),
		Format:  "text",
	}, nil
}

// titleFromName derives a readable title from a file name.
func titleFromName(name string) string {
	if name == "" || name == "-" {
		return ""
	}
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.TrimSpace(base)
}

// compactLines trims every line and drops the empty ones.
func compactLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
