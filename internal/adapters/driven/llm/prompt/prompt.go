// Package prompt holds the summariser prompt templates shared by the LLM adapters.
package prompt

import (
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// MaxContentChars bounds the document text sent to a model.
const MaxContentChars = 24000

// Tag limits for SuggestTags.
const (
	MinTags = 3
	MaxTags = 6
)

// Defaults contains the built-in templates, keyed by prompt name.
// Both templates take the document title and then its content.
var Defaults = map[string]string{
	driven.PromptSummarise: `Write a short abstract (two to four sentences) of the document below.
Capture what it is about and the facts a reader would search for.
Return ONLY the abstract.

Title: %s

Document:
%s

Abstract:`,

	driven.PromptTags: `Suggest between 3 and 6 short topic tags for the document below.
Use lowercase words or hyphenated phrases. Return one tag per line and nothing else.

Title: %s

Document:
%s

Tags:`,
}

// Templates resolves prompt templates from an optional store.
// The zero value uses Defaults.
type Templates struct {
	mu    sync.RWMutex
	store driven.PromptStore
}

// SetStore sets the store consulted before Defaults.
func (t *Templates) SetStore(store driven.PromptStore) {
	t.mu.Lock()
	t.store = store
	t.mu.Unlock()
}

// Render formats the named template with the title and truncated content.
func (t *Templates) Render(name, title, content string) string {
	return fmt.Sprintf(t.load(name), title, Truncate(content, MaxContentChars))
}

func (t *Templates) load(name string) string {
	t.mu.RLock()
	store := t.store
	t.mu.RUnlock()

	if store != nil {
		if tmpl, err := store.Load(name); err == nil && strings.Count(tmpl, "%s") == 2 {
			return tmpl
		}
	}
	return Defaults[name]
}

// Truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8Start(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}

// ParseTags turns a model reply into normalised tags.
// Lines and commas both separate tags; bullets, numbering and quotes are dropped.
func ParseTags(reply string) []string {
	fields := strings.FieldsFunc(reply, func(r rune) bool {
		return r == '\n' || r == ','
	})

	seen := make(map[string]bool)
	tags := make([]string, 0, MaxTags)
	for _, f := range fields {
		tag := stripMarker(strings.ToLower(strings.TrimSpace(f)))
		tag = strings.Trim(tag, "\"'`")
		tag = strings.Join(strings.Fields(tag), "-")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}

// stripMarker removes a leading bullet or list number such as "- " or "2. ".
func stripMarker(s string) string {
	s = strings.TrimLeft(s, "-*#• ")
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
