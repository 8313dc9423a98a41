package normalisers

import (
	"regexp"
	"strings"
)

var (
	mdFence      = regexp.MustCompile("(?m)^```[^\n]*\n?")
	mdImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdQuote      = regexp.MustCompile(`(?m)^>\s?`)
	mdRule       = regexp.MustCompile(`(?m)^\s*([-*_])(\s*[-*_]){2,}\s*$`)
	mdBullet     = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	mdEmphasis   = regexp.MustCompile(`(\*\*|__|\*|~~)([^*_~\n]+)(\*\*|__|\*|~~)`)
	mdInlineCode = regexp.MustCompile("`([^`\n]+)`")
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// Markdown removes formatting syntax but keeps the text, including code
// blocks and link labels. The first level-one heading becomes the title.
func Markdown(name string, data []byte) (Result, error) {
	raw := string(data)

	title := ""
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			break
		}
	}
	if title == "" {
		title = titleFromName(name)
	}

	return Result{Title: title, Content: stripMarkdown(raw), Format: "markdown"}, nil
}

func stripMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = mdFence.ReplaceAllString(s, "")
	s = mdImage.ReplaceAllString(s, "$1")
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdHeading.ReplaceAllString(s, "")
	s = mdQuote.ReplaceAllString(s, "")
	s = mdRule.ReplaceAllString(s, "")
	s = mdBullet.ReplaceAllString(s, "$1")
	s = mdEmphasis.ReplaceAllString(s, "$2")
	s = mdInlineCode.ReplaceAllString(s, "$1")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
