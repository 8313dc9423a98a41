package normalisers

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTitle      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlDropBlocks = regexp.MustCompile(`(?is)<(script|style|noscript|head|title|svg)\b[^>]*>.*?</(script|style|noscript|head|title|svg)>`)
	htmlComments   = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlBreaks     = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)(\s[^>]*)?/?>`)
	htmlTags       = regexp.MustCompile(`<[^>]+>`)
	spaceRuns      = regexp.MustCompile(`[ \t]+`)
)

// HTML strips markup and keeps readable text, one block per line. The
// <title> element is used as the title when present.
func HTML(name string, data []byte) (Result, error) {
	raw := string(data)

	title := ""
	if m := htmlTitle.FindStringSubmatch(raw); len(m) > 1 {
		title = strings.TrimSpace(html.UnescapeString(m[1]))
	}
	if title == "" {
		title = titleFromName(name)
	}

	return Result{Title: title, Content: stripHTML(raw), Format: "html"}, nil
}

func stripHTML(s string) string {
	s = htmlDropBlocks.ReplaceAllString(s, "")
	s = htmlComments.ReplaceAllString(s, "")
	s = htmlBreaks.ReplaceAllString(s, "\n")
	s = htmlTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spaceRuns.ReplaceAllString(s, " ")
	return compactLines(s)
}
