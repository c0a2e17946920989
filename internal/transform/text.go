package transform

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var sanitizePolicy = bluemonday.UGCPolicy()

// CleanDescription strips markup from a source-provided description. Feeds
// sometimes embed HTML fragments in description fields; the text is
// sanitized, flattened to plain text, and whitespace-collapsed.
func CleanDescription(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.ContainsAny(raw, "<>") {
		return cleanText(raw)
	}

	safe := sanitizePolicy.Sanitize(raw)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(safe))
	if err != nil {
		return cleanText(safe)
	}
	return cleanText(doc.Text())
}

// cleanText collapses runs of whitespace and trims.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateText cuts a string to max length, appending ellipsis if truncated.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return text[:maxLen-3] + "..."
	}
	return text[:maxLen]
}
