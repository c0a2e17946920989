package transform

import "time"

// dateFormats covers the shapes the three upstreams actually emit.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// toISODate normalizes a source date string to an ISO calendar date.
// Returns "" when nothing parses.
func toISODate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// ResolveDate picks the record's date from candidates in preference order
// (award date first, then posting, then publication); the first candidate
// that parses wins.
func ResolveDate(candidates ...string) string {
	for _, c := range candidates {
		if iso := toISODate(c); iso != "" {
			return iso
		}
	}
	return ""
}
