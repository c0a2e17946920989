package transform

import (
	"strconv"
	"strings"
)

// ParseAmount coerces a currency string to a float. Punctuation like "$" and
// thousands separators are stripped first. Anything unparsable, negative, or
// absent becomes 0 — never NaN, never an error.
func ParseAmount(raw string) float64 {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return 0
	}
	clean = strings.NewReplacer("$", "", ",", "", " ", "", "USD", "", "usd", "").Replace(clean)

	val, err := strconv.ParseFloat(clean, 64)
	if err != nil || val < 0 {
		return 0
	}
	return val
}
