package transform

import "strings"

// setAsideRule maps a keyword found anywhere in a program description to one
// of the fixed set-aside categories.
type setAsideRule struct {
	keyword  string
	category string
}

// setAsideRules are tried in order; the first match wins. More specific
// programs come before the generic small-business catch-all.
var setAsideRules = []setAsideRule{
	{"women", "Women-Owned Small Business"},
	{"woman", "Women-Owned Small Business"},
	{"wosb", "Women-Owned Small Business"},
	{"service-disabled", "Service-Disabled Veteran-Owned"},
	{"veteran", "Veteran-Owned Small Business"},
	{"8(a)", "8(a) Program"},
	{"8a", "8(a) Program"},
	{"hubzone", "HUBZone"},
	{"disadvantaged", "Small Disadvantaged Business"},
	{"small business", "Small Business Set-Aside"},
}

// ClassifySetAside maps a free-text set-aside description to the fixed
// category enumeration via case-insensitive substring matching. Text that
// matches no rule passes through unchanged rather than being dropped; empty
// input yields no set-aside.
func ClassifySetAside(desc string) string {
	trimmed := strings.TrimSpace(desc)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	for _, rule := range setAsideRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.category
		}
	}
	return trimmed
}
