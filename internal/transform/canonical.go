package transform

import "sort"

// Sentinels used instead of absent fields so consumers never see nulls.
const (
	UnknownPlace     = "Unknown"
	VendorNotAwarded = "Not Yet Awarded"
)

// Opportunity is the canonical contract-opportunity record. It is the only
// shape the rest of the application sees, independent of which source a
// record came from.
type Opportunity struct {
	ID               string  `json:"id"`     // source-qualified identifier
	Title            string  `json:"title"`  // display title
	Date             string  `json:"date"`   // ISO calendar date, award preferred over posting
	Agency           string  `json:"agency"` // issuing agency name
	Vendor           string  `json:"vendor"` // awardee, or VendorNotAwarded
	Description      string  `json:"description"`
	Amount           float64 `json:"amount"` // parsed, non-negative, 0 when unknown
	NAICSCode        string  `json:"naicsCode"`
	NAICSDescription string  `json:"naicsDescription"`
	SetAside         string  `json:"setAside,omitempty"`
	State            string  `json:"state"` // place of performance, UnknownPlace when absent
	City             string  `json:"city"`
}

// SortByDateDesc orders a transformed batch newest-first. ISO dates compare
// lexicographically, and the sort is stable so ties keep their relative
// order. Every adapter calls this as its final step; callers never re-sort.
func SortByDateDesc(opps []Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].Date > opps[j].Date
	})
}

// firstNonEmpty returns the first non-empty string, or "".
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
