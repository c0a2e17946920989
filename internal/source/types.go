package source

import "time"

// Query describes one paginated opportunity search. Immutable per call.
type Query struct {
	State      string    `json:"state,omitempty"`      // two-letter state code
	NAICSCode  string    `json:"naicsCode,omitempty"`  // industry classification
	Department string    `json:"department,omitempty"` // issuing department name
	PostedFrom time.Time `json:"postedFrom"`
	PostedTo   time.Time `json:"postedTo"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}

// WithDefaults fills unset pagination and date-range fields. SAM.gov and
// USAspending both reject open-ended ranges, so a missing range defaults to
// the trailing year. Defaulted dates are truncated to midnight UTC: the
// upstreams only take day-granular dates, and a sub-day component would make
// every defaulted query hash to a distinct cache key.
func (q Query) WithDefaults(now time.Time) Query {
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.PostedTo.IsZero() {
		q.PostedTo = now.UTC().Truncate(24 * time.Hour)
	}
	if q.PostedFrom.IsZero() {
		q.PostedFrom = q.PostedTo.AddDate(-1, 0, 0)
	}
	return q
}
