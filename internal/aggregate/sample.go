package aggregate

import (
	"embed"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/david/contract-radar/internal/source"
	"github.com/david/contract-radar/internal/transform"
)

//go:embed sample.json
var sampleFS embed.FS

var (
	sampleOnce sync.Once
	sampleData []transform.Opportunity
)

// SampleRecords returns the bundled demonstration dataset so the consumer
// interface is never left empty when every tier fails. When the query
// carries a state filter the sample is filtered to match; otherwise the
// whole set is returned, capped at the requested page size.
func SampleRecords(q source.Query) []transform.Opportunity {
	sampleOnce.Do(loadSample)

	out := make([]transform.Opportunity, 0, len(sampleData))
	state := strings.ToUpper(strings.TrimSpace(q.State))
	for _, opp := range sampleData {
		if state != "" && opp.State != state {
			continue
		}
		out = append(out, opp)
	}
	if state != "" && len(out) == 0 {
		// A filter that matches nothing still must not leave the consumer
		// empty; fall back to the full set.
		out = append(out, sampleData...)
	}
	// Sort before applying the page-size cap so the cap keeps the newest
	// records rather than whatever order the file happens to be in.
	transform.SortByDateDesc(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func loadSample() {
	data, err := sampleFS.ReadFile("sample.json")
	if err != nil {
		log.Printf("[Aggregate] Failed to read bundled sample: %v", err)
		return
	}
	if err := json.Unmarshal(data, &sampleData); err != nil {
		log.Printf("[Aggregate] Failed to parse bundled sample: %v", err)
	}
}
