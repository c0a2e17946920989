package aggregate

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/david/contract-radar/internal/source"
	"github.com/david/contract-radar/internal/transform"
)

// State is the orchestrator's lifecycle over one consumer session.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Degraded // serving fallback, stale, or sample data
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Advisory texts surfaced to the consumer instead of errors.
const (
	advisoryQuota       = "Live opportunity feed quota exhausted; showing recent award data from alternate sources."
	advisoryUnreachable = "Live opportunity feed unreachable; showing recent award data from alternate sources."
	advisoryMalformed   = "Live opportunity feed returned unexpected data; previously loaded results are shown."
	advisorySample      = "Live data is currently unavailable; showing demonstration data."
)

// Config carries the orchestrator's tuning knobs.
type Config struct {
	PageSize           int
	BaseQuery          source.Query  // filters applied to every fetch
	RefreshInterval    time.Duration // normal auto-refresh cadence
	QuotaBackoff       time.Duration // widened interval after quota exhaustion
	UnreachableBackoff time.Duration // modestly shortened cadence after transport faults
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 30 * time.Minute
	}
	if c.QuotaBackoff <= 0 {
		c.QuotaBackoff = 6 * time.Hour
	}
	if c.UnreachableBackoff <= 0 {
		c.UnreachableBackoff = 5 * time.Minute
	}
	return c
}

// Snapshot is the consumer-facing read interface. The record list is never
// empty after the first fetch and errors never surface as anything but the
// advisory string.
type Snapshot struct {
	Records    []transform.Opportunity `json:"records"`
	Loading    bool                    `json:"loading"`
	Advisory   string                  `json:"advisory,omitempty"`
	TotalKnown int                     `json:"totalKnown"`
	HasMore    bool                    `json:"hasMore"`
	State      string                  `json:"state"`
}

// Orchestrator owns pagination state and the source chain. Only one fetch is
// in flight at a time; Refresh and LoadMore calls arriving while loading are
// rejected rather than queued so pagination offsets cannot race.
type Orchestrator struct {
	primary   Tier
	fallbacks []Tier
	cfg       Config
	sessionID string

	mu         sync.Mutex
	state      State
	records    []transform.Opportunity
	offset     int
	totalKnown int
	hasMore    bool
	advisory   string
	interval   time.Duration
}

// New builds an orchestrator over a primary tier and its ordered fallbacks.
func New(primary Tier, fallbacks []Tier, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		primary:   primary,
		fallbacks: fallbacks,
		cfg:       cfg,
		sessionID: uuid.NewString(),
		state:     Idle,
		interval:  cfg.RefreshInterval,
	}
}

// Snapshot returns the current consumer view.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	records := make([]transform.Opportunity, len(o.records))
	copy(records, o.records)
	return Snapshot{
		Records:    records,
		Loading:    o.state == Loading,
		Advisory:   o.advisory,
		TotalKnown: o.totalKnown,
		HasMore:    o.hasMore,
		State:      o.state.String(),
	}
}

// Interval reports the current adaptive refresh interval.
func (o *Orchestrator) Interval() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.interval
}

// Refresh resets pagination and loads the first page. Returns false when a
// fetch is already in flight; the caller's request is dropped, not queued.
func (o *Orchestrator) Refresh(ctx context.Context) bool {
	o.mu.Lock()
	if o.state == Loading {
		o.mu.Unlock()
		log.Printf("[Aggregate] session=%s refresh skipped, fetch in flight", o.sessionID)
		return false
	}
	o.state = Loading
	o.mu.Unlock()

	res := o.fetch(ctx, 0)
	o.commit(res, false)
	return true
}

// LoadMore appends the next page. No-op while loading or when no more
// records are known to exist.
func (o *Orchestrator) LoadMore(ctx context.Context) bool {
	o.mu.Lock()
	if o.state == Loading || !o.hasMore {
		o.mu.Unlock()
		return false
	}
	nextOffset := o.offset + o.cfg.PageSize
	o.state = Loading
	o.mu.Unlock()

	res := o.fetch(ctx, nextOffset)
	res.offset = nextOffset
	o.commit(res, true)
	return true
}

// Run drives the optional auto-refresh tick. Each tick goes through the same
// Refresh entry point as user-initiated calls, so a tick that lands while a
// fetch is in flight is simply skipped. The interval is re-read every cycle
// because it adapts to upstream health.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(o.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if !o.Refresh(ctx) {
			log.Printf("[Aggregate] session=%s auto-refresh tick skipped", o.sessionID)
		}
	}
}

// fetchResult is the outcome of one tier-chain walk.
type fetchResult struct {
	records   []transform.Opportunity
	total     int
	advisory  string
	offset    int
	primary   bool // served by the primary tier
	malformed bool // contract violation; leave prior results untouched
	sample    bool // served from the bundled sample set
}

// fetch walks the tier chain for one page. Source errors are classified
// here; none of them propagate past this function.
func (o *Orchestrator) fetch(ctx context.Context, offset int) fetchResult {
	q := o.cfg.BaseQuery
	q.Limit = o.cfg.PageSize
	q.Offset = offset

	records, total, err := o.primary.Fetch(ctx, q)
	if err == nil {
		o.setInterval(o.cfg.RefreshInterval)
		return fetchResult{records: records, total: total, primary: true}
	}

	var advisory string
	switch {
	case errors.Is(err, source.ErrMalformed):
		log.Printf("[Aggregate] session=%s primary malformed: %v", o.sessionID, err)
		return fetchResult{malformed: true, advisory: advisoryMalformed}
	case errors.Is(err, source.ErrQuotaExceeded):
		log.Printf("[Aggregate] session=%s primary quota exhausted, widening interval to %s", o.sessionID, o.cfg.QuotaBackoff)
		o.setInterval(o.cfg.QuotaBackoff)
		advisory = advisoryQuota
	default:
		// Transport faults and anything unclassified are treated as
		// transient unreachability.
		log.Printf("[Aggregate] session=%s primary unreachable: %v", o.sessionID, err)
		o.setInterval(o.cfg.UnreachableBackoff)
		advisory = advisoryUnreachable
	}

	for _, tier := range o.fallbacks {
		records, _, err := tier.Fetch(ctx, q)
		if err != nil {
			log.Printf("[Aggregate] session=%s fallback %s failed: %v", o.sessionID, tier.Name(), err)
			continue
		}
		if len(records) == 0 {
			// This tier had nothing useful; try the next one.
			continue
		}
		log.Printf("[Aggregate] session=%s served %d records from fallback %s", o.sessionID, len(records), tier.Name())
		return fetchResult{records: records, advisory: advisory}
	}

	log.Printf("[Aggregate] session=%s all tiers exhausted, serving sample data", o.sessionID)
	return fetchResult{records: SampleRecords(q), advisory: advisorySample, sample: true}
}

// commit folds a fetch result into session state under the lock.
func (o *Orchestrator) commit(res fetchResult, appendPage bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if res.malformed {
		// Prior results and pagination stay as they were.
		o.advisory = res.advisory
		o.state = Degraded
		return
	}

	if appendPage {
		if res.sample {
			// Never append demonstration records to live results.
			o.advisory = res.advisory
			o.hasMore = false
			o.state = Degraded
			return
		}
		o.records = appendUnique(o.records, res.records)
		o.offset = res.offset
	} else {
		o.records = res.records
		o.offset = 0
	}

	o.advisory = res.advisory
	if res.primary {
		o.totalKnown = res.total
		o.hasMore = (o.offset + o.cfg.PageSize) < o.totalKnown
		o.state = Ready
	} else {
		// Fallback and sample tiers report no totals; what we hold is all
		// we know about.
		o.totalKnown = len(o.records)
		o.hasMore = false
		o.state = Degraded
	}
}

func (o *Orchestrator) setInterval(d time.Duration) {
	o.mu.Lock()
	o.interval = d
	o.mu.Unlock()
}

// appendUnique appends records whose IDs are not already present, keeping
// the existing order of the loaded set.
func appendUnique(dst, more []transform.Opportunity) []transform.Opportunity {
	seen := make(map[string]struct{}, len(dst))
	for _, r := range dst {
		seen[r.ID] = struct{}{}
	}
	for _, r := range more {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		dst = append(dst, r)
		seen[r.ID] = struct{}{}
	}
	return dst
}
