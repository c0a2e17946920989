package aggregate

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/david/contract-radar/internal/source"
	"github.com/david/contract-radar/internal/transform"
)

// stubTier scripts one tier's behavior per call.
type stubTier struct {
	name    string
	records []transform.Opportunity
	total   int
	err     error
	calls   int
	// pager, when set, overrides the fixed fields per call.
	pager func(q source.Query) ([]transform.Opportunity, int, error)
}

func (s *stubTier) Name() string { return s.name }

func (s *stubTier) Fetch(_ context.Context, q source.Query) ([]transform.Opportunity, int, error) {
	s.calls++
	if s.pager != nil {
		return s.pager(q)
	}
	return s.records, s.total, s.err
}

func opps(ids ...string) []transform.Opportunity {
	out := make([]transform.Opportunity, 0, len(ids))
	for i, id := range ids {
		out = append(out, transform.Opportunity{
			ID:   id,
			Date: fmt.Sprintf("2026-02-%02d", 20-i),
		})
	}
	return out
}

func testConfig() Config {
	return Config{
		PageSize:           3,
		RefreshInterval:    30 * time.Minute,
		QuotaBackoff:       6 * time.Hour,
		UnreachableBackoff: 5 * time.Minute,
	}
}

func TestRefreshPrimarySuccess(t *testing.T) {
	primary := &stubTier{name: "primary", records: opps("a", "b", "c"), total: 10}
	o := New(primary, nil, testConfig())

	if !o.Refresh(context.Background()) {
		t.Fatal("refresh rejected unexpectedly")
	}

	snap := o.Snapshot()
	if len(snap.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(snap.Records))
	}
	if snap.TotalKnown != 10 {
		t.Errorf("expected totalKnown 10, got %d", snap.TotalKnown)
	}
	if !snap.HasMore {
		t.Error("expected hasMore with 10 total and page size 3")
	}
	if snap.Advisory != "" {
		t.Errorf("clean success must clear advisory, got %q", snap.Advisory)
	}
	if snap.State != "ready" {
		t.Errorf("expected ready state, got %s", snap.State)
	}
	if o.Interval() != 30*time.Minute {
		t.Errorf("successful fetch must reset interval, got %s", o.Interval())
	}
}

func TestQuotaExhaustionFallsBack(t *testing.T) {
	primary := &stubTier{name: "primary", err: fmt.Errorf("429: %w", source.ErrQuotaExceeded)}
	fallbackA := &stubTier{name: "fpds", records: opps("f1", "f2", "f3")}
	fallbackB := &stubTier{name: "usaspending", records: opps("u1")}
	o := New(primary, []Tier{fallbackA, fallbackB}, testConfig())

	o.Refresh(context.Background())

	snap := o.Snapshot()
	if len(snap.Records) != 3 || snap.Records[0].ID != "f1" {
		t.Fatalf("expected fallback A's 3 records, got %+v", snap.Records)
	}
	if snap.HasMore {
		t.Error("fallbacks report no total, hasMore must be false")
	}
	if snap.TotalKnown != 3 {
		t.Errorf("totalKnown should match served records, got %d", snap.TotalKnown)
	}
	if !strings.Contains(snap.Advisory, "quota") {
		t.Errorf("advisory should mention reduced freshness, got %q", snap.Advisory)
	}
	if snap.State != "degraded" {
		t.Errorf("expected degraded state, got %s", snap.State)
	}
	if o.Interval() != 6*time.Hour {
		t.Errorf("quota exhaustion must widen the interval, got %s", o.Interval())
	}
	if fallbackB.calls != 0 {
		t.Error("fallback B must not be consulted when A delivered")
	}
}

func TestEmptyFallbackAdvancesToNextTier(t *testing.T) {
	primary := &stubTier{name: "primary", err: source.ErrUnreachable}
	fallbackA := &stubTier{name: "fpds"} // empty, not an error
	fallbackB := &stubTier{name: "usaspending", records: opps("u1", "u2")}
	o := New(primary, []Tier{fallbackA, fallbackB}, testConfig())

	o.Refresh(context.Background())

	snap := o.Snapshot()
	if len(snap.Records) != 2 || snap.Records[0].ID != "u1" {
		t.Fatalf("expected tier B records, got %+v", snap.Records)
	}
	if fallbackA.calls != 1 {
		t.Error("tier A should have been tried first")
	}
	if o.Interval() != 5*time.Minute {
		t.Errorf("unreachable should shorten the interval modestly, got %s", o.Interval())
	}
}

func TestTotalExhaustionServesSample(t *testing.T) {
	primary := &stubTier{name: "primary", err: source.ErrQuotaExceeded}
	fallbackA := &stubTier{name: "fpds"}
	fallbackB := &stubTier{name: "usaspending", err: source.ErrUnreachable}
	o := New(primary, []Tier{fallbackA, fallbackB}, testConfig())

	o.Refresh(context.Background())

	snap := o.Snapshot()
	if len(snap.Records) == 0 {
		t.Fatal("consumer must never be left with zero records")
	}
	if !strings.Contains(snap.Advisory, "demonstration") {
		t.Errorf("expected demonstration-data advisory, got %q", snap.Advisory)
	}
	if snap.HasMore {
		t.Error("sample data has no continuation")
	}
	for _, r := range snap.Records {
		if !strings.HasPrefix(r.ID, "sample-") {
			t.Errorf("unexpected record %s in sample serving", r.ID)
		}
	}
}

func TestSampleFilteredByState(t *testing.T) {
	primary := &stubTier{name: "primary", err: source.ErrUnreachable}
	cfg := testConfig()
	cfg.PageSize = 10
	cfg.BaseQuery = source.Query{State: "VA"}
	o := New(primary, nil, cfg)

	o.Refresh(context.Background())

	snap := o.Snapshot()
	if len(snap.Records) == 0 {
		t.Fatal("expected filtered sample records")
	}
	for _, r := range snap.Records {
		if r.State != "VA" {
			t.Errorf("sample record %s has state %s, want VA", r.ID, r.State)
		}
	}
}

func TestMalformedLeavesResultsUntouched(t *testing.T) {
	primary := &stubTier{name: "primary", records: opps("a", "b", "c"), total: 3}
	fallbackA := &stubTier{name: "fpds", records: opps("f1")}
	o := New(primary, []Tier{fallbackA}, testConfig())

	o.Refresh(context.Background())

	// Second refresh: upstream violates its contract.
	primary.records = nil
	primary.err = source.ErrMalformed
	o.Refresh(context.Background())

	snap := o.Snapshot()
	if len(snap.Records) != 3 || snap.Records[0].ID != "a" {
		t.Fatalf("malformed response must leave prior results intact, got %+v", snap.Records)
	}
	if fallbackA.calls != 0 {
		t.Error("fallbacks must not run on a malformed response")
	}
	if snap.Advisory == "" {
		t.Error("malformed response must surface an advisory")
	}
	if snap.State != "degraded" {
		t.Errorf("expected degraded state, got %s", snap.State)
	}
}

func TestPagination(t *testing.T) {
	pages := map[int][]transform.Opportunity{
		0: opps("a", "b", "c"),
		3: opps("d", "e", "f"),
		6: opps("g"),
	}
	primary := &stubTier{name: "primary"}
	primary.pager = func(q source.Query) ([]transform.Opportunity, int, error) {
		return pages[q.Offset], 7, nil
	}
	o := New(primary, nil, testConfig())
	ctx := context.Background()

	o.Refresh(ctx)
	if snap := o.Snapshot(); !snap.HasMore || len(snap.Records) != 3 {
		t.Fatalf("after refresh: records=%d hasMore=%v", len(snap.Records), snap.HasMore)
	}

	if !o.LoadMore(ctx) {
		t.Fatal("loadMore rejected unexpectedly")
	}
	snap := o.Snapshot()
	if len(snap.Records) != 6 {
		t.Fatalf("expected 6 records after loadMore, got %d", len(snap.Records))
	}
	wantOrder := []string{"a", "b", "c", "d", "e", "f"}
	for i, want := range wantOrder {
		if snap.Records[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, snap.Records[i].ID)
		}
	}
	if !snap.HasMore {
		t.Fatal("6 of 7 loaded, expected hasMore")
	}

	o.LoadMore(ctx)
	snap = o.Snapshot()
	if len(snap.Records) != 7 {
		t.Fatalf("expected 7 records, got %d", len(snap.Records))
	}
	if snap.HasMore {
		t.Error("all records loaded, hasMore must be false")
	}

	// Exhausted: further loadMore calls are no-ops.
	if o.LoadMore(ctx) {
		t.Error("loadMore past the end must be rejected")
	}
	if primary.calls != 3 {
		t.Errorf("expected exactly 3 fetches, got %d", primary.calls)
	}
}

func TestLoadMoreDeduplicatesOverlap(t *testing.T) {
	primary := &stubTier{name: "primary"}
	primary.pager = func(q source.Query) ([]transform.Opportunity, int, error) {
		if q.Offset == 0 {
			return opps("a", "b", "c"), 6, nil
		}
		// Upstream shifted under us and re-served a record.
		return opps("c", "d", "e"), 6, nil
	}
	o := New(primary, nil, testConfig())
	ctx := context.Background()

	o.Refresh(ctx)
	o.LoadMore(ctx)

	snap := o.Snapshot()
	if len(snap.Records) != 5 {
		t.Fatalf("expected 5 unique records, got %d", len(snap.Records))
	}
	seen := map[string]bool{}
	for _, r := range snap.Records {
		if seen[r.ID] {
			t.Fatalf("duplicate record %s", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestRefreshRejectedWhileLoading(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	primary := &stubTier{name: "primary"}
	primary.pager = func(q source.Query) ([]transform.Opportunity, int, error) {
		close(started)
		<-release
		return opps("a"), 1, nil
	}
	o := New(primary, nil, testConfig())

	done := make(chan bool)
	go func() { done <- o.Refresh(context.Background()) }()
	<-started

	if o.Refresh(context.Background()) {
		t.Error("second refresh while loading must be rejected")
	}
	if o.LoadMore(context.Background()) {
		t.Error("loadMore while loading must be rejected")
	}
	if snap := o.Snapshot(); !snap.Loading {
		t.Error("snapshot should report loading during an in-flight fetch")
	}

	close(release)
	if !<-done {
		t.Error("original refresh should have completed")
	}
}

func TestSuccessAfterDegradationResetsInterval(t *testing.T) {
	primary := &stubTier{name: "primary", err: source.ErrQuotaExceeded}
	o := New(primary, nil, testConfig())

	o.Refresh(context.Background())
	if o.Interval() != 6*time.Hour {
		t.Fatalf("expected widened interval, got %s", o.Interval())
	}

	primary.err = nil
	primary.records = opps("a")
	primary.total = 1
	o.Refresh(context.Background())

	if o.Interval() != 30*time.Minute {
		t.Errorf("clean success must reset the interval, got %s", o.Interval())
	}
	if snap := o.Snapshot(); snap.Advisory != "" {
		t.Errorf("advisory should clear on success, got %q", snap.Advisory)
	}
}
