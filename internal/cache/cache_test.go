package cache

import (
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	c := New(time.Minute, 0)

	c.Put("k", "value", time.Minute)
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit immediately after put")
	}
	if got != "value" {
		t.Fatalf("expected %q, got %v", "value", got)
	}
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute, 0)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("k", 42, 10*time.Second)

	now = now.Add(9 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before ttl elapsed")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after ttl elapsed")
	}
	if c.Len() != 0 {
		t.Errorf("stale entry not evicted on lookup, len=%d", c.Len())
	}
}

func TestDefaultTTL(t *testing.T) {
	c := New(30*time.Second, 0)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("k", "v", 0)

	now = now.Add(29 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit within default ttl")
	}
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss past default ttl")
	}
}

func TestClear(t *testing.T) {
	c := New(time.Minute, 0)
	c.Put("a", 1, time.Minute)
	c.Put("b", 2, time.Minute)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, len=%d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after clear")
	}
}

func TestKeyDeterministic(t *testing.T) {
	type q struct {
		State string
		Limit int
	}
	a := Key("search", q{State: "VA", Limit: 10})
	b := Key("search", q{State: "VA", Limit: 10})
	if a != b {
		t.Fatal("identical parameters should produce identical keys")
	}
	if c := Key("search", q{State: "MD", Limit: 10}); c == a {
		t.Fatal("different parameters should produce different keys")
	}
	if d := Key("awards", q{State: "VA", Limit: 10}); d == a {
		t.Fatal("different endpoints should produce different keys")
	}
}

func TestSizeCapEvictsOldest(t *testing.T) {
	c := New(time.Minute, 2)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("a", 1, time.Minute)
	now = now.Add(time.Second)
	c.Put("b", 2, time.Minute)
	now = now.Add(time.Second)
	c.Put("c", 3, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("newest entry should survive")
	}
}
