package cache

import (
	"testing"
	"time"
)

func newTestCache(ttl time.Duration) *Cache[string, int] {
	return New[string, int](ttl)
}

func TestCache_MetadataRoundTrip(t *testing.T) {
	c := newTestCache(time.Hour)

	c.SetMetadata("lodash", "meta-lodash")

	got, ok := c.GetMetadata("lodash")
	if !ok {
		t.Fatal("GetMetadata() missed immediately after SetMetadata()")
	}
	if got != "meta-lodash" {
		t.Errorf("GetMetadata() = %q, want %q", got, "meta-lodash")
	}
}

func TestCache_TreeRoundTrip(t *testing.T) {
	c := newTestCache(time.Hour)

	c.SetTree("lodash@4.17.21", 42)

	got, ok := c.GetTree("lodash@4.17.21")
	if !ok || got != 42 {
		t.Errorf("GetTree() = %d, %v; want 42, true", got, ok)
	}
}

func TestCache_Expiry(t *testing.T) {
	c := newTestCache(time.Hour)

	c.SetMetadata("express", "meta", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.GetMetadata("express"); ok {
		t.Fatal("expired entry should be a miss")
	}

	// The expired entry must also be physically removed by the lookup.
	if n := c.Stats().MetadataEntries; n != 0 {
		t.Errorf("MetadataEntries = %d after expired lookup, want 0", n)
	}
}

func TestCache_Stats(t *testing.T) {
	c := newTestCache(time.Hour)

	if got := c.Stats().HitRate; got != 0 {
		t.Errorf("HitRate with no lookups = %v, want 0", got)
	}

	c.SetMetadata("a", "x")
	c.GetMetadata("a")       // hit
	c.GetMetadata("missing") // miss
	c.GetTree("missing")     // miss

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 2 {
		t.Errorf("Hits/Misses = %d/%d, want 1/2", s.Hits, s.Misses)
	}
	want := 1.0 / 3.0
	if diff := s.HitRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("HitRate = %v, want %v", s.HitRate, want)
	}
	if s.MetadataEntries != 1 {
		t.Errorf("MetadataEntries = %d, want 1", s.MetadataEntries)
	}
}

func TestCache_Disabled(t *testing.T) {
	c := newTestCache(time.Hour)
	c.SetMetadata("a", "x")

	c.SetEnabled(false)

	if _, ok := c.GetMetadata("a"); ok {
		t.Error("disabled cache should miss on existing entries")
	}
	c.SetMetadata("b", "y") // silent no-op

	c.SetEnabled(true)

	if _, ok := c.GetMetadata("a"); !ok {
		t.Error("re-enabled cache should see entries stored before disabling")
	}
	if _, ok := c.GetMetadata("b"); ok {
		t.Error("sets while disabled must not be stored")
	}
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(time.Hour)
	c.SetMetadata("a", "x")
	c.SetTree("a@1.0.0", 1)
	c.GetMetadata("a")

	c.Clear()

	s := c.Stats()
	if s.MetadataEntries != 0 || s.TreeEntries != 0 {
		t.Error("Clear() should drop all entries")
	}
	if s.Hits != 0 || s.Misses != 0 {
		t.Error("Clear() should reset counters")
	}
}

func TestCache_CleanupExpired(t *testing.T) {
	c := newTestCache(time.Hour)
	c.SetMetadata("fresh", "x")
	c.SetMetadata("stale", "y", time.Nanosecond)
	c.SetTree("stale@1.0.0", 1, time.Nanosecond)
	time.Sleep(time.Millisecond)

	removed := c.CleanupExpired()
	if removed != 2 {
		t.Errorf("CleanupExpired() = %d, want 2", removed)
	}

	s := c.Stats()
	if s.MetadataEntries != 1 || s.TreeEntries != 0 {
		t.Errorf("entries after cleanup = %d/%d, want 1/0", s.MetadataEntries, s.TreeEntries)
	}
}

func TestCache_DefaultTTLFallback(t *testing.T) {
	c := newTestCache(0)
	if c.defaultTTL != DefaultTTL {
		t.Errorf("defaultTTL = %v, want %v", c.defaultTTL, DefaultTTL)
	}
}
