// Package cache provides the process-scoped metadata cache for scans.
//
// The [Cache] stores registry metadata lookups and previously built
// dependency subtrees with per-entry time-based expiry. It is the only
// mutable state shared across a whole scan (and across repeated scans
// within a process), so repeated scans of overlapping dependency graphs
// avoid redundant network calls.
//
// A lookup that finds an expired entry deletes it and counts as a miss;
// expired entries are logically absent regardless of physical presence.
//
// The cache is constructed explicitly and injected into the tree builder
// and analyzers rather than held in a package-level global, so tests can
// run isolated concurrent scans with independent caches.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/depvet/pkg/observability"
)

// DefaultTTL is the fallback time-to-live for entries stored without an
// explicit TTL.
const DefaultTTL = time.Hour

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits            int64   `json:"hits"`
	Misses          int64   `json:"misses"`
	HitRate         float64 `json:"hit_rate"` // hits / (hits + misses), 0 when no lookups
	MetadataEntries int     `json:"metadata_entries"`
	TreeEntries     int     `json:"tree_entries"`
}

// entry wraps a payload with its capture time and TTL.
// An entry is valid iff time.Since(storedAt) <= ttl.
type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

func (e entry[V]) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Cache is a time-expiring store for registry metadata (keyed by package
// name) and built subtrees (keyed by an opaque string, typically
// "name@version").
//
// M is the metadata payload type and T the tree payload type; the deps
// package instantiates this as Cache[*deps.PackageMetadata, *deps.Node].
//
// All methods are safe for concurrent use. Each lookup or update is a
// single atomic map operation with no cross-entry invariants. There is no
// eviction beyond TTL expiry and explicit [Cache.Clear]; growth within a
// scan is bounded by the dependency graph itself.
type Cache[M, T any] struct {
	mu         sync.Mutex
	enabled    bool
	defaultTTL time.Duration

	metadata map[string]entry[M]
	trees    map[string]entry[T]

	hits   int64
	misses int64
}

// New creates an enabled Cache with the given default TTL.
// A non-positive ttl falls back to [DefaultTTL].
func New[M, T any](ttl time.Duration) *Cache[M, T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[M, T]{
		enabled:    true,
		defaultTTL: ttl,
		metadata:   make(map[string]entry[M]),
		trees:      make(map[string]entry[T]),
	}
}

// SetEnabled toggles the cache at runtime. While disabled, every get
// reports a miss and every set is a silent no-op. Existing entries are
// kept and become visible again when re-enabled.
func (c *Cache[M, T]) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Enabled reports whether the cache is currently active.
func (c *Cache[M, T]) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// GetMetadata returns the cached metadata for a package name.
// Expired entries are removed and reported as misses.
func (c *Cache[M, T]) GetMetadata(name string) (M, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero M
	if !c.enabled {
		return zero, false
	}

	e, ok := c.metadata[name]
	if !ok {
		c.miss("metadata")
		return zero, false
	}
	if e.expired(time.Now()) {
		delete(c.metadata, name)
		c.miss("metadata")
		return zero, false
	}
	c.hit("metadata")
	return e.value, true
}

// SetMetadata stores metadata for a package name. An optional TTL overrides
// the cache default for this entry.
func (c *Cache[M, T]) SetMetadata(name string, m M, ttl ...time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	c.metadata[name] = entry[M]{value: m, storedAt: time.Now(), ttl: c.entryTTL(ttl)}
	observability.Cache().OnCacheSet(context.Background(), "metadata", len(c.metadata))
}

// GetTree returns a cached subtree for an opaque key ("name@version").
// Expired entries are removed and reported as misses.
func (c *Cache[M, T]) GetTree(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if !c.enabled {
		return zero, false
	}

	e, ok := c.trees[key]
	if !ok {
		c.miss("tree")
		return zero, false
	}
	if e.expired(time.Now()) {
		delete(c.trees, key)
		c.miss("tree")
		return zero, false
	}
	c.hit("tree")
	return e.value, true
}

// SetTree stores a built subtree under an opaque key. An optional TTL
// overrides the cache default for this entry.
func (c *Cache[M, T]) SetTree(key string, t T, ttl ...time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	c.trees[key] = entry[T]{value: t, storedAt: time.Now(), ttl: c.entryTTL(ttl)}
	observability.Cache().OnCacheSet(context.Background(), "tree", len(c.trees))
}

// Clear drops all entries and resets the hit/miss counters.
func (c *Cache[M, T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metadata = make(map[string]entry[M])
	c.trees = make(map[string]entry[T])
	c.hits = 0
	c.misses = 0
}

// CleanupExpired removes all expired entries and returns how many were
// dropped. Expired entries are already invisible to gets; cleanup only
// reclaims memory between scans.
func (c *Cache[M, T]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for k, e := range c.metadata {
		if e.expired(now) {
			delete(c.metadata, k)
			removed++
		}
	}
	for k, e := range c.trees {
		if e.expired(now) {
			delete(c.trees, k)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[M, T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:            c.hits,
		Misses:          c.misses,
		MetadataEntries: len(c.metadata),
		TreeEntries:     len(c.trees),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func (c *Cache[M, T]) entryTTL(override []time.Duration) time.Duration {
	if len(override) > 0 && override[0] > 0 {
		return override[0]
	}
	return c.defaultTTL
}

func (c *Cache[M, T]) hit(keyType string) {
	c.hits++
	observability.Cache().OnCacheHit(context.Background(), keyType)
}

func (c *Cache[M, T]) miss(keyType string) {
	c.misses++
	observability.Cache().OnCacheMiss(context.Background(), keyType)
}
