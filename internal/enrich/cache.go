package enrich

import (
	"sync"
	"time"

	"github.com/studyloop/studyloop/pkg/provider/imagesearch"
)

// TTLCache is a process-wide mapping from composed query strings to image
// results. Entries expire after a fixed TTL; when the entry count exceeds the
// configured maximum, the oldest entry is evicted on insert.
//
// The TTL is a cost-control heuristic, not a consistency guarantee: serving
// a slightly stale entry is an accepted outcome, so the cache needs nothing
// beyond atomic read-then-write per key.
//
// All methods are safe for concurrent use.
type TTLCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int

	// now is overridable in tests.
	now func() time.Time
}

// cacheEntry pairs cached images with their fetch time.
type cacheEntry struct {
	images    []imagesearch.Image
	fetchedAt time.Time
}

// NewTTLCache creates a cache whose entries expire after ttl and which holds
// at most maxEntries entries. Non-positive arguments fall back to defaults
// (60s, 256 entries).
func NewTTLCache(ttl time.Duration, maxEntries int) *TTLCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &TTLCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached images for query. A missing entry or one whose age
// has reached the TTL is a miss.
func (c *TTLCache) Get(query string) ([]imagesearch.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[query]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		delete(c.entries, query)
		return nil, false
	}
	return e.images, true
}

// Put stores images for query with the current timestamp, evicting the
// oldest entry first when the cache is full.
func (c *TTLCache) Put(query string, images []imagesearch.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[query]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[query] = cacheEntry{images: images, fetchedAt: c.now()}
}

// Len returns the current entry count. Intended for tests.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest removes the entry with the earliest fetch time.
// Must be called with c.mu held.
func (c *TTLCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.fetchedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.fetchedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// DedupSet records composed queries already dispatched within one session.
// A repeated query is a hard skip: the caller already holds the result from
// the first fetch, so nothing is refetched or merged, regardless of TTL
// cache state. Entries never expire within a session.
//
// Safe for concurrent use.
type DedupSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedupSet creates an empty set.
func NewDedupSet() *DedupSet {
	return &DedupSet{seen: make(map[string]struct{})}
}

// TryAdd records query and reports whether it was newly added. A false
// return means the query was already dispatched this session and the caller
// must skip the fetch entirely.
func (d *DedupSet) TryAdd(query string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[query]; ok {
		return false
	}
	d.seen[query] = struct{}{}
	return true
}

// Contains reports whether query has been dispatched. Intended for tests.
func (d *DedupSet) Contains(query string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[query]
	return ok
}
