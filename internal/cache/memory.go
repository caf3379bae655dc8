// Package cache provides a bounded, expiring, in-process key-value store
// used to shave database round-trips off the urge read and limit-check
// paths. It is a performance layer only: entries may vanish at any time
// (TTL expiry, capacity eviction, explicit invalidation) and the database
// remains the sole source of truth.
//
// Design notes:
//   - Expiry is enforced lazily on every Get/Has; the background sweeper
//     started by StartSweeper only reclaims memory earlier and is not
//     required for correctness.
//   - When the store exceeds its configured capacity, the entry with the
//     oldest last-access time is evicted, so the bound holds after every
//     Set.
//   - All operations are total: there are no reachable error states.
//
// The zero value is not usable; construct instances with New.
package cache

import (
	"sync"
	"time"
)

// entry is the internal envelope around a stored value. Access metadata is
// tracked to drive least-recently-accessed eviction and the Stats report.
type entry[V any] struct {
	value        V
	expiresAt    time.Time
	createdAt    time.Time
	accessCount  int64
	lastAccessed time.Time
}

// Stats is a point-in-time snapshot of cache effectiveness and footprint.
//
// HitRate and MissRate are percentages in [0,100] and are both zero before
// the first lookup. EstimatedMemory is a rough byte estimate (key bytes plus
// fixed per-entry overhead); it exists for health reporting, not accounting.
type Stats struct {
	Items           int           `json:"totalItems"`
	TotalHits       int64         `json:"totalHits"`
	TotalMisses     int64         `json:"totalMisses"`
	HitRate         float64       `json:"hitRate"`
	MissRate        float64       `json:"missRate"`
	EstimatedMemory int64         `json:"memoryUsage"`
	OldestEntryAge  time.Duration `json:"oldestEntryAge"`
	NewestEntryAge  time.Duration `json:"newestEntryAge"`
}

// Cache is a concurrency-safe, TTL-expiring map with a capacity bound.
//
// A single mutex guards the map; operations are short and in-process, so
// contention is negligible next to the database round-trips the cache
// avoids. Values are typed per instance, which keeps call sites free of
// assertions (the limit, count, and stats caches each carry their own V).
type Cache[V any] struct {
	mu         sync.Mutex
	items      map[string]*entry[V]
	hits       int64
	misses     int64
	maxItems   int
	defaultTTL time.Duration

	sweepStop    chan struct{}
	sweepOnce    sync.Once
	sweepRunning bool
}

// perEntryOverhead approximates the bookkeeping bytes per stored entry for
// the EstimatedMemory stat.
const perEntryOverhead = 96

// New constructs a Cache bounded to maxItems entries whose Set calls fall
// back to defaultTTL when no explicit TTL is given. maxItems <= 0 is coerced
// to 1 and a non-positive defaultTTL to one minute.
func New[V any](maxItems int, defaultTTL time.Duration) *Cache[V] {
	if maxItems <= 0 {
		maxItems = 1
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	return &Cache[V]{
		items:      make(map[string]*entry[V]),
		maxItems:   maxItems,
		defaultTTL: defaultTTL,
		sweepStop:  make(chan struct{}),
	}
}

// Set stores value under key with expiry now+ttl; a zero or negative ttl
// selects the cache's default TTL. Setting an existing key overwrites the
// entry and resets its metadata. If the insert pushes the cache past its
// capacity, the least-recently-accessed entry is evicted before returning,
// so the bound always holds when Set completes.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &entry[V]{
		value:        value,
		expiresAt:    now.Add(ttl),
		createdAt:    now,
		lastAccessed: now,
	}
	if len(c.items) > c.maxItems {
		c.evictOldestLocked()
	}
}

// Get returns the value stored under key. The second return is false when
// the key is absent or its entry has expired; expired entries are removed
// on the spot. Hits refresh the entry's access metadata and both outcomes
// feed the hit/miss counters.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if now.After(e.expiresAt) {
		delete(c.items, key)
		c.misses++
		return zero, false
	}

	e.accessCount++
	e.lastAccessed = now
	c.hits++
	return e.value, true
}

// Has reports whether key is present and unexpired. Unlike Get it does not
// count toward the hit/miss statistics and does not refresh access metadata,
// so probing for existence never perturbs eviction order.
func (c *Cache[V]) Has(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	if now.After(e.expiresAt) {
		delete(c.items, key)
		return false
	}
	return true
}

// Delete removes key if present. Deleting an absent key is a no-op.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes every entry and resets the hit/miss counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry[V])
	c.hits = 0
	c.misses = 0
}

// Keys returns a snapshot of the currently stored keys, expired or not.
// Order is unspecified.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of physically stored entries, including entries
// that have expired but not yet been swept or touched.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the cache counters and entry-age spread.
func (c *Cache[V]) Stats() Stats {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Items:       len(c.items),
		TotalHits:   c.hits,
		TotalMisses: c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total) * 100
		s.MissRate = float64(c.misses) / float64(total) * 100
	}

	var oldest, newest time.Time
	for k, e := range c.items {
		s.EstimatedMemory += int64(len(k)) + perEntryOverhead
		if oldest.IsZero() || e.createdAt.Before(oldest) {
			oldest = e.createdAt
		}
		if newest.IsZero() || e.createdAt.After(newest) {
			newest = e.createdAt
		}
	}
	if !oldest.IsZero() {
		s.OldestEntryAge = now.Sub(oldest)
		s.NewestEntryAge = now.Sub(newest)
	}
	return s
}

// StartSweeper launches a background goroutine that purges expired entries
// every interval. It is an optimization only; Get and Has enforce expiry on
// their own. At most one sweeper runs per cache: repeated calls are no-ops.
// Stop shuts the sweeper down.
func (c *Cache[V]) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	c.mu.Lock()
	if c.sweepRunning {
		c.mu.Unlock()
		return
	}
	c.sweepRunning = true
	c.mu.Unlock()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				c.sweep()
			case <-c.sweepStop:
				return
			}
		}
	}()
}

// Stop terminates the background sweeper, if one was started. Safe to call
// multiple times and safe to call when no sweeper is running.
func (c *Cache[V]) Stop() {
	c.sweepOnce.Do(func() { close(c.sweepStop) })
}

// sweep removes every expired entry.
func (c *Cache[V]) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
}

// evictOldestLocked drops the entry with the oldest lastAccessed timestamp.
// Caller must hold c.mu.
func (c *Cache[V]) evictOldestLocked() {
	var victim string
	var victimSeen time.Time
	for k, e := range c.items {
		if victim == "" || e.lastAccessed.Before(victimSeen) {
			victim = k
			victimSeen = e.lastAccessed
		}
	}
	if victim != "" {
		delete(c.items, victim)
	}
}
