package store

import (
	"sync"
	"time"

	"github.com/slateci/slate-federation/internal/pkg/metrics"
)

// entityCache is the by-ID/by-name cache tier (SPEC_FULL.md §4.3 tiers 1-2):
// a single mutex-guarded map of expiring, value-typed snapshots. Grounded on
// original_source/include/PersistentStore.h's CacheRecord<RecordType>
// (construct with a validity duration, expired() checked against a
// steady-clock-equivalent, i.e. time.Time here).
//
// One mutex per cache is deliberately simpler than the relation multimap's
// sharding: entity caches are read far more than written and the struct
// being cached is usually copied in whole, so shard contention has not been
// a problem in the reference deployment at this scale.
type entityCache[T any] struct {
	mu   sync.Mutex
	data map[string]cacheRecord[T]
	ttl  time.Duration
	tier string
}

type cacheRecord[T any] struct {
	value    T
	expireAt time.Time
}

// newEntityCache constructs a cache tier. tier labels CacheHitsTotal/
// CacheMissesTotal (e.g. "user_by_id", "group_by_name").
func newEntityCache[T any](ttl time.Duration, tier string) *entityCache[T] {
	return &entityCache[T]{data: make(map[string]cacheRecord[T]), ttl: ttl, tier: tier}
}

// Get returns the cached value and true if present and unexpired.
func (c *entityCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.data[key]
	if !ok || time.Now().After(rec.expireAt) {
		metrics.CacheMissesTotal.WithLabelValues(c.tier).Inc()
		var zero T
		return zero, false
	}
	metrics.CacheHitsTotal.WithLabelValues(c.tier).Inc()
	return rec.value, true
}

// Set stores value under key with the cache's configured TTL.
func (c *entityCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheRecord[T]{value: value, expireAt: time.Now().Add(c.ttl)}
}

// Invalidate removes key unconditionally, used after a confirmed write so a
// subsequent reader is forced to consult the database.
func (c *entityCache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}
