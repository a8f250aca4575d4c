// Package multimap implements a sharded, concurrency-safe multimap where
// each key maps to a set of values sharing a single expiration timestamp.
//
// This container is implemented directly rather than composed from nested
// generic maps or a third-party concurrent-map library: the TTL is a
// property of the whole (key -> set-of-values) category, not of any
// individual value, so a generic sync.Map-of-sets would still need this
// same category wrapper built by hand. A single recent read or write
// refreshes the expiry for every value under that key — this is
// deliberate (see UpdateExpiration) and mirrors the source system this
// package is modeled on: fine-grained per-value TTL was considered and
// rejected as unnecessary complexity for an access-grant cache where grants
// are coarse-grained by nature.
package multimap

import (
	"hash/maphash"
	"sync"
	"time"
)

const shardCount = 32

// Map is a concurrent multimap from K to sets of V, with a category-level
// expiration time. Zero value is not usable; construct with New.
type Map[K comparable, V comparable] struct {
	seed   maphash.Seed
	shards [shardCount]*shard[K, V]
	hash   func(K) uint64
}

type category[V comparable] struct {
	values   map[V]struct{}
	expireAt time.Time
}

type shard[K comparable, V comparable] struct {
	mu   sync.Mutex
	data map[K]*category[V]
}

// New constructs an empty multimap. hash must return a stable hash for a
// key; callers typically pass a closure over maphash for string keys, or
// any deterministic hash function appropriate to K.
func New[K comparable, V comparable](hash func(K) uint64) *Map[K, V] {
	m := &Map[K, V]{hash: hash}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{data: make(map[K]*category[V])}
	}
	return m
}

// NewString constructs a multimap keyed by plain strings, using a
// randomized per-process seed for its hash (so pathological key sets from
// an adversarial caller cannot concentrate load on one shard).
func NewString[V comparable]() *Map[string, V] {
	seed := maphash.MakeSeed()
	return New[string, V](func(k string) uint64 {
		return maphash.String(seed, k)
	})
}

func (m *Map[K, V]) shardFor(k K) *shard[K, V] {
	return m.shards[m.hash(k)%shardCount]
}

// Insert adds (k,v), creating the category with a fresh expiry if it did
// not exist. Returns true if v was newly inserted (i.e. not already
// present under k).
func (m *Map[K, V]) Insert(k K, v V, ttl time.Duration) bool {
	sh := m.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cat, ok := sh.data[k]
	if !ok {
		cat = &category[V]{values: make(map[V]struct{}), expireAt: time.Now().Add(ttl)}
		sh.data[k] = cat
	}
	_, existed := cat.values[v]
	cat.values[v] = struct{}{}
	return !existed
}

// InsertOrAssign ensures v is present under k, replacing any equal value
// and refreshing the category's expiry. Returns true if newly inserted.
func (m *Map[K, V]) InsertOrAssign(k K, v V, ttl time.Duration) bool {
	sh := m.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cat, ok := sh.data[k]
	if !ok {
		cat = &category[V]{values: make(map[V]struct{})}
		sh.data[k] = cat
	}
	_, existed := cat.values[v]
	cat.values[v] = struct{}{}
	cat.expireAt = time.Now().Add(ttl)
	return !existed
}

// Erase removes k and every value under it. Returns the number of values
// removed.
func (m *Map[K, V]) Erase(k K) int {
	sh := m.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cat, ok := sh.data[k]
	if !ok {
		return 0
	}
	n := len(cat.values)
	delete(sh.data, k)
	return n
}

// EraseValue removes a single (k,v) pair. If it was the last value under k,
// the key itself is removed. Returns 1 if removed, 0 otherwise.
func (m *Map[K, V]) EraseValue(k K, v V) int {
	sh := m.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cat, ok := sh.data[k]
	if !ok {
		return 0
	}
	if _, present := cat.values[v]; !present {
		return 0
	}
	delete(cat.values, v)
	if len(cat.values) == 0 {
		delete(sh.data, k)
	}
	return 1
}

// Find returns the live (non-expired) set of values under k, or nil if k is
// absent or expired.
func (m *Map[K, V]) Find(k K) []V {
	sh := m.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cat, ok := sh.data[k]
	if !ok || m.expired(cat) {
		return nil
	}
	out := make([]V, 0, len(cat.values))
	for v := range cat.values {
		out = append(out, v)
	}
	return out
}

// Contains reports whether k maps to any live value.
func (m *Map[K, V]) Contains(k K) bool {
	sh := m.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cat, ok := sh.data[k]
	return ok && !m.expired(cat) && len(cat.values) > 0
}

// ContainsValue reports whether (k,v) is present and live.
func (m *Map[K, V]) ContainsValue(k K, v V) bool {
	sh := m.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cat, ok := sh.data[k]
	if !ok || m.expired(cat) {
		return false
	}
	_, present := cat.values[v]
	return present
}

// Count returns the number of live values under k.
func (m *Map[K, V]) Count(k K) int {
	sh := m.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cat, ok := sh.data[k]
	if !ok || m.expired(cat) {
		return 0
	}
	return len(cat.values)
}

// CountValue returns 1 if (k,v) is present and live, 0 otherwise.
func (m *Map[K, V]) CountValue(k K, v V) int {
	if m.ContainsValue(k, v) {
		return 1
	}
	return 0
}

// UpdateExpiration sets the category's shared expiry to now+ttl. Returns
// false if k is not present or its category has already expired (nothing
// live to refresh); an expired category is dropped so a later insert starts
// it afresh.
func (m *Map[K, V]) UpdateExpiration(k K, ttl time.Duration) bool {
	sh := m.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cat, ok := sh.data[k]
	if !ok {
		return false
	}
	if m.expired(cat) {
		delete(sh.data, k)
		return false
	}
	cat.expireAt = time.Now().Add(ttl)
	return true
}

func (m *Map[K, V]) expired(cat *category[V]) bool {
	return cat.expireAt.IsZero() == false && time.Now().After(cat.expireAt)
}
