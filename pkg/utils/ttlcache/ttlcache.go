// Package ttlcache provides a keyed store whose entries expire individually.
//
// An entry put with ttl T is visible to reads at now < putAt+T and never
// visible at or after that instant. Expired entries are dropped lazily on
// access, every sweepEvery writes, and by explicit Sweep calls.
package ttlcache

import (
	"sync"
	"time"
)

const sweepEvery = 256

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

type config struct {
	clock func() time.Time
}

// Option configures a Cache
type Option func(*config)

// WithClock replaces time.Now. The clock must be monotonic for TTL guarantees to hold.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// Cache is safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	clock   func() time.Time
	writes  uint64
}

// New creates an empty cache
func New[K comparable, V any](opts ...Option) *Cache[K, V] {
	cfg := config{clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Cache[K, V]{
		entries: make(map[K]entry[V]),
		clock:   cfg.clock,
	}
}

// Put stores value under key for ttl, replacing any previous entry.
// A non-positive ttl removes the key.
func (c *Cache[K, V]) Put(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if ttl <= 0 {
		delete(c.entries, key)
		return
	}
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
	c.afterWrite(now)
}

// PutIfAbsent stores value only when key has no live entry. It returns true
// when the value was stored; otherwise it returns the remaining lifetime of
// the existing entry.
func (c *Cache[K, V]) PutIfAbsent(key K, value V, ttl time.Duration) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if e, ok := c.entries[key]; ok {
		if !e.expired(now) {
			return false, e.expiresAt.Sub(now)
		}
		delete(c.entries, key)
	}
	if ttl <= 0 {
		return true, 0
	}

	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
	c.afterWrite(now)
	return true, 0
}

// Get returns the live value for key
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key, c.clock())
	return e.value, ok
}

// Contains reports whether key has a live entry
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup(key, c.clock())
	return ok
}

// Remaining returns how long the entry for key stays alive
func (c *Cache[K, V]) Remaining(key K) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	e, ok := c.lookup(key, now)
	if !ok {
		return 0, false
	}
	return e.expiresAt.Sub(now), true
}

// Delete removes key
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Sweep drops every expired entry and returns how many were removed.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep(c.clock())
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[K, V]) lookup(key K, now time.Time) (entry[V], bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry[V]{}, false
	}
	if e.expired(now) {
		delete(c.entries, key)
		return entry[V]{}, false
	}
	return e, true
}

func (c *Cache[K, V]) afterWrite(now time.Time) {
	c.writes++
	if c.writes%sweepEvery == 0 {
		c.sweep(now)
	}
}

func (c *Cache[K, V]) sweep(now time.Time) int {
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}
