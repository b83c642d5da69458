// Package cache provides a read-through cache with time-based expiry for
// catalog snapshots. The filter and scoring core never manages invalidation
// itself; it always operates on whatever snapshot it is handed, so staleness
// policy lives entirely here: entries are keyed by query shape and reloaded
// once their TTL has passed or after an explicit invalidation (for example
// when the importer finishes a run).
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/unisport/kursfinder/pkg/metrics"
)

// defaultTTL keeps snapshots for five minutes, matching the upstream
// catalog's refresh cadence.
const defaultTTL = 5 * time.Minute

// Clock abstracts time for tests.
type Clock func() time.Time

// Cache is a string-keyed read-through cache holding values of type V.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     Clock
	name    string
}

type entry[V any] struct {
	value    V
	loadedAt time.Time
}

// New creates a cache with configuration options.
func New[V any](opts ...Option) *Cache[V] {
	cfg := config{
		ttl:  defaultTTL,
		now:  time.Now,
		name: "cache",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     cfg.ttl,
		now:     cfg.now,
		name:    cfg.name,
	}
}

// Get returns the cached value for key, loading it through load when the
// entry is missing or expired. Concurrent loads for the same cache serialize;
// snapshot loads are rare enough that simplicity wins over per-key flight
// tracking.
func (c *Cache[V]) Get(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	fresh := ok && c.ttl > 0 && c.now().Sub(e.loadedAt) < c.ttl
	c.mu.RUnlock()

	if fresh {
		metrics.RecordCacheHit(c.name)
		return e.value, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if e, ok := c.entries[key]; ok && c.ttl > 0 && c.now().Sub(e.loadedAt) < c.ttl {
		metrics.RecordCacheHit(c.name)
		return e.value, nil
	}

	metrics.RecordCacheMiss(c.name)
	value, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.entries[key] = entry[V]{value: value, loadedAt: c.now()}
	metrics.UpdateCacheSize(c.name, len(c.entries))
	return value, nil
}

// Peek returns the cached value without loading, expired entries excluded.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.ttl <= 0 || c.now().Sub(e.loadedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Age returns how long ago the entry for key was loaded.
func (c *Cache[V]) Age(key string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	return c.now().Sub(e.loadedAt), true
}

// Invalidate drops the entry for key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	metrics.UpdateCacheSize(c.name, len(c.entries))
}

// InvalidateAll drops every entry.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
	metrics.UpdateCacheSize(c.name, 0)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
