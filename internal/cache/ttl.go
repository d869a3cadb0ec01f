// Package cache provides a small TTL cache used to bound RPC call volume
// for volatile reads (gas price, block height, market data). Staleness
// within the TTL is accepted in exchange for avoiding per-call locking
// around the upstream client.
package cache

import (
	"context"
	"sync"
	"time"
)

// TTL is a generic cache whose entries expire after a fixed duration.
type TTL[K comparable, V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[K]entry[V]
	nowFn func() time.Time

	hits   int64
	misses int64
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTL creates a cache with the given time-to-live.
func NewTTL[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		ttl:   ttl,
		items: make(map[K]entry[V]),
		nowFn: time.Now,
	}
}

// Get returns the cached value and true when present and unexpired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	now := c.nowFn()
	c.mu.RUnlock()

	if !ok || now.After(e.expiresAt) {
		c.mu.Lock()
		if ok && now.After(e.expiresAt) {
			delete(c.items, key)
		}
		c.misses++
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return e.value, true
}

// Put stores a value, resetting its expiry.
func (c *TTL[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: c.nowFn().Add(c.ttl)}
}

// GetOrLoad returns the cached value or falls through to load, caching
// the result. Concurrent misses on the same key may each invoke load;
// the last write wins, which is harmless for idempotent reads.
func (c *TTL[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Put(key, v)
	return v, nil
}

// Invalidate removes a key.
func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len returns the number of entries, including expired but unevicted ones.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns hit and miss counts.
func (c *TTL[K, V]) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// SetNowFunc overrides the clock. Test hook.
func (c *TTL[K, V]) SetNowFunc(fn func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowFn = fn
}
