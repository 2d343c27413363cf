// Package memocache provides a generic invalidate-on-change memoization
// cache: values are cached per key and guarded by a cheaply refetched
// token, so a stored value survives exactly as long as its validity
// predicate holds against the fresh token.
package memocache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc obtains a fresh token for a key. It should be cheap (one
// stat call, for the path cache). An absent target must be encoded as a
// legitimate token value, not an error: errors from FetchFunc propagate
// to the Get caller.
type FetchFunc[K ~string, T any] func(key K) (T, error)

// ValidFunc reports whether a stored value is still current against a
// freshly fetched token.
type ValidFunc[T, V any] func(stored V, fresh T) bool

// ComputeFunc derives a new value from a fresh token. It must not reuse
// any state from a previously stored value.
type ComputeFunc[K ~string, T, V any] func(key K, fresh T) (V, error)

// Cache memoizes compute(key, fetch(key)) until valid(stored, fetch(key))
// fails. Keys are constrained to string kinds because concurrent misses
// on one key are collapsed through a singleflight group, which is
// string-keyed.
//
// Reads proceed concurrently; a write excludes other access only for the
// duration of the map update. Safe for concurrent use.
type Cache[K ~string, T, V any] struct {
	fetch   FetchFunc[K, T]
	valid   ValidFunc[T, V]
	compute ComputeFunc[K, T, V]

	mu      sync.RWMutex
	entries map[K]V
	epoch   uint64 // bumped by Reset; in-flight computes from before a reset must not store
	group   singleflight.Group
}

// New creates a cache over the given fetch/valid/compute triple.
func New[K ~string, T, V any](fetch FetchFunc[K, T], valid ValidFunc[T, V], compute ComputeFunc[K, T, V]) *Cache[K, T, V] {
	return &Cache[K, T, V]{
		fetch:   fetch,
		valid:   valid,
		compute: compute,
		entries: make(map[K]V),
	}
}

// Get returns the cached value for key if it is still valid against a
// freshly fetched token, and otherwise computes, stores, and returns a
// new one. Fetch and compute errors propagate; nothing is cached on
// error.
func (c *Cache[K, T, V]) Get(key K) (V, error) {
	v, _, err := c.GetInfo(key)
	return v, err
}

// GetInfo is Get plus a report of whether the returned value came from a
// fresh compute (a cache miss) rather than the stored entry.
func (c *Cache[K, T, V]) GetInfo(key K) (V, bool, error) {
	var zero V

	token, err := c.fetch(key)
	if err != nil {
		return zero, false, err
	}

	c.mu.RLock()
	stored, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.valid(stored, token) {
		return stored, false, nil
	}

	// Concurrent misses on the same key compute once; late arrivals
	// re-fetch inside the flight so they never adopt a value another
	// caller already invalidated.
	computed := false
	value, err, _ := c.group.Do(string(key), func() (any, error) {
		token, err := c.fetch(key)
		if err != nil {
			return nil, err
		}
		c.mu.RLock()
		stored, ok := c.entries[key]
		epoch := c.epoch
		c.mu.RUnlock()
		if ok && c.valid(stored, token) {
			return stored, nil
		}
		fresh, err := c.compute(key, token)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// A Reset that ran while computing already dropped this key's
		// lineage; storing now would resurrect a pre-reset value. The
		// caller still gets the fresh value, it just is not cached.
		if c.epoch == epoch {
			c.entries[key] = fresh
		}
		c.mu.Unlock()
		computed = true
		return fresh, nil
	})
	if err != nil {
		return zero, false, err
	}
	return value.(V), computed, nil
}

// Peek returns the stored value without any validity check. Intended for
// tests and diagnostics.
func (c *Cache[K, T, V]) Peek(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Len reports the number of stored entries.
func (c *Cache[K, T, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every entry unconditionally. A Get whose compute is in
// flight when Reset runs returns its value to the caller but does not
// store it, so the cache is guaranteed empty of pre-reset lineage the
// moment Reset returns.
func (c *Cache[K, T, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	clear(c.entries)
}
