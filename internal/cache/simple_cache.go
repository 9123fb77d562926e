package cache

import (
	"sync"
	"time"
)

// entry stores a cached value and its absolute expiration timestamp.
type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

func (e entry[V]) expired(at time.Time) bool {
	return !e.expiresAt.IsZero() && at.After(e.expiresAt)
}

// SimpleCache is a lightweight map-backed cache with optional concurrency safety.
// It supports per-item TTL (no background janitor; cleanup is lazy or via PurgeExpired).
type SimpleCache[K comparable, V any] struct {
	// If muPtr is nil, the cache is NOT goroutine-safe.
	muPtr *sync.RWMutex
	now   func() time.Time

	items map[K]entry[V]
}

// Options controls construction of a SimpleCache.
type Options struct {
	// ConcurrencySafe controls whether operations are guarded by a RWMutex.
	ConcurrencySafe bool

	// Now overrides the clock used for expiry. Defaults to time.Now.
	Now func() time.Time
}

// NewSimpleCache constructs a new SimpleCache with the given options.
func NewSimpleCache[K comparable, V any](opts Options) *SimpleCache[K, V] {
	var mu *sync.RWMutex
	if opts.ConcurrencySafe {
		mu = &sync.RWMutex{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SimpleCache[K, V]{
		muPtr: mu,
		now:   now,
		items: make(map[K]entry[V]),
	}
}

func (c *SimpleCache[K, V]) lockR() func() {
	if c.muPtr == nil {
		return func() {}
	}
	c.muPtr.RLock()
	return c.muPtr.RUnlock
}

func (c *SimpleCache[K, V]) lockW() func() {
	if c.muPtr == nil {
		return func() {}
	}
	c.muPtr.Lock()
	return c.muPtr.Unlock
}

// Get implements Cache.Get.
func (c *SimpleCache[K, V]) Get(key K) (V, bool) {
	unlock := c.lockR()
	defer unlock()

	var zero V
	e, ok := c.items[key]
	if !ok || e.expired(c.now()) {
		return zero, false
	}
	return e.value, true
}

// Set implements Cache.Set.
func (c *SimpleCache[K, V]) Set(key K, value V, ttl time.Duration) {
	unlock := c.lockW()
	defer unlock()

	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.items[key] = entry[V]{value: value, expiresAt: exp}
}

// Update applies fn to a live entry and re-arms its TTL. It reports false when
// the key is missing or already expired.
func (c *SimpleCache[K, V]) Update(key K, ttl time.Duration, fn func(V) V) bool {
	unlock := c.lockW()
	defer unlock()

	now := c.now()
	e, ok := c.items[key]
	if !ok || e.expired(now) {
		return false
	}
	e.value = fn(e.value)
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	c.items[key] = e
	return true
}

// Delete implements Cache.Delete.
func (c *SimpleCache[K, V]) Delete(key K) {
	unlock := c.lockW()
	defer unlock()
	delete(c.items, key)
}

// Has implements Cache.Has.
func (c *SimpleCache[K, V]) Has(key K) bool {
	unlock := c.lockR()
	defer unlock()
	e, ok := c.items[key]
	return ok && !e.expired(c.now())
}

// Len implements Cache.Len. It counts only non-expired entries.
func (c *SimpleCache[K, V]) Len() int {
	unlock := c.lockR()
	defer unlock()
	now := c.now()
	count := 0
	for _, e := range c.items {
		if !e.expired(now) {
			count++
		}
	}
	return count
}

// Range implements Cache.Range. fn must not call back into the cache.
func (c *SimpleCache[K, V]) Range(fn func(key K, value V) bool) {
	unlock := c.lockR()
	defer unlock()
	now := c.now()
	for k, e := range c.items {
		if e.expired(now) {
			continue
		}
		if !fn(k, e.value) {
			return
		}
	}
}

// Clear implements Cache.Clear.
func (c *SimpleCache[K, V]) Clear() {
	unlock := c.lockW()
	defer unlock()
	c.items = make(map[K]entry[V])
}

// PurgeExpired implements Cache.PurgeExpired.
func (c *SimpleCache[K, V]) PurgeExpired() []K {
	unlock := c.lockW()
	defer unlock()
	if len(c.items) == 0 {
		return nil
	}
	nowTs := c.now()
	var purged []K
	for k, e := range c.items {
		if e.expired(nowTs) {
			delete(c.items, k)
			purged = append(purged, k)
		}
	}
	return purged
}

// Ensure SimpleCache implements Cache at compile time.
var _ Cache[any, any] = (*SimpleCache[any, any])(nil)
