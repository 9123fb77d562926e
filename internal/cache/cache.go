package cache

import "time"

// Cache is a key-value store whose entries may carry a TTL. Expired entries
// are invisible to reads and are only reclaimed by PurgeExpired.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key K) (V, bool)

	// Set stores the value. If ttl <= 0, the entry does not expire.
	Set(key K, value V, ttl time.Duration)

	// Update rewrites a live entry through fn and restarts its TTL.
	// It reports false when the key is missing or expired.
	Update(key K, ttl time.Duration, fn func(V) V) bool

	Delete(key K)

	// Has reports whether a key is present and not expired.
	Has(key K) bool

	// Len counts non-expired entries.
	Len() int

	// Range calls fn for every non-expired entry until fn returns false.
	Range(fn func(key K, value V) bool)

	Clear()

	// PurgeExpired removes expired entries and returns their keys.
	PurgeExpired() []K
}
