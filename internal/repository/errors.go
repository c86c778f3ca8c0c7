package repository

import "errors"

// Sentinel errors shared by every backend. Services translate them into
// domain errors before they reach the HTTP layer.
var (
	// ErrNotFound is returned by lookups and by cart mutations that target a missing line.
	ErrNotFound = errors.New("record not found")

	// ErrCacheMiss is returned by Cache.Get for absent or expired keys.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable wraps transport failures of a remote cache or lock store.
	ErrCacheUnavailable = errors.New("cache backend unavailable")

	// ErrLockNotAcquired is returned by lock.Do when a lock stays busy for the whole retry budget.
	ErrLockNotAcquired = errors.New("lock not acquired")
)
