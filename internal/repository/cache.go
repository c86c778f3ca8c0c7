package repository

import (
	"context"
	"time"
)

// =============================================================================
// Cache Interface
// =============================================================================

// Cache defines the key/value operations used for server-side sessions.
// Implemented in-process (cache/memory) and on Redis (repository/redis).
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetNX sets a value only if the key doesn't exist. A zero ttl never expires.
	// Returns true if the value was set, false if the key already exists.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes a value by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists.
	Exists(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Distributed Lock Interface
// =============================================================================

// DistributedLock defines the interface for locks shared between server instances.
// Every successful acquisition yields an owner token; Release and Extend only
// act while the key still carries that token.
type DistributedLock interface {
	// Acquire takes key for ttl. It returns the owner token, or "" if the
	// key is held by another owner.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)

	// AcquireWithRetry makes up to maxRetries+1 attempts spaced by retryDelay.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (string, error)

	// Release drops the lock if token still owns it.
	Release(ctx context.Context, key, token string) (bool, error)

	// Extend resets the TTL if token still owns the lock.
	Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

// =============================================================================
// Common Cache Keys
// =============================================================================

// CacheKey generates cache keys for common scenarios.
type CacheKey struct{}

// Session returns the cache key for a session token digest.
func (CacheKey) Session(tokenDigest string) string {
	return "session:" + tokenDigest
}
