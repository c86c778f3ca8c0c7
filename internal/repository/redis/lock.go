package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/prn-tf/minimarket/internal/repository"
)

// Release and extend only touch the key if it still holds our owner token.
var (
	releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
	extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)
)

// DistributedLock implements repository.DistributedLock with SET NX PX.
// The value stored under each key is the owner token handed to the caller.
type DistributedLock struct {
	rdb    *goredis.Client
	prefix string
}

// NewDistributedLock creates a Redis lock. prefix namespaces every key.
func NewDistributedLock(client *Client, prefix string) *DistributedLock {
	return &DistributedLock{rdb: client.rdb, prefix: prefix}
}

func (l *DistributedLock) key(k string) string {
	return l.prefix + k
}

// Acquire attempts to acquire a lock.
func (l *DistributedLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key(key), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (l *DistributedLock) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (string, error) {
	for i := 0; ; i++ {
		token, err := l.Acquire(ctx, key, ttl)
		if err != nil || token != "" || i >= maxRetries {
			return token, err
		}

		timer := time.NewTimer(retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

// Release deletes the key if it still holds token.
func (l *DistributedLock) Release(ctx context.Context, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, l.rdb, []string{l.key(key)}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return n == 1, nil
}

// Extend resets the expiry if the key still holds token.
func (l *DistributedLock) Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, l.rdb, []string{l.key(key)}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return n == 1, nil
}

// Ensure DistributedLock implements repository.DistributedLock.
var _ repository.DistributedLock = (*DistributedLock)(nil)
