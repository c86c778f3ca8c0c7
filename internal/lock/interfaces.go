// Package lock serializes cart mutations per user. MemoryLocker covers a
// single process, RedisLocker covers several instances sharing one Redis.
package lock

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prn-tf/minimarket/internal/repository"
)

// Locker is a keyed mutex with expiry. A successful Acquire returns an owner
// token; a busy key yields "" and no error. Release and Extend are no-ops
// unless the token still owns the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	// AcquireWithRetry makes maxRetries+1 attempts spaced by retryDelay.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (string, error)
	Release(ctx context.Context, key, token string) (bool, error)
	Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

// RetryPolicy describes how Do waits for a busy lock.
type RetryPolicy struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Do runs fn while holding key. The lease is extended every TTL/2 while fn
// runs and released on every exit path, including a panic in fn. Returns
// repository.ErrLockNotAcquired when the lock stays busy for the whole
// retry budget.
func Do(ctx context.Context, locker Locker, key string, policy RetryPolicy, fn func(ctx context.Context) error) error {
	token, err := locker.AcquireWithRetry(ctx, key, policy.TTL, policy.MaxRetries, policy.RetryDelay)
	if err != nil {
		return err
	}
	if token == "" {
		return repository.ErrLockNotAcquired
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	if every := policy.TTL / 2; every > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keepAlive(ctx, locker, key, token, policy.TTL, every, stop)
		}()
	}

	defer func() {
		close(stop)
		wg.Wait()
		// A failed release is recovered by the lock TTL.
		_, _ = locker.Release(context.WithoutCancel(ctx), key, token)
	}()

	return fn(ctx)
}

// keepAlive extends the lease until stop closes, ctx ends or the lease is lost.
func keepAlive(ctx context.Context, locker Locker, key, token string, ttl, every time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ok, err := locker.Extend(ctx, key, token, ttl); err != nil || !ok {
				return
			}
		}
	}
}

// Keys builds lock keys.
var Keys = lockKeys{}

type lockKeys struct{}

// Cart returns the lock key serializing mutations of one user's cart.
func (lockKeys) Cart(userID int64) string {
	return "lock:cart:" + strconv.FormatInt(userID, 10)
}
