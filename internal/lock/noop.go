package lock

import (
	"context"
	"time"
)

const noopToken = "noop"

// NoOpLocker grants every lock immediately. Selected by cart.lock_mode=none,
// where the repository's atomic upsert is the only guard on cart lines.
type NoOpLocker struct{}

func NewNoOpLocker() *NoOpLocker { return &NoOpLocker{} }

func (*NoOpLocker) Acquire(ctx context.Context, _ string, _ time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return noopToken, nil
}

func (l *NoOpLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, _ int, _ time.Duration) (string, error) {
	return l.Acquire(ctx, key, ttl)
}

func (*NoOpLocker) Release(context.Context, string, string) (bool, error) { return true, nil }

func (*NoOpLocker) Extend(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}

var _ Locker = (*NoOpLocker)(nil)
