package lock

import (
	"github.com/prn-tf/minimarket/internal/repository"
)

// RedisLocker serializes cart mutations across server instances. It exposes a
// repository.DistributedLock, normally repository/redis, as a Locker.
type RedisLocker struct {
	repository.DistributedLock
}

// NewRedisLocker wraps dl.
func NewRedisLocker(dl repository.DistributedLock) *RedisLocker {
	return &RedisLocker{DistributedLock: dl}
}

var _ Locker = (*RedisLocker)(nil)
