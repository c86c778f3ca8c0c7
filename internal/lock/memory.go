package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const memorySweepInterval = 30 * time.Second

// MemoryLocker keeps cart locks in process memory. It serializes requests
// handled by one server process only.
type MemoryLocker struct {
	mu       sync.Mutex
	leases   map[string]lease
	done     chan struct{}
	stopOnce sync.Once
}

type lease struct {
	token string
	until time.Time
}

// NewMemoryLocker returns a locker with a background sweeper for expired keys.
// Call Stop to end the sweeper.
func NewMemoryLocker() *MemoryLocker {
	m := &MemoryLocker{
		leases: make(map[string]lease),
		done:   make(chan struct{}),
	}
	go m.sweep(memorySweepInterval)
	return m
}

func (m *MemoryLocker) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key := range m.leases {
				m.liveLocked(key, now)
			}
			m.mu.Unlock()
		}
	}
}

// liveLocked returns the unexpired lease on key and forgets expired ones.
// m.mu must be held.
func (m *MemoryLocker) liveLocked(key string, now time.Time) (lease, bool) {
	l, ok := m.leases[key]
	if !ok {
		return lease{}, false
	}
	if now.Before(l.until) {
		return l, true
	}
	delete(m.leases, key)
	return lease{}, false
}

// Stop ends the sweeper. Safe to call more than once.
func (m *MemoryLocker) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.liveLocked(key, now); held {
		return "", nil
	}
	token := uuid.NewString()
	m.leases[key] = lease{token: token, until: now.Add(ttl)}
	return token, nil
}

func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (string, error) {
	return acquireWithRetry(ctx, m.Acquire, key, ttl, maxRetries, retryDelay)
}

func (m *MemoryLocker) Release(ctx context.Context, key, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[key]; !ok || l.token != token {
		return false, nil
	}
	delete(m.leases, key)
	return true, nil
}

func (m *MemoryLocker) Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	l, held := m.liveLocked(key, now)
	if !held || l.token != token {
		return false, nil
	}
	m.leases[key] = lease{token: token, until: now.Add(ttl)}
	return true, nil
}

// acquireWithRetry makes up to maxRetries+1 attempts, sleeping retryDelay in between.
func acquireWithRetry(ctx context.Context, acquire func(context.Context, string, time.Duration) (string, error), key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (string, error) {
	for attempt := 0; ; attempt++ {
		token, err := acquire(ctx, key, ttl)
		if err != nil || token != "" || attempt >= maxRetries {
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

var _ Locker = (*MemoryLocker)(nil)
