package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/minimarket/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	defer c.Stop()

	_, err := c.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrCacheMiss)

	value := []byte("42")
	set, err := c.SetNX(ctx, "k", value, 0)
	require.NoError(t, err)
	require.True(t, set)
	value[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("42"), got)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache(WithClock(clock.Now))
	defer c.Stop()

	set, err := c.SetNX(ctx, "session", []byte("1"), time.Hour)
	require.NoError(t, err)
	require.True(t, set)

	clock.Advance(59 * time.Minute)
	_, err = c.Get(ctx, "session")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = c.Get(ctx, "session")
	require.ErrorIs(t, err, repository.ErrCacheMiss)

	ok, err := c.Exists(ctx, "session")
	require.NoError(t, err)
	require.False(t, ok)

	c.cleanup()
	require.Equal(t, 0, c.Len())
}

func TestCache_SetNX(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	c := NewCache(WithClock(clock.Now))
	defer c.Stop()

	set, err := c.SetNX(ctx, "k", []byte("a"), time.Second)
	require.NoError(t, err)
	require.True(t, set)

	set, err = c.SetNX(ctx, "k", []byte("b"), time.Second)
	require.NoError(t, err)
	require.False(t, set)

	clock.Advance(2 * time.Second)
	set, err = c.SetNX(ctx, "k", []byte("c"), time.Second)
	require.NoError(t, err)
	require.True(t, set)

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("c"), got)
}
