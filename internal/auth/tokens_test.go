package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/minimarket/internal/cache/memory"
)

func TestOpaqueTokens(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewCache()
	t.Cleanup(cache.Stop)
	tokens := NewOpaqueTokens(cache, time.Hour)

	first, expiresAt, err := tokens.Issue(ctx, 7)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	second, _, err := tokens.Issue(ctx, 7)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	for _, tok := range []string{first, second} {
		userID, err := tokens.Resolve(ctx, tok)
		require.NoError(t, err)
		require.Equal(t, int64(7), userID)
	}

	revoked, err := tokens.Revoke(ctx, first)
	require.NoError(t, err)
	require.True(t, revoked)

	_, err = tokens.Resolve(ctx, first)
	require.ErrorIs(t, err, ErrInvalidToken)

	revoked, err = tokens.Revoke(ctx, first)
	require.NoError(t, err)
	require.False(t, revoked)

	_, err = tokens.Resolve(ctx, second)
	require.NoError(t, err, "revoking one session must not affect another")

	_, err = tokens.Resolve(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTTokens(t *testing.T) {
	ctx := context.Background()
	secret := "0123456789abcdef0123456789abcdef"
	tokens := NewJWTTokens(secret, "minimarket", time.Hour)

	a, _, err := tokens.Issue(ctx, 42)
	require.NoError(t, err)
	b, _, err := tokens.Issue(ctx, 42)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	userID, err := tokens.Resolve(ctx, a)
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)

	revoked, err := tokens.Revoke(ctx, a)
	require.NoError(t, err)
	require.False(t, revoked)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTTokens("ffffffffffffffffffffffffffffffff", "minimarket", time.Hour)
		_, err := other.Resolve(ctx, a)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTTokens(secret, "someone-else", time.Hour)
		_, err := other.Resolve(ctx, a)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTTokens(secret, "minimarket", time.Hour)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		tok, _, err := expired.Issue(ctx, 42)
		require.NoError(t, err)

		_, err = tokens.Resolve(ctx, tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
