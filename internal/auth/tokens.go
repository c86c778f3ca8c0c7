package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prn-tf/minimarket/internal/pkg/crypto"
	"github.com/prn-tf/minimarket/internal/repository"
)

// TokenIssuer creates and checks session tokens.
type TokenIssuer interface {
	// Issue creates a new token for userID. Every call returns a distinct token.
	Issue(ctx context.Context, userID int64) (token string, expiresAt time.Time, err error)

	// Resolve returns the user a token was issued for.
	// Returns ErrInvalidToken for unknown, expired or revoked tokens.
	Resolve(ctx context.Context, token string) (int64, error)

	// Revoke invalidates a token. Returns false if the token was not active
	// or the issuer cannot revoke tokens.
	Revoke(ctx context.Context, token string) (bool, error)
}

// OpaqueTokens issues random tokens and keeps their owner in a cache.
// Only the SHA-256 digest of a token is used as the cache key.
type OpaqueTokens struct {
	cache repository.Cache
	ttl   time.Duration
	keys  repository.CacheKey
	now   func() time.Time
}

// NewOpaqueTokens creates an issuer storing sessions in cache for ttl.
func NewOpaqueTokens(cache repository.Cache, ttl time.Duration) *OpaqueTokens {
	return &OpaqueTokens{cache: cache, ttl: ttl, now: time.Now}
}

// maxIssueAttempts bounds retries on a (practically impossible) token collision.
const maxIssueAttempts = 3

func (o *OpaqueTokens) Issue(ctx context.Context, userID int64) (string, time.Time, error) {
	value := []byte(strconv.FormatInt(userID, 10))

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		token, err := crypto.GenerateSessionToken()
		if err != nil {
			return "", time.Time{}, err
		}

		ok, err := o.cache.SetNX(ctx, o.keys.Session(crypto.HashToken(token)), value, o.ttl)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("failed to store session: %w", err)
		}
		if ok {
			return token, o.now().UTC().Add(o.ttl), nil
		}
	}
	return "", time.Time{}, errors.New("failed to allocate a unique session token")
}

func (o *OpaqueTokens) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}

	value, err := o.cache.Get(ctx, o.keys.Session(crypto.HashToken(token)))
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return 0, ErrInvalidToken
		}
		return 0, fmt.Errorf("failed to load session: %w", err)
	}

	userID, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

func (o *OpaqueTokens) Revoke(ctx context.Context, token string) (bool, error) {
	key := o.keys.Session(crypto.HashToken(token))

	exists, err := o.cache.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	if !exists {
		return false, nil
	}
	if err := o.cache.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return true, nil
}
