package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/domain"
)

// AuthorizationHeader is the request header carrying the bearer token.
const AuthorizationHeader = "Authorization"

// IdentityResolver maps a session token to the caller it was issued for.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}

type contextKey int

const (
	identityKey contextKey = iota
	tokenKey
)

// Middleware rejects requests without a valid bearer token with 401 and
// stores the resolved identity in the request context. Resolver failures
// other than a rejected token are logged to logger and answered with 500.
func Middleware(resolver IdentityResolver, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "auth").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			identity, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, domain.ErrUnauthenticated) && !errors.Is(err, ErrInvalidToken) {
					logger.Error().Err(err).Str("path", r.URL.Path).Msg("session lookup failed")
					writeJSONError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer authentication failed")
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get(AuthorizationHeader))
	if header == "" {
		return "", ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedAuthorization
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMalformedAuthorization
	}
	return token, nil
}

// IdentityFromContext returns the identity stored by Middleware.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

// TokenFromContext returns the raw bearer token stored by Middleware.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}

// WithIdentity returns a context carrying identity, as Middleware would.
func WithIdentity(ctx context.Context, identity domain.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	return context.WithValue(ctx, tokenKey, token)
}

// writeAuthError writes a 401 with a Bearer challenge. The body never says
// which check failed.
func writeAuthError(w http.ResponseWriter, err error) {
	challenge := "Bearer"
	if !errors.Is(err, ErrMissingToken) {
		challenge = `Bearer error="invalid_token"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	writeJSONError(w, http.StatusUnauthorized, "Not authenticated")
}

func writeJSONError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
