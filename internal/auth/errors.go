// Package auth provides password hashing, session tokens and bearer
// authentication for Mini Market.
package auth

import "errors"

// Authentication errors.
var (
	// ErrMissingToken indicates the request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrMalformedAuthorization indicates the Authorization header is not "Bearer <token>".
	ErrMalformedAuthorization = errors.New("malformed authorization header")

	// ErrInvalidToken indicates a token that is unknown, expired, revoked or fails verification.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrMalformedHash indicates a stored password hash that cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
)
