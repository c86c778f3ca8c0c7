// Package crypto provides cryptographic utilities for Mini Market.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Sizes of generated secrets, in bytes before encoding.
const (
	// SessionTokenSize is the entropy of an opaque session token.
	SessionTokenSize = 32

	// SaltSize is the length of a password hashing salt.
	SaltSize = 16
)

// GenerateSessionToken returns a random URL-safe token carrying 256 bits of entropy.
// Example: "q3vB0m1mX0yE3yY9k2g5XxJcS4bQ2HnS0o9l0V1W2Zo"
func GenerateSessionToken() (string, error) {
	b, err := GenerateRandomBytes(SessionTokenSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateSalt returns SaltSize random bytes.
func GenerateSalt() ([]byte, error) {
	return GenerateRandomBytes(SaltSize)
}

// GenerateRandomBytes returns n bytes from the system CSPRNG.
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
