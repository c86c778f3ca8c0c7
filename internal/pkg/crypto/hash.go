package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeSHA256 computes the SHA-256 hash of data and returns it as hex string.
func ComputeSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashToken returns the digest under which a session token is stored.
// Raw tokens are never persisted.
func HashToken(token string) string {
	return ComputeSHA256([]byte(token))
}
