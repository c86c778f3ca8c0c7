package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"

	"github.com/prn-tf/minimarket/internal/config"
	"github.com/prn-tf/minimarket/internal/pkg/crypto"
)

// PasswordHasher produces and checks salted, slow password hashes.
type PasswordHasher interface {
	// Hash returns a self-describing encoded hash of password.
	Hash(password string) (string, error)

	// Verify reports whether password matches encoded.
	// A mismatch is (false, nil); an error means encoded could not be used.
	Verify(encoded, password string) (bool, error)
}

// NewPasswordHasher returns the hasher selected by cfg.
func NewPasswordHasher(cfg config.AuthConfig) (PasswordHasher, error) {
	switch cfg.PasswordHasher {
	case config.HasherBcrypt:
		return NewBcryptHasher(cfg.BcryptCost), nil
	case config.HasherPBKDF2:
		return NewPBKDF2Hasher(cfg.PBKDF2Iterations), nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", cfg.PasswordHasher)
	}
}

// =============================================================================
// bcrypt
// =============================================================================

// bcryptMaxInput is the number of password bytes bcrypt consumes.
const bcryptMaxInput = 72

// BcryptHasher hashes passwords with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher. Costs below bcrypt.DefaultCost are raised to it.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(encoded, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), bcryptInput(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}

// bcryptInput pre-hashes passwords longer than bcrypt accepts.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// =============================================================================
// PBKDF2
// =============================================================================

const (
	pbkdf2Prefix = "pbkdf2_sha256"
	pbkdf2KeyLen = 32
)

// PBKDF2Hasher hashes passwords with PBKDF2-HMAC-SHA256.
// Encoded form: pbkdf2_sha256$<iterations>$<salt>$<hash>, base64 without padding.
type PBKDF2Hasher struct {
	iterations int
}

// NewPBKDF2Hasher creates a PBKDF2 hasher with the given iteration count.
func NewPBKDF2Hasher(iterations int) *PBKDF2Hasher {
	if iterations < config.MinPBKDF2Iterations {
		iterations = config.MinPBKDF2Iterations
	}
	return &PBKDF2Hasher{iterations: iterations}
}

func (h *PBKDF2Hasher) Hash(password string) (string, error) {
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, h.iterations, pbkdf2KeyLen, sha256.New)

	return strings.Join([]string{
		pbkdf2Prefix,
		strconv.Itoa(h.iterations),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	}, "$"), nil
}

// Verify uses the iteration count stored in encoded, so raising the
// configured count does not invalidate existing hashes.
func (h *PBKDF2Hasher) Verify(encoded, password string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != pbkdf2Prefix {
		return false, ErrMalformedHash
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations < 1 {
		return false, ErrMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false, ErrMalformedHash
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
