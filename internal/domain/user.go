// Package domain contains the core business entities for Mini Market.
// These are plain Go structs shared by the repository, service and handler layers.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Username and password length limits, counted in characters.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 6
	MaxPasswordLength = 200
)

// User represents a registered customer.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// Username is unique when compared case-insensitively.
	Username string `json:"username"`

	// PasswordHash is the encoded output of the configured password hasher.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// CreatedAt is the timestamp when the user registered.
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a new User stamped with the current time.
func NewUser(username, passwordHash string) *User {
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}

// Identity returns the session identity for the user.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

// Identity is the authenticated caller. Cart operations are always scoped to it.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// NormalizeUsername trims surrounding whitespace.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// UsernameKey is the case-folded form used for uniqueness checks and lookups.
func UsernameKey(username string) string {
	return strings.ToLower(NormalizeUsername(username))
}

// ValidateCredentials checks username and password length limits.
func ValidateCredentials(username, password string) error {
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return ErrInvalidUsername
	}
	if n := utf8.RuneCountInString(password); n < MinPasswordLength || n > MaxPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}
