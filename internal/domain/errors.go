// Package domain contains the core business entities for Mini Market.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User / Credential Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same username exists
	// (compared case-insensitively).
	ErrUserAlreadyExists = errors.New("username already exists")

	// ErrInvalidCredentials indicates authentication failed. It is returned for
	// both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUnauthenticated indicates a missing, malformed, expired or revoked session token.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrInvalidUsername indicates the username length is outside 3..50 characters.
	ErrInvalidUsername = errors.New("username must be between 3 and 50 characters")

	// ErrInvalidPassword indicates the password length is outside 6..200 characters.
	ErrInvalidPassword = errors.New("password must be between 6 and 200 characters")

	// ===========================================
	// Catalog Errors
	// ===========================================

	// ErrProductNotFound indicates the requested product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrProductUnavailable indicates the product exists but cannot be added to a cart.
	ErrProductUnavailable = errors.New("product is currently not available")

	// ErrOfferNotFound indicates the requested offer does not exist.
	ErrOfferNotFound = errors.New("offer not found")

	// ===========================================
	// Cart Errors
	// ===========================================

	// ErrItemNotInCart indicates there is no cart line for the product.
	ErrItemNotInCart = errors.New("item not found in cart")

	// ErrInvalidQuantity indicates a quantity outside 1..MaxItemQuantity.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 999")

	// ===========================================
	// Request Errors
	// ===========================================

	// ErrInvalidRequest indicates malformed input that is not covered by a more specific error.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidEmail indicates an email address that does not parse.
	ErrInvalidEmail = errors.New("invalid email address")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message is a human readable description safe to return to clients.
	Message string

	// Resource identifies the affected resource (e.g., product id).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// IsValidation reports whether err is a client input error (HTTP 400 class).
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidUsername),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidRequest):
		return true
	}
	return false
}
