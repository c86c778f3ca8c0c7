// Package repository defines data access interfaces for Mini Market.
// These interfaces abstract storage operations, allowing for different implementations
// (in-memory, SQLite, PostgreSQL) while keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/prn-tf/minimarket/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user and sets user.ID.
	// Returns domain.ErrUserAlreadyExists if the username is taken, ignoring case.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	// Returns ErrNotFound if the user does not exist.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username, ignoring case.
	// Returns ErrNotFound if the user does not exist.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// List returns all users ordered by ID.
	List(ctx context.Context) ([]*domain.User, error)
}

// =============================================================================
// Catalog Repositories
// =============================================================================

// ProductRepository defines read access to the product catalog.
type ProductRepository interface {
	// GetByID retrieves a product by ID.
	// Returns ErrNotFound if the product does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// List returns products matching the filter ordered by ID.
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)

	// ListByIDs returns the products that exist among ids. Unknown ids are ignored.
	ListByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error)
}

// OfferRepository defines read access to promotional offers.
type OfferRepository interface {
	// GetByID retrieves an offer by ID.
	// Returns ErrNotFound if the offer does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Offer, error)

	// List returns offers ordered by ID. Inactive offers are included only when asked.
	List(ctx context.Context, includeInactive bool) ([]*domain.Offer, error)
}

// =============================================================================
// Cart Repository
// =============================================================================

// CartRepository stores per-user cart lines.
// Every mutation also moves the cart's updated_at to the given time.
type CartRepository interface {
	// EnsureCart creates the cart record for userID if it is missing
	// and returns its last-modified time.
	EnsureCart(ctx context.Context, userID int64, at time.Time) (time.Time, error)

	// Lines returns the user's cart lines in insertion order.
	Lines(ctx context.Context, userID int64) ([]*domain.CartLine, error)

	// AddQuantity atomically inserts a line or increments an existing one by delta.
	// Returns the resulting quantity.
	AddQuantity(ctx context.Context, userID, productID int64, delta int, at time.Time) (int, error)

	// SetQuantity overwrites the quantity of an existing line.
	// Returns ErrNotFound if there is no such line.
	SetQuantity(ctx context.Context, userID, productID int64, quantity int, at time.Time) error

	// RemoveLine deletes an existing line.
	// Returns ErrNotFound if there is no such line.
	RemoveLine(ctx context.Context, userID, productID int64, at time.Time) error
}
