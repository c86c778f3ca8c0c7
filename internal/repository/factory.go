package repository

import (
	"context"
	"errors"
)

// Repositories holds all repository instances for one storage backend.
type Repositories struct {
	User    UserRepository
	Product ProductRepository
	Offer   OfferRepository
	Cart    CartRepository

	// Database is the connection behind the repositories. Nil for the memory backend.
	Database DatabaseHealth
}

// DatabaseHealth is an interface for database health checks.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// Health pings the backing database, if any.
func (r *Repositories) Health(ctx context.Context) error {
	if r.Database == nil {
		return nil
	}
	return r.Database.Health(ctx)
}

// Close releases the backing database, if any.
func (r *Repositories) Close() error {
	if r.Database == nil {
		return nil
	}
	return r.Database.Close()
}

// Validate reports missing repositories.
func (r *Repositories) Validate() error {
	var errs []error
	if r.User == nil {
		errs = append(errs, errors.New("user repository is nil"))
	}
	if r.Product == nil {
		errs = append(errs, errors.New("product repository is nil"))
	}
	if r.Offer == nil {
		errs = append(errs, errors.New("offer repository is nil"))
	}
	if r.Cart == nil {
		errs = append(errs, errors.New("cart repository is nil"))
	}
	return errors.Join(errs...)
}
