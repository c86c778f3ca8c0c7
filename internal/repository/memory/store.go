// Package memory provides in-process repository implementations.
// Data lives for the lifetime of the process; it is intended for development,
// tests and single-instance deployments.
package memory

import (
	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/repository"
)

// NewRepositories returns a full repository set backed by process memory,
// with the catalog seeded.
func NewRepositories() *repository.Repositories {
	return &repository.Repositories{
		User:    NewUserRepository(),
		Product: NewProductRepository(domain.SeedProducts()),
		Offer:   NewOfferRepository(domain.SeedOffers()),
		Cart:    NewCartRepository(),
	}
}
