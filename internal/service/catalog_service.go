package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/repository"
)

// CatalogService provides read-only access to products and offers.
type CatalogService struct {
	productRepo repository.ProductRepository
	offerRepo   repository.OfferRepository
	logger      zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	productRepo repository.ProductRepository,
	offerRepo repository.OfferRepository,
	logger zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		productRepo: productRepo,
		offerRepo:   offerRepo,
		logger:      logger.With().Str("service", "catalog").Logger(),
	}
}

// GetProduct retrieves a product by ID.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProductNotFound
		}
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to get product")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return product, nil
}

// ListProducts returns every product matching filter. There is no pagination.
func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("category", filter.Category).Msg("failed to list products")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return products, nil
}

// GetOffer retrieves an offer by ID, active or not.
func (s *CatalogService) GetOffer(ctx context.Context, id int64) (*domain.Offer, error) {
	offer, err := s.offerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrOfferNotFound
		}
		s.logger.Error().Err(err).Int64("offer_id", id).Msg("failed to get offer")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return offer, nil
}

// ListOffers returns active offers, or all offers when includeInactive is set.
func (s *CatalogService) ListOffers(ctx context.Context, includeInactive bool) ([]*domain.Offer, error) {
	offers, err := s.offerRepo.List(ctx, includeInactive)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list offers")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return offers, nil
}
