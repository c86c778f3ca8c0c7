package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/lock"
	"github.com/prn-tf/minimarket/internal/metrics"
	"github.com/prn-tf/minimarket/internal/repository"
)

// Cart operation names used in logs and metrics.
const (
	opAdd    = "add"
	opSet    = "set"
	opRemove = "remove"
)

// CartService is the only writer of cart lines. Mutations of one user's cart
// are serialized by a lock keyed on the user; different users never contend.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	locker      lock.Locker
	policy      lock.RetryPolicy
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

// CartServiceConfig contains the dependencies of a CartService.
type CartServiceConfig struct {
	CartRepo    repository.CartRepository
	ProductRepo repository.ProductRepository
	Locker      lock.Locker
	LockPolicy  lock.RetryPolicy
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

// NewCartService creates a new CartService.
func NewCartService(cfg CartServiceConfig) *CartService {
	return &CartService{
		cartRepo:    cfg.CartRepo,
		productRepo: cfg.ProductRepo,
		locker:      cfg.Locker,
		policy:      cfg.LockPolicy,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With().Str("service", "cart").Logger(),
		now:         time.Now,
	}
}

// LegacyAddOutput describes one LegacyAdd request.
type LegacyAddOutput struct {
	Product    *domain.Product
	Quantity   int
	TotalPrice decimal.Decimal
}

// =============================================================================
// Reads
// =============================================================================

// GetCart returns the owner's priced cart, creating an empty cart on first use.
func (s *CartService) GetCart(ctx context.Context, owner domain.Identity) (*domain.CartSummary, error) {
	return s.summary(ctx, owner)
}

func (s *CartService) summary(ctx context.Context, owner domain.Identity) (*domain.CartSummary, error) {
	updatedAt, err := s.cartRepo.EnsureCart(ctx, owner.UserID, s.now().UTC())
	if err != nil {
		return nil, s.internal(err, owner, "failed to load cart")
	}

	lines, err := s.cartRepo.Lines(ctx, owner.UserID)
	if err != nil {
		return nil, s.internal(err, owner, "failed to load cart lines")
	}

	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.productRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, s.internal(err, owner, "failed to load cart products")
	}

	byID := make(map[int64]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return domain.BuildCartSummary(owner, lines, byID, updatedAt), nil
}

// =============================================================================
// Mutations
// =============================================================================

// AddItem adds quantity to the owner's line for productID, creating the line
// if needed. Quantities accumulate without an upper bound.
func (s *CartService) AddItem(ctx context.Context, owner domain.Identity, productID int64, quantity int) (*domain.CartSummary, error) {
	summary, _, err := s.addItem(ctx, owner, productID, quantity)
	return summary, err
}

// LegacyAdd behaves like AddItem but reports the product, the quantity and
// the price of this request alone. The stored line still accumulates.
func (s *CartService) LegacyAdd(ctx context.Context, owner domain.Identity, productID int64, quantity int) (*LegacyAddOutput, error) {
	_, product, err := s.addItem(ctx, owner, productID, quantity)
	if err != nil {
		return nil, err
	}

	return &LegacyAddOutput{
		Product:    product,
		Quantity:   quantity,
		TotalPrice: domain.LineTotal(product.Price, quantity),
	}, nil
}

func (s *CartService) addItem(ctx context.Context, owner domain.Identity, productID int64, quantity int) (*domain.CartSummary, *domain.Product, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		s.metrics.RecordCartOperation(opAdd, resultLabel(err))
		return nil, nil, err
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = domain.ErrProductNotFound
		} else {
			err = s.internal(err, owner, "failed to load product")
		}
		s.metrics.RecordCartOperation(opAdd, resultLabel(err))
		return nil, nil, err
	}
	if !product.IsAvailable {
		err := domain.NewDomainError(
			domain.ErrProductUnavailable,
			fmt.Sprintf("Product '%s' is currently not available", product.Name),
			strconv.FormatInt(product.ID, 10),
		)
		s.metrics.RecordCartOperation(opAdd, resultLabel(err))
		return nil, nil, err
	}

	summary, err := s.mutate(ctx, owner, opAdd, func(ctx context.Context, now time.Time) error {
		total, err := s.cartRepo.AddQuantity(ctx, owner.UserID, productID, quantity, now)
		if err != nil {
			return s.internal(err, owner, "failed to add cart item")
		}
		s.logger.Debug().
			Int64("user_id", owner.UserID).
			Int64("product_id", productID).
			Int("added", quantity).
			Int("quantity", total).
			Msg("cart item added")
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return summary, product, nil
}

// SetItemQuantity overwrites the quantity of an existing line. Zero is
// rejected; lines are removed only by RemoveItem.
func (s *CartService) SetItemQuantity(ctx context.Context, owner domain.Identity, productID int64, quantity int) (*domain.CartSummary, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		s.metrics.RecordCartOperation(opSet, resultLabel(err))
		return nil, err
	}

	return s.mutate(ctx, owner, opSet, func(ctx context.Context, now time.Time) error {
		err := s.cartRepo.SetQuantity(ctx, owner.UserID, productID, quantity, now)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrItemNotInCart
		}
		if err != nil {
			return s.internal(err, owner, "failed to update cart item")
		}
		return nil
	})
}

// RemoveItem deletes the owner's line for productID.
func (s *CartService) RemoveItem(ctx context.Context, owner domain.Identity, productID int64) (*domain.CartSummary, error) {
	return s.mutate(ctx, owner, opRemove, func(ctx context.Context, now time.Time) error {
		err := s.cartRepo.RemoveLine(ctx, owner.UserID, productID, now)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrItemNotInCart
		}
		if err != nil {
			return s.internal(err, owner, "failed to remove cart item")
		}
		return nil
	})
}

// mutate runs fn under the owner's cart lock and returns the summary read
// before the lock is released.
func (s *CartService) mutate(ctx context.Context, owner domain.Identity, op string, fn func(ctx context.Context, now time.Time) error) (*domain.CartSummary, error) {
	var summary *domain.CartSummary

	err := lock.Do(ctx, s.locker, lock.Keys.Cart(owner.UserID), s.policy, func(ctx context.Context) error {
		if err := fn(ctx, s.now().UTC()); err != nil {
			return err
		}
		var err error
		summary, err = s.summary(ctx, owner)
		return err
	})
	if errors.Is(err, repository.ErrLockNotAcquired) {
		s.logger.Warn().Int64("user_id", owner.UserID).Str("operation", op).Msg("cart lock busy")
		err = ErrCartBusy
	} else if err != nil && !isCartOutcome(err) && !errors.Is(err, ErrInternalError) {
		// Lock backend failure.
		err = s.internal(err, owner, "failed to lock cart")
	}

	s.metrics.RecordCartOperation(op, resultLabel(err))
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *CartService) internal(err error, owner domain.Identity, msg string) error {
	s.logger.Error().Err(err).Int64("user_id", owner.UserID).Msg(msg)
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}

func isCartOutcome(err error) bool {
	return errors.Is(err, domain.ErrItemNotInCart) ||
		errors.Is(err, domain.ErrProductNotFound) ||
		errors.Is(err, domain.ErrProductUnavailable) ||
		errors.Is(err, domain.ErrInvalidQuantity)
}

// resultLabel classifies an operation outcome for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrProductUnavailable):
		return "product_unavailable"
	case errors.Is(err, domain.ErrItemNotInCart):
		return "item_not_in_cart"
	case errors.Is(err, ErrCartBusy):
		return "busy"
	default:
		return "error"
	}
}
