package memory

import (
	"context"
	"sort"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/repository"
)

// productRepository implements repository.ProductRepository over a fixed product set.
// The set is never mutated after construction, so reads need no locking.
type productRepository struct {
	byID    map[int64]*domain.Product
	ordered []*domain.Product
}

// NewProductRepository creates a read-only product repository.
func NewProductRepository(products []*domain.Product) repository.ProductRepository {
	r := &productRepository{byID: make(map[int64]*domain.Product, len(products))}
	for _, p := range products {
		cp := *p
		r.byID[cp.ID] = &cp
		r.ordered = append(r.ordered, &cp)
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].ID < r.ordered[j].ID })
	return r
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make([]*domain.Product, 0, len(r.ordered))
	for _, p := range r.ordered {
		if filter.Matches(p) {
			out := *p
			result = append(result, &out)
		}
	}
	return result, nil
}

func (r *productRepository) ListByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make([]*domain.Product, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := r.byID[id]; ok {
			out := *p
			result = append(result, &out)
		}
	}
	return result, nil
}

// offerRepository implements repository.OfferRepository over a fixed offer set.
type offerRepository struct {
	byID    map[int64]*domain.Offer
	ordered []*domain.Offer
}

// NewOfferRepository creates a read-only offer repository.
func NewOfferRepository(offers []*domain.Offer) repository.OfferRepository {
	r := &offerRepository{byID: make(map[int64]*domain.Offer, len(offers))}
	for _, o := range offers {
		cp := *o
		r.byID[cp.ID] = &cp
		r.ordered = append(r.ordered, &cp)
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].ID < r.ordered[j].ID })
	return r
}

func (r *offerRepository) GetByID(ctx context.Context, id int64) (*domain.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *o
	return &out, nil
}

func (r *offerRepository) List(ctx context.Context, includeInactive bool) ([]*domain.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make([]*domain.Offer, 0, len(r.ordered))
	for _, o := range r.ordered {
		if includeInactive || o.IsActive {
			out := *o
			result = append(result, &out)
		}
	}
	return result, nil
}
