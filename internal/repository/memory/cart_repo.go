package memory

import (
	"context"
	"sync"
	"time"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/repository"
)

// cartRepository implements repository.CartRepository in memory.
// The outer mutex guards the carts map; each cart has its own mutex so
// different users never contend on line updates.
type cartRepository struct {
	mu    sync.Mutex
	carts map[int64]*cartState
}

// cartState is one user's cart. lines keeps insertion order.
type cartState struct {
	mu        sync.Mutex
	lines     []*domain.CartLine
	updatedAt time.Time
}

// NewCartRepository creates an empty in-memory cart repository.
func NewCartRepository() repository.CartRepository {
	return &cartRepository{carts: make(map[int64]*cartState)}
}

// cart returns the state for userID, creating it stamped with at when missing.
func (r *cartRepository) cart(userID int64, at time.Time) *cartState {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[userID]
	if !ok {
		c = &cartState{updatedAt: at.UTC()}
		r.carts[userID] = c
	}
	return c
}

func (c *cartState) find(productID int64) (int, *domain.CartLine) {
	for i, line := range c.lines {
		if line.ProductID == productID {
			return i, line
		}
	}
	return -1, nil
}

func (r *cartRepository) EnsureCart(ctx context.Context, userID int64, at time.Time) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	c := r.cart(userID, at)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt, nil
}

func (r *cartRepository) Lines(ctx context.Context, userID int64) ([]*domain.CartLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	c, ok := r.carts[userID]
	r.mu.Unlock()
	if !ok {
		return []*domain.CartLine{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]*domain.CartLine, 0, len(c.lines))
	for _, line := range c.lines {
		cp := *line
		lines = append(lines, &cp)
	}
	return lines, nil
}

func (r *cartRepository) AddQuantity(ctx context.Context, userID, productID int64, delta int, at time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c := r.cart(userID, at)

	c.mu.Lock()
	defer c.mu.Unlock()

	at = at.UTC()
	if _, line := c.find(productID); line != nil {
		line.Quantity += delta
		c.updatedAt = at
		return line.Quantity, nil
	}

	c.lines = append(c.lines, &domain.CartLine{
		UserID:    userID,
		ProductID: productID,
		Quantity:  delta,
		AddedAt:   at,
	})
	c.updatedAt = at
	return delta, nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, userID, productID int64, quantity int, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := r.cart(userID, at)

	c.mu.Lock()
	defer c.mu.Unlock()

	_, line := c.find(productID)
	if line == nil {
		return repository.ErrNotFound
	}
	line.Quantity = quantity
	c.updatedAt = at.UTC()
	return nil
}

func (r *cartRepository) RemoveLine(ctx context.Context, userID, productID int64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := r.cart(userID, at)

	c.mu.Lock()
	defer c.mu.Unlock()

	i, _ := c.find(productID)
	if i < 0 {
		return repository.ErrNotFound
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.updatedAt = at.UTC()
	return nil
}
