package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/repository"
)

// cartRepository implements repository.CartRepository.
type cartRepository struct {
	db *DB
}

// NewCartRepository creates a new PostgreSQL cart repository.
func NewCartRepository(db *DB) repository.CartRepository {
	return &cartRepository{db: db}
}

const touchCart = `
	INSERT INTO carts (user_id, updated_at) VALUES ($1, $2)
	ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
`

func (r *cartRepository) EnsureCart(ctx context.Context, userID int64, at time.Time) (time.Time, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	query := `
		INSERT INTO carts (user_id, updated_at) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = carts.user_id
		RETURNING updated_at
	`

	var updatedAt time.Time
	if err := r.db.Pool.QueryRow(ctx, query, userID, at.UTC()).Scan(&updatedAt); err != nil {
		return time.Time{}, fmt.Errorf("failed to ensure cart: %w", err)
	}
	return updatedAt.UTC(), nil
}

func (r *cartRepository) Lines(ctx context.Context, userID int64) ([]*domain.CartLine, error) {
	query := `
		SELECT user_id, product_id, quantity, added_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	defer rows.Close()

	lines := []*domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.UserID, &line.ProductID, &line.Quantity, &line.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		line.AddedAt = line.AddedAt.UTC()
		lines = append(lines, &line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart lines: %w", err)
	}
	return lines, nil
}

// AddQuantity uses INSERT ... ON CONFLICT DO UPDATE for an atomic increment.
func (r *cartRepository) AddQuantity(ctx context.Context, userID, productID int64, delta int, at time.Time) (int, error) {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING quantity
	`

	var quantity int
	err := r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, touchCart, userID, at.UTC()); err != nil {
			return err
		}
		return tx.QueryRow(ctx, query, userID, productID, delta, at.UTC()).Scan(&quantity)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add cart quantity: %w", err)
	}
	return quantity, nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, userID, productID int64, quantity int, at time.Time) error {
	return r.mutateLine(ctx, userID, at,
		`UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND product_id = $2`,
		userID, productID, quantity)
}

func (r *cartRepository) RemoveLine(ctx context.Context, userID, productID int64, at time.Time) error {
	return r.mutateLine(ctx, userID, at,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
}

func (r *cartRepository) mutateLine(ctx context.Context, userID int64, at time.Time, query string, args ...any) error {
	err := r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		_, err = tx.Exec(ctx, touchCart, userID, at.UTC())
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}
	return nil
}
