package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/repository"
)

// cartRepository implements repository.CartRepository for SQLite.
type cartRepository struct {
	db *DB
}

// NewCartRepository creates a new SQLite cart repository.
func NewCartRepository(db *DB) repository.CartRepository {
	return &cartRepository{db: db}
}

const touchCart = `
	INSERT INTO carts (user_id, updated_at) VALUES (?, ?)
	ON CONFLICT (user_id) DO UPDATE SET updated_at = excluded.updated_at`

func (r *cartRepository) EnsureCart(ctx context.Context, userID int64, at time.Time) (time.Time, error) {
	var updatedAt string
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO carts (user_id, updated_at) VALUES (?, ?) ON CONFLICT (user_id) DO NOTHING`,
			userID, formatTime(at))
		if err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT updated_at FROM carts WHERE user_id = ?`, userID).Scan(&updatedAt)
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to ensure cart: %w", err)
	}
	return parseTime(updatedAt)
}

func (r *cartRepository) Lines(ctx context.Context, userID int64) ([]*domain.CartLine, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT user_id, product_id, quantity, added_at
		FROM cart_items
		WHERE user_id = ?
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	defer rows.Close()

	lines := []*domain.CartLine{}
	for rows.Next() {
		var (
			line    domain.CartLine
			addedAt string
		)
		if err := rows.Scan(&line.UserID, &line.ProductID, &line.Quantity, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		if line.AddedAt, err = parseTime(addedAt); err != nil {
			return nil, fmt.Errorf("failed to parse added_at: %w", err)
		}
		lines = append(lines, &line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart lines: %w", err)
	}
	return lines, nil
}

// AddQuantity upserts the line; the increment happens inside the single statement.
func (r *cartRepository) AddQuantity(ctx context.Context, userID, productID int64, delta int, at time.Time) (int, error) {
	var quantity int
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, touchCart, userID, formatTime(at)); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO cart_items (user_id, product_id, quantity, added_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + excluded.quantity
			RETURNING quantity`,
			userID, productID, delta, formatTime(at),
		).Scan(&quantity)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add cart quantity: %w", err)
	}
	return quantity, nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, userID, productID int64, quantity int, at time.Time) error {
	return r.mutateLine(ctx, userID, at,
		`UPDATE cart_items SET quantity = ? WHERE user_id = ? AND product_id = ?`,
		quantity, userID, productID)
}

func (r *cartRepository) RemoveLine(ctx context.Context, userID, productID int64, at time.Time) error {
	return r.mutateLine(ctx, userID, at,
		`DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`,
		userID, productID)
}

// mutateLine runs a single-line statement and touches the cart in one transaction.
// Returns repository.ErrNotFound when the statement affected no rows.
func (r *cartRepository) mutateLine(ctx context.Context, userID int64, at time.Time, query string, args ...any) error {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		_, err = tx.ExecContext(ctx, touchCart, userID, formatTime(at))
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
