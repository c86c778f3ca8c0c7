package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/repository"
)

const productColumns = `id, name, description, price, unit, category, is_available`

// productRepository implements repository.ProductRepository for SQLite.
type productRepository struct {
	db *DB
}

// NewProductRepository creates a new SQLite product repository.
func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if c := strings.TrimSpace(filter.Category); c != "" {
		where = append(where, `category = ? COLLATE NOCASE`)
		args = append(args, c)
	}
	if filter.AvailableOnly {
		where = append(where, `is_available = 1`)
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY id`

	return r.query(ctx, query, args...)
}

func (r *productRepository) ListByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	return r.query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id IN (`+placeholders+`) ORDER BY id`,
		args...)
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p         domain.Product
		available int
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Unit, &p.Category, &available); err != nil {
		return nil, err
	}
	p.IsAvailable = available != 0
	return &p, nil
}

// offerRepository implements repository.OfferRepository for SQLite.
type offerRepository struct {
	db *DB
}

// NewOfferRepository creates a new SQLite offer repository.
func NewOfferRepository(db *DB) repository.OfferRepository {
	return &offerRepository{db: db}
}

const offerColumns = `id, title, description, old_price, new_price, product_id, is_active`

func (r *offerRepository) GetByID(ctx context.Context, id int64) (*domain.Offer, error) {
	row := r.db.db.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = ?`, id)
	o, err := scanOffer(row)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return o, nil
}

func (r *offerRepository) List(ctx context.Context, includeInactive bool) ([]*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	offers := []*domain.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offers: %w", err)
	}
	return offers, nil
}

func scanOffer(row rowScanner) (*domain.Offer, error) {
	var (
		o         domain.Offer
		productID *int64
		active    int
	)
	if err := row.Scan(&o.ID, &o.Title, &o.Description, &o.OldPrice, &o.NewPrice, &productID, &active); err != nil {
		return nil, err
	}
	o.ProductID = productID
	o.IsActive = active != 0
	return &o, nil
}
