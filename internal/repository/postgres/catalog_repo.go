package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/repository"
)

// NUMERIC columns are read as text so decimal keeps the exact stored value.
const productColumns = `id, name, description, price::text, unit, category, is_available`

// productRepository implements repository.ProductRepository.
type productRepository struct {
	db *DB
}

// NewProductRepository creates a new PostgreSQL product repository.
func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
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
		args = append(args, strings.ToLower(c))
		where = append(where, fmt.Sprintf(`LOWER(category) = $%d`, len(args)))
	}
	if filter.AvailableOnly {
		where = append(where, `is_available`)
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
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id`, ids)
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
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

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Unit, &p.Category, &p.IsAvailable); err != nil {
		return nil, err
	}
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, err)
	}
	return &p, nil
}

const offerColumns = `id, title, description, old_price::text, new_price::text, product_id, is_active`

// offerRepository implements repository.OfferRepository.
type offerRepository struct {
	db *DB
}

// NewOfferRepository creates a new PostgreSQL offer repository.
func NewOfferRepository(db *DB) repository.OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) GetByID(ctx context.Context, id int64) (*domain.Offer, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
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
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`

	rows, err := r.db.Pool.Query(ctx, query)
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

func scanOffer(row pgx.Row) (*domain.Offer, error) {
	var (
		o                  domain.Offer
		oldPrice, newPrice string
	)
	if err := row.Scan(&o.ID, &o.Title, &o.Description, &oldPrice, &newPrice, &o.ProductID, &o.IsActive); err != nil {
		return nil, err
	}
	var err error
	if o.OldPrice, err = decimal.NewFromString(oldPrice); err != nil {
		return nil, fmt.Errorf("invalid old_price %q: %w", oldPrice, err)
	}
	if o.NewPrice, err = decimal.NewFromString(newPrice); err != nil {
		return nil, fmt.Errorf("invalid new_price %q: %w", newPrice, err)
	}
	return &o, nil
}
