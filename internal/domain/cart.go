package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxItemQuantity is the largest quantity accepted by a single add or set request.
const MaxItemQuantity = 999

// moneyPlaces is the number of fractional digits kept for amounts.
const moneyPlaces = 2

// CartLine is the quantity of one product in one user's cart.
// There is at most one line per (UserID, ProductID).
type CartLine struct {
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// CartItemView is a priced cart line as shown to the cart owner.
type CartItemView struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartSummary is derived on every read from the current lines and catalog prices.
type CartSummary struct {
	UserID    int64           `json:"user_id"`
	Username  string          `json:"username"`
	Items     []CartItemView  `json:"items"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Line returns the item for productID, if present.
func (s *CartSummary) Line(productID int64) (CartItemView, bool) {
	for _, item := range s.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItemView{}, false
}

// ValidateQuantity checks the per-request quantity bounds.
func ValidateQuantity(quantity int) error {
	if quantity < 1 || quantity > MaxItemQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

// LineTotal returns price * quantity rounded to cents.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(moneyPlaces)
}

// RoundMoney rounds an amount to cents.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(moneyPlaces)
}

// BuildCartSummary prices lines against the given catalog snapshot.
// Lines whose product is missing from products are skipped.
func BuildCartSummary(owner Identity, lines []*CartLine, products map[int64]*Product, updatedAt time.Time) *CartSummary {
	summary := &CartSummary{
		UserID:    owner.UserID,
		Username:  owner.Username,
		Items:     make([]CartItemView, 0, len(lines)),
		Total:     decimal.Zero,
		UpdatedAt: updatedAt,
	}

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			continue
		}
		lineTotal := LineTotal(product.Price, line.Quantity)
		summary.Items = append(summary.Items, CartItemView{
			ProductID: product.ID,
			Name:      product.Name,
			Unit:      product.Unit,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
		})
		summary.Total = summary.Total.Add(lineTotal)
	}

	summary.Total = RoundMoney(summary.Total)
	return summary
}
