package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry that can be put into a cart.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	IsAvailable bool            `json:"is_available"`
}

// Offer is a promotional price pair. Offers are not consumed by the cart.
type Offer struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	OldPrice    decimal.Decimal `json:"old_price"`
	NewPrice    decimal.Decimal `json:"new_price"`
	ProductID   *int64          `json:"product_id,omitempty"`
	IsActive    bool            `json:"is_active"`
}

// ProductFilter narrows a product listing. The zero value matches everything.
type ProductFilter struct {
	// Category is compared case-insensitively; empty means any category.
	Category string

	// AvailableOnly drops products with IsAvailable == false.
	AvailableOnly bool
}

// Matches reports whether p passes the filter.
func (f ProductFilter) Matches(p *Product) bool {
	if f.AvailableOnly && !p.IsAvailable {
		return false
	}
	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(c, p.Category) {
		return false
	}
	return true
}

// SeedProducts returns the initial catalog.
func SeedProducts() []*Product {
	return []*Product{
		{ID: 1, Name: "Fresh Red Apples", Description: "Crisp and juicy red apples, perfect for snacks and desserts", Price: decimal.RequireFromString("2.49"), Unit: "kg", Category: "fruits", IsAvailable: true},
		{ID: 2, Name: "Whole Milk 1L", Description: "Rich and creamy whole milk, ideal for coffee and cereal", Price: decimal.RequireFromString("1.39"), Unit: "bottle", Category: "dairy", IsAvailable: true},
		{ID: 3, Name: "White Bread", Description: "Freshly baked white bread, 500g loaf", Price: decimal.RequireFromString("1.99"), Unit: "item", Category: "bakery", IsAvailable: true},
		{ID: 4, Name: "Free Range Eggs", Description: "12 large free-range eggs", Price: decimal.RequireFromString("3.29"), Unit: "item", Category: "dairy", IsAvailable: true},
		{ID: 5, Name: "Potato Chips", Description: "Crispy salted potato chips, 150g bag", Price: decimal.RequireFromString("0.99"), Unit: "item", Category: "snacks", IsAvailable: true},
		{ID: 6, Name: "Orange Juice", Description: "Fresh orange juice, 1L bottle", Price: decimal.RequireFromString("2.99"), Unit: "bottle", Category: "drinks", IsAvailable: true},
	}
}

// SeedOffers returns the initial promotions.
func SeedOffers() []*Offer {
	return []*Offer{
		{ID: 1, Title: "Organic Bananas", Description: "This week only - perfectly ripe and full of flavor.", OldPrice: decimal.RequireFromString("1.99"), NewPrice: decimal.RequireFromString("1.29"), IsActive: true},
		{ID: 2, Title: "Olive Oil", Description: "Premium extra virgin olive oil - limited stock.", OldPrice: decimal.RequireFromString("12.50"), NewPrice: decimal.RequireFromString("9.99"), IsActive: true},
		{ID: 3, Title: "Breakfast Bundle", Description: "Milk + eggs + bread combo discount.", OldPrice: decimal.RequireFromString("10.49"), NewPrice: decimal.RequireFromString("7.99"), IsActive: true},
	}
}
