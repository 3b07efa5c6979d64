package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Allergens   []string        `json:"allergens,omitempty"`
	IsActive    bool            `json:"is_active"`
}

// DisplayName returns the snapshot name, or "Product #<id>" when the
// snapshot is missing.
func DisplayName(p *Product, productID int64) string {
	if p != nil && p.Name != "" {
		return p.Name
	}
	return "Product #" + strconv.FormatInt(productID, 10)
}
