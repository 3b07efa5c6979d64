package models

import (
	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartStatusDraft      CartStatus = "draft"
	CartStatusCheckedOut CartStatus = "checked_out"
)

type Cart struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Status    CartStatus      `json:"status"`
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

// CartLine is one product/quantity pairing. LineTotal is computed by the
// server; a missing value decodes as zero.
type CartLine struct {
	ID        int64           `json:"id"`
	CartID    int64           `json:"cart_id"`
	ProductID int64           `json:"product_id"`
	Qty       int             `json:"qty"`
	Product   *Product        `json:"product"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}
