package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced   OrderStatus = "placed"
	OrderStatusComplete OrderStatus = "complete"
	OrderStatusCanceled OrderStatus = "canceled"
)

// Valid reports whether s is one of the three order states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusComplete, OrderStatusCanceled:
		return true
	}
	return false
}

type FulfillmentMethod string

const (
	FulfillmentPickup   FulfillmentMethod = "pickup"
	FulfillmentDelivery FulfillmentMethod = "delivery"
)

func (m FulfillmentMethod) Valid() bool {
	return m == FulfillmentPickup || m == FulfillmentDelivery
}

// Delivery is the shipping address of a delivery order. Line2 is optional.
type Delivery struct {
	Name  string `json:"name"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

type Order struct {
	ID                int64             `json:"id"`
	UserID            int64             `json:"user_id"`
	Status            OrderStatus       `json:"status"`
	FulfillmentDate   string            `json:"fulfillment_date"`
	RequestedTime     *string           `json:"requested_time"`
	FulfillmentMethod FulfillmentMethod `json:"fulfillment_method"`
	Delivery          *Delivery         `json:"delivery"`
	Items             []OrderItem       `json:"items"`
	Total             decimal.Decimal   `json:"total"`
	CreatedAt         time.Time         `json:"created_at"`
}

// OrderItem is a line of an order. PriceSnapshot is the product price at
// checkout time, so historical orders do not move with the catalog.
type OrderItem struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	ProductID     int64           `json:"product_id"`
	Qty           int             `json:"qty"`
	PriceSnapshot decimal.Decimal `json:"price_snapshot"`
	LineTotal     decimal.Decimal `json:"line_total"`
	Product       *Product        `json:"product"`
}

type OrderList struct {
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
	Total   int     `json:"total"`
	Items   []Order `json:"items"`
}

type CheckoutRequest struct {
	FulfillmentDate   string            `json:"fulfillment_date"`
	RequestedTime     string            `json:"requested_time,omitempty"`
	FulfillmentMethod FulfillmentMethod `json:"fulfillment_method"`
	Delivery          *Delivery         `json:"delivery,omitempty"`
}

type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}

const (
	OrderEventCreated       = "created"
	OrderEventStatusUpdated = "status_updated"
)

type OrderEvent struct {
	OrderID  int64           `json:"order_id"`
	UserID   int64           `json:"user_id"`
	Type     string          `json:"type"` // created, status_updated
	Status   OrderStatus     `json:"status"`
	Total    decimal.Decimal `json:"total"`
	Occurred time.Time       `json:"occurred"`
}

// NewOrderEvent builds an event describing o's current state.
func NewOrderEvent(o Order, eventType string) OrderEvent {
	return OrderEvent{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Type:     eventType,
		Status:   o.Status,
		Total:    o.Total,
		Occurred: time.Now().UTC(),
	}
}
