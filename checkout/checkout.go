// Package checkout turns the draft cart plus fulfillment details into an
// order. Date capacity is the server's business; a 409 from the checkout
// endpoint means the date is booked and its message is shown as is.
package checkout

import (
	"context"
	"errors"
	"log"
	"sync"

	"bakery-storefront/client"
	"bakery-storefront/metrics"
	"bakery-storefront/models"
	"bakery-storefront/orders"
)

var ErrIncomplete = errors.New("checkout: required fields are missing or the cart is empty")

// Form is the fulfillment input collected from the user. Empty Method means
// pickup.
type Form struct {
	FulfillmentDate string
	RequestedTime   string
	Method          models.FulfillmentMethod
	Delivery        models.Delivery
}

func (f Form) method() models.FulfillmentMethod {
	if f.Method == "" {
		return models.FulfillmentPickup
	}
	return f.Method
}

// MissingDeliveryFields lists the required address fields that are empty.
// It is always empty for pickup.
func (f Form) MissingDeliveryFields() []string {
	if f.method() != models.FulfillmentDelivery {
		return nil
	}
	var missing []string
	d := f.Delivery
	for _, field := range []struct{ name, value string }{
		{"name", d.Name},
		{"line1", d.Line1},
		{"city", d.City},
		{"state", d.State},
		{"zip", d.Zip},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// CanPlace reports whether an order may be submitted: a date is set, a
// delivery order has its address, and the cart is not empty. The requested
// time never matters.
func CanPlace(f Form, cartEmpty bool) bool {
	if f.FulfillmentDate == "" {
		return false
	}
	if len(f.MissingDeliveryFields()) > 0 {
		return false
	}
	return !cartEmpty
}

// Request builds the checkout body. requested_time is omitted when empty and
// delivery is sent only for delivery orders.
func (f Form) Request() models.CheckoutRequest {
	req := models.CheckoutRequest{
		FulfillmentDate:   f.FulfillmentDate,
		RequestedTime:     f.RequestedTime,
		FulfillmentMethod: f.method(),
	}
	if req.FulfillmentMethod == models.FulfillmentDelivery {
		d := models.Delivery{
			Name:  f.Delivery.Name,
			Line1: f.Delivery.Line1,
			Line2: f.Delivery.Line2,
			City:  f.Delivery.City,
			State: f.Delivery.State,
			Zip:   f.Delivery.Zip,
		}
		req.Delivery = &d
	}
	return req
}

type API interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Cart is the part of the cart aggregate checkout depends on.
type Cart interface {
	Empty() bool
	Load(ctx context.Context) error
}

type Orchestrator struct {
	api  API
	cart Cart

	mu  sync.Mutex
	err string
}

func New(api API, cart Cart) *Orchestrator {
	return &Orchestrator{api: api, cart: cart}
}

// CanPlace evaluates f against the current cart.
func (o *Orchestrator) CanPlace(f Form) bool {
	return CanPlace(f, o.cart.Empty())
}

// Result is a placed order and the confirmation view to navigate to.
type Result struct {
	Order        models.Order
	Confirmation string
}

// Place submits the order. On failure the server message is kept as Err and
// the cart is left untouched; on success the cart is reloaded.
func (o *Orchestrator) Place(ctx context.Context, f Form) (*Result, error) {
	if !o.CanPlace(f) {
		o.setErr("Please complete the required fields")
		return nil, ErrIncomplete
	}

	var order models.Order
	err := o.api.Post(ctx, "/checkout", f.Request(), &order)
	metrics.RecordOperation("checkout", err)
	if err != nil {
		o.setErr(client.Message(err, "Checkout failed"))
		return nil, err
	}
	o.setErr("")

	if err := o.cart.Load(ctx); err != nil {
		log.Printf("Failed to reload cart after order %d: %v", order.ID, err)
	}
	return &Result{Order: order, Confirmation: orders.ConfirmationPath(order.ID)}, nil
}

// IsDateBooked reports whether err is the server's date-capacity conflict.
func IsDateBooked(err error) bool {
	return client.IsConflict(err)
}

func (o *Orchestrator) Err() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *Orchestrator) setErr(msg string) {
	o.mu.Lock()
	o.err = msg
	o.mu.Unlock()
}
