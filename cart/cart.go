// Package cart is the client-side view of the user's draft cart. Every
// mutation round-trips to the API and the response replaces the whole local
// cart; nothing is applied optimistically.
package cart

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"bakery-storefront/client"
	"bakery-storefront/metrics"
	"bakery-storefront/models"

	"github.com/shopspring/decimal"
)

const MaxQty = 999

var (
	ErrNoSession       = errors.New("cart: no active session")
	ErrInvalidQuantity = errors.New("cart: quantity must be a whole number")
	// ErrSuperseded is returned when a newer cart request was issued while
	// this one was in flight; its response is discarded.
	ErrSuperseded = errors.New("cart: response superseded by a newer request")
)

type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Session reports whether requests will carry a credential.
type Session interface {
	Authenticated() bool
}

type Aggregate struct {
	api     API
	session Session

	mu   sync.Mutex
	cart models.Cart
	err  string
	seq  uint64
}

func New(api API, session Session) *Aggregate {
	return &Aggregate{api: api, session: session}
}

// Clamp bounds qty to [0, MaxQty].
func Clamp(qty int) int {
	return min(max(qty, 0), MaxQty)
}

// Subtotal sums the server-computed line totals. A missing line total counts
// as zero.
func Subtotal(items []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range items {
		total = total.Add(l.LineTotal)
	}
	return total
}

// Load fetches the current cart. Without a session it does nothing.
func (a *Aggregate) Load(ctx context.Context) error {
	if !a.session.Authenticated() {
		return nil
	}
	seq := a.begin()
	var c models.Cart
	err := a.api.Get(ctx, "/cart/", &c)
	metrics.RecordOperation("cart_load", err)
	return a.apply(seq, c, err, "Failed to load cart")
}

// SetQuantity sets the line for productID to qty, clamped to [0, MaxQty].
// Zero removes the line.
func (a *Aggregate) SetQuantity(ctx context.Context, productID int64, qty int) error {
	if !a.session.Authenticated() {
		return ErrNoSession
	}
	seq := a.begin()
	var c models.Cart
	err := a.api.Post(ctx, "/cart/items", models.CartItemRequest{ProductID: productID, Qty: Clamp(qty)}, &c)
	metrics.RecordOperation("cart_set_qty", err)
	return a.apply(seq, c, err, "Could not update item")
}

// SetQuantityInput parses user-entered text and calls SetQuantity. Input that
// is not a whole number is rejected without a request; numbers too large for
// an int are clamped like any other.
func (a *Aggregate) SetQuantityInput(ctx context.Context, productID int64, raw string) error {
	raw = strings.TrimSpace(raw)
	qty, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		qty, err = MaxQty, nil
		if strings.HasPrefix(raw, "-") {
			qty = 0
		}
	}
	if err != nil {
		a.mu.Lock()
		a.err = "Quantity must be a number"
		a.mu.Unlock()
		return ErrInvalidQuantity
	}
	return a.SetQuantity(ctx, productID, qty)
}

func (a *Aggregate) RemoveItem(ctx context.Context, productID int64) error {
	if !a.session.Authenticated() {
		return ErrNoSession
	}
	seq := a.begin()
	var c models.Cart
	err := a.api.Delete(ctx, "/cart/items/"+strconv.FormatInt(productID, 10), &c)
	metrics.RecordOperation("cart_remove", err)
	return a.apply(seq, c, err, "Could not remove item")
}

// Reset drops the local cart and discards any response still in flight.
func (a *Aggregate) Reset() {
	a.mu.Lock()
	a.seq++
	a.cart = models.Cart{}
	a.err = ""
	a.mu.Unlock()
}

func (a *Aggregate) begin() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	return a.seq
}

func (a *Aggregate) apply(seq uint64, c models.Cart, err error, fallback string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if seq != a.seq {
		return ErrSuperseded
	}
	if err != nil {
		a.err = client.Message(err, fallback)
		return err
	}
	a.cart = c
	a.err = ""
	return nil
}

// Snapshot returns a copy of the last cart the server returned.
func (a *Aggregate) Snapshot() models.Cart {
	a.mu.Lock()
	defer a.mu.Unlock()
	c := a.cart
	c.Items = append([]models.CartLine(nil), a.cart.Items...)
	return c
}

func (a *Aggregate) Items() []models.CartLine {
	return a.Snapshot().Items
}

func (a *Aggregate) Subtotal() decimal.Decimal {
	return Subtotal(a.Items())
}

func (a *Aggregate) Empty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cart.Items) == 0
}

// Err is the message of the last failed operation, or "".
func (a *Aggregate) Err() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
