// Package orders holds the customer and admin order views. Lists are shown
// in the order the server returns them.
package orders

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"bakery-storefront/client"
	"bakery-storefront/metrics"
	"bakery-storefront/models"
)

// PreviewLimit is how many lines an order summary shows.
const PreviewLimit = 3

type Getter interface {
	Get(ctx context.Context, path string, out any) error
}

// ConfirmationPath is the view a newly placed order navigates to.
func ConfirmationPath(id int64) string {
	return "/order-confirmation/" + strconv.FormatInt(id, 10)
}

func orderPath(id int64) string {
	return "/orders/" + strconv.FormatInt(id, 10)
}

// Summary is one row of the customer's order list.
type Summary struct {
	Order        models.Order
	Preview      []models.OrderItem
	More         int // lines beyond the preview
	Confirmation string
}

func Summarize(o models.Order) Summary {
	s := Summary{Order: o, Confirmation: ConfirmationPath(o.ID)}
	if len(o.Items) > PreviewLimit {
		s.Preview = o.Items[:PreviewLimit]
		s.More = len(o.Items) - PreviewLimit
	} else {
		s.Preview = o.Items
	}
	return s
}

// Get loads a single order for the confirmation view.
func Get(ctx context.Context, api Getter, id int64) (*models.Order, error) {
	var o models.Order
	err := api.Get(ctx, orderPath(id), &o)
	metrics.RecordOperation("order_get", err)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &o, nil
}

// CustomerView lists the caller's own orders.
type CustomerView struct {
	api Getter

	mu   sync.Mutex
	list models.OrderList
	err  string
}

func NewCustomerView(api Getter) *CustomerView {
	return &CustomerView{api: api}
}

func (v *CustomerView) Load(ctx context.Context) error {
	var list models.OrderList
	err := v.api.Get(ctx, "/orders/", &list)
	metrics.RecordOperation("orders_list", err)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.err = client.Message(err, "Failed to load orders")
		return err
	}
	v.list = list
	v.err = ""
	return nil
}

func (v *CustomerView) Orders() []models.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Order(nil), v.list.Items...)
}

func (v *CustomerView) Summaries() []Summary {
	orders := v.Orders()
	out := make([]Summary, 0, len(orders))
	for _, o := range orders {
		out = append(out, Summarize(o))
	}
	return out
}

func (v *CustomerView) Err() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *CustomerView) Reset() {
	v.mu.Lock()
	v.list = models.OrderList{}
	v.err = ""
	v.mu.Unlock()
}
