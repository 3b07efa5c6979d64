package orders

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"bakery-storefront/client"
	"bakery-storefront/metrics"
	"bakery-storefront/models"
)

var (
	ErrInvalidStatus   = errors.New("orders: unknown status")
	ErrAlreadyInStatus = errors.New("orders: order is already in that status")
	ErrSuperseded      = errors.New("orders: response superseded by a newer request")
)

// RefreshError reports a status change the server applied when the view
// could not reload afterwards. The change itself succeeded.
type RefreshError struct {
	OrderID int64
	Err     error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("orders: order %d updated but refresh failed: %v", e.OrderID, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

type API interface {
	Getter
	Patch(ctx context.Context, path string, body, out any) error
}

// CanTransition reports whether the admin action moving o to target is
// enabled. Only complete and canceled are actions.
func CanTransition(o models.Order, target models.OrderStatus) bool {
	if target != models.OrderStatusComplete && target != models.OrderStatusCanceled {
		return false
	}
	return o.Status != target
}

// AdminView lists every order, optionally filtered by status, with an
// optional open detail. List and detail responses are sequenced separately
// and stale ones are dropped.
type AdminView struct {
	api API

	mu        sync.Mutex
	filter    models.OrderStatus
	list      models.OrderList
	detail    *models.Order
	err       string
	listSeq   uint64
	detailSeq uint64
}

func NewAdminView(api API) *AdminView {
	return &AdminView{api: api}
}

// SetFilter changes the status filter ("" for all) and re-fetches.
func (v *AdminView) SetFilter(ctx context.Context, status models.OrderStatus) error {
	if status != "" && !status.Valid() {
		return ErrInvalidStatus
	}
	v.mu.Lock()
	v.filter = status
	v.mu.Unlock()
	return v.Load(ctx)
}

func (v *AdminView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.listSeq++
	seq := v.listSeq
	path := "/orders/"
	if v.filter != "" {
		path += "?" + url.Values{"status": {string(v.filter)}}.Encode()
	}
	v.mu.Unlock()

	var list models.OrderList
	err := v.api.Get(ctx, path, &list)
	metrics.RecordOperation("orders_list", err)

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.listSeq {
		return ErrSuperseded
	}
	if err != nil {
		v.err = client.Message(err, "Failed to load orders")
		return err
	}
	v.list = list
	v.err = ""
	return nil
}

// Open loads the detail of order id and keeps it open until Close.
func (v *AdminView) Open(ctx context.Context, id int64) error {
	v.mu.Lock()
	v.detailSeq++
	seq := v.detailSeq
	v.mu.Unlock()

	o, err := Get(ctx, v.api, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.detailSeq {
		return ErrSuperseded
	}
	if err != nil {
		v.err = client.Message(err, "Failed to load order details")
		if v.detail != nil && v.detail.ID != id {
			v.detail = nil
		}
		return err
	}
	v.detail = o
	return nil
}

func (v *AdminView) Close() {
	v.mu.Lock()
	v.detailSeq++
	v.detail = nil
	v.mu.Unlock()
}

func (v *AdminView) MarkComplete(ctx context.Context, id int64) error {
	return v.transition(ctx, id, models.OrderStatusComplete)
}

func (v *AdminView) Cancel(ctx context.Context, id int64) error {
	return v.transition(ctx, id, models.OrderStatusCanceled)
}

func (v *AdminView) transition(ctx context.Context, id int64, target models.OrderStatus) error {
	if o, ok := v.known(id); ok && !CanTransition(o, target) {
		return ErrAlreadyInStatus
	}

	path := orderPath(id)
	err := v.api.Patch(ctx, "/admin"+path+"/status", models.StatusUpdateRequest{Status: target}, nil)
	metrics.RecordOperation("admin_update_status", err)
	if err != nil {
		v.mu.Lock()
		v.err = client.Message(err, "Update failed")
		v.mu.Unlock()
		return err
	}
	if err := v.refresh(ctx, id); err != nil {
		return &RefreshError{OrderID: id, Err: err}
	}
	return nil
}

// HandleOrderEvent refreshes the view after an order changed elsewhere.
func (v *AdminView) HandleOrderEvent(ctx context.Context, event models.OrderEvent) error {
	return v.refresh(ctx, event.OrderID)
}

// refresh reloads the list and, when order id is the open detail, the
// detail too. A superseded reload is not a failure: the newer request owns
// the view.
func (v *AdminView) refresh(ctx context.Context, id int64) error {
	err := ignoreSuperseded(v.Load(ctx))
	v.mu.Lock()
	open := v.detail != nil && v.detail.ID == id
	v.mu.Unlock()
	if open {
		err = errors.Join(err, ignoreSuperseded(v.Open(ctx, id)))
	}
	return err
}

func ignoreSuperseded(err error) error {
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	return err
}

// known returns the freshest copy of order id the view holds.
func (v *AdminView) known(id int64) (models.Order, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.detail != nil && v.detail.ID == id {
		return *v.detail, true
	}
	for _, o := range v.list.Items {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

func (v *AdminView) Orders() []models.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Order(nil), v.list.Items...)
}

// Detail returns the open order, or nil.
func (v *AdminView) Detail() *models.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.detail == nil {
		return nil
	}
	o := *v.detail
	return &o
}

func (v *AdminView) Filter() models.OrderStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

func (v *AdminView) Err() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Reset drops all state and any response still in flight.
func (v *AdminView) Reset() {
	v.mu.Lock()
	v.listSeq++
	v.detailSeq++
	v.filter = ""
	v.list = models.OrderList{}
	v.detail = nil
	v.err = ""
	v.mu.Unlock()
}
