// Package repository is the in-memory data store behind the development
// API server.
package repository

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"bakery-storefront/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrEmptyCart       = errors.New("your cart is empty")
	ErrDateBooked      = errors.New("that date is already booked")
	ErrNotInCart       = errors.New("item not in cart")
	ErrInactiveProduct = errors.New("product not found or inactive")
)

type UserRecord struct {
	models.User
	PasswordHash []byte
}

type cartLine struct {
	id        int64
	productID int64
	qty       int
}

type cartRecord struct {
	id        int64
	userID    int64
	lines     []cartLine
	updatedAt time.Time
}

type CheckoutInput struct {
	FulfillmentDate string
	RequestedTime   *string
	Method          models.FulfillmentMethod
	Delivery        *models.Delivery
}

type OrderFilter struct {
	UserID  *int64 // nil lists every user's orders
	Status  models.OrderStatus
	Page    int
	PerPage int
}

// MemoryStore keeps users, products, draft carts and orders. All methods
// are safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	nextUserID    int64
	nextProductID int64
	nextCartID    int64
	nextLineID    int64
	nextOrderID   int64
	nextItemID    int64

	users        map[int64]*UserRecord
	usersByEmail map[string]int64
	products     map[int64]models.Product
	carts        map[int64]*cartRecord // draft cart per user
	orders       map[int64]models.Order

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextUserID:    1,
		nextProductID: 1,
		nextCartID:    1,
		nextLineID:    1,
		nextOrderID:   1,
		nextItemID:    1,
		users:         make(map[int64]*UserRecord),
		usersByEmail:  make(map[string]int64),
		products:      make(map[int64]models.Product),
		carts:         make(map[int64]*cartRecord),
		orders:        make(map[int64]models.Order),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Users

func (m *MemoryStore) CreateUser(email string, passwordHash []byte, role string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = normalizeEmail(email)
	if _, ok := m.usersByEmail[email]; ok {
		return models.User{}, ErrEmailTaken
	}
	u := &UserRecord{
		User: models.User{
			ID:        m.nextUserID,
			Email:     email,
			Role:      role,
			CreatedAt: m.now().Format(time.RFC3339),
		},
		PasswordHash: passwordHash,
	}
	m.nextUserID++
	m.users[u.ID] = u
	m.usersByEmail[email] = u.ID
	return u.User, nil
}

func (m *MemoryStore) UserByEmail(email string) (*UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usersByEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *MemoryStore) UserByID(id int64) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u.User, nil
}

// Products

func (m *MemoryStore) CreateProduct(p models.Product) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextProductID
	m.nextProductID++
	m.products[p.ID] = p
	return p
}

// SetProductPrice changes a catalog price; existing orders keep their snapshot.
func (m *MemoryStore) SetProductPrice(id int64, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Price = price
	m.products[id] = p
	return nil
}

// ListProducts returns active products ordered by name.
func (m *MemoryStore) ListProducts() []models.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *MemoryStore) GetProduct(id int64) (models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok || !p.IsActive {
		return models.Product{}, ErrInactiveProduct
	}
	return p, nil
}

// Carts

func (m *MemoryStore) draftCart(userID int64) *cartRecord {
	c, ok := m.carts[userID]
	if !ok {
		c = &cartRecord{id: m.nextCartID, userID: userID, updatedAt: m.now()}
		m.nextCartID++
		m.carts[userID] = c
	}
	return c
}

func (m *MemoryStore) cartModel(c *cartRecord) models.Cart {
	out := models.Cart{
		ID:        c.id,
		UserID:    c.userID,
		Status:    models.CartStatusDraft,
		Items:     make([]models.CartLine, 0, len(c.lines)),
		Total:     decimal.Zero,
		UpdatedAt: c.updatedAt.Format(time.RFC3339),
	}
	for _, l := range c.lines {
		line := models.CartLine{ID: l.id, CartID: c.id, ProductID: l.productID, Qty: l.qty}
		if p, ok := m.products[l.productID]; ok {
			cp := p
			line.Product = &cp
			line.LineTotal = p.Price.Mul(decimal.NewFromInt(int64(l.qty)))
		}
		out.Total = out.Total.Add(line.LineTotal)
		out.Items = append(out.Items, line)
	}
	return out
}

func (m *MemoryStore) Cart(userID int64) models.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cartModel(m.draftCart(userID))
}

// SetCartItem adds or updates a line; qty <= 0 removes it.
func (m *MemoryStore) SetCartItem(userID, productID int64, qty int) (models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[productID]; !ok || !p.IsActive {
		return models.Cart{}, ErrInactiveProduct
	}
	c := m.draftCart(userID)
	idx := -1
	for i, l := range c.lines {
		if l.productID == productID {
			idx = i
			break
		}
	}
	switch {
	case qty <= 0 && idx >= 0:
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	case qty <= 0:
	case idx >= 0:
		c.lines[idx].qty = qty
	default:
		c.lines = append(c.lines, cartLine{id: m.nextLineID, productID: productID, qty: qty})
		m.nextLineID++
	}
	c.updatedAt = m.now()
	return m.cartModel(c), nil
}

func (m *MemoryStore) RemoveCartItem(userID, productID int64) (models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.draftCart(userID)
	for i, l := range c.lines {
		if l.productID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			c.updatedAt = m.now()
			return m.cartModel(c), nil
		}
	}
	return models.Cart{}, ErrNotInCart
}

// Orders

func (m *MemoryStore) dateBooked(date string) bool {
	for _, o := range m.orders {
		if o.FulfillmentDate == date && (o.Status == models.OrderStatusPlaced || o.Status == models.OrderStatusComplete) {
			return true
		}
	}
	return false
}

// Checkout turns the user's draft cart into an order. One active order
// (placed or complete) is allowed per fulfillment date.
func (m *MemoryStore) Checkout(userID int64, in CheckoutInput) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.draftCart(userID)
	if len(c.lines) == 0 {
		return models.Order{}, ErrEmptyCart
	}
	if m.dateBooked(in.FulfillmentDate) {
		return models.Order{}, ErrDateBooked
	}

	o := models.Order{
		ID:                m.nextOrderID,
		UserID:            userID,
		Status:            models.OrderStatusPlaced,
		FulfillmentDate:   in.FulfillmentDate,
		RequestedTime:     in.RequestedTime,
		FulfillmentMethod: in.Method,
		Items:             make([]models.OrderItem, 0, len(c.lines)),
		Total:             decimal.Zero,
		CreatedAt:         m.now(),
	}
	if in.Method == models.FulfillmentDelivery && in.Delivery != nil {
		d := *in.Delivery
		o.Delivery = &d
	}
	for _, l := range c.lines {
		p, ok := m.products[l.productID]
		if !ok || !p.IsActive {
			return models.Order{}, ErrInactiveProduct
		}
		snapshot := p
		item := models.OrderItem{
			ID:            m.nextItemID,
			OrderID:       o.ID,
			ProductID:     l.productID,
			Qty:           l.qty,
			PriceSnapshot: p.Price,
			LineTotal:     p.Price.Mul(decimal.NewFromInt(int64(l.qty))),
			Product:       &snapshot,
		}
		m.nextItemID++
		o.Total = o.Total.Add(item.LineTotal)
		o.Items = append(o.Items, item)
	}
	m.nextOrderID++
	m.orders[o.ID] = o

	// the checked-out cart is replaced by a fresh draft
	delete(m.carts, userID)
	m.draftCart(userID)
	return copyOrder(o), nil
}

func (m *MemoryStore) GetOrder(id int64) (models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return models.Order{}, ErrNotFound
	}
	return copyOrder(o), nil
}

// ListOrders returns one page of matching orders, newest first, and the
// number of matches across all pages.
func (m *MemoryStore) ListOrders(f OrderFilter) ([]models.Order, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]models.Order, 0)
	for _, o := range m.orders {
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := (f.Page - 1) * f.PerPage
	if start < 0 || start >= total {
		return []models.Order{}, total
	}
	end := start + f.PerPage
	if end > total {
		end = total
	}
	out := make([]models.Order, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, copyOrder(o))
	}
	return out, total
}

func (m *MemoryStore) UpdateOrderStatus(id int64, status models.OrderStatus) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return models.Order{}, ErrNotFound
	}
	o.Status = status
	m.orders[id] = o
	return copyOrder(o), nil
}

func copyOrder(o models.Order) models.Order {
	cp := o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	if o.Delivery != nil {
		d := *o.Delivery
		cp.Delivery = &d
	}
	return cp
}
