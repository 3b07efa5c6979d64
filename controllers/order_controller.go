package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bakery-storefront/middlewares"
	"bakery-storefront/models"
	"bakery-storefront/repository"

	"github.com/gin-gonic/gin"
)

const (
	defaultPerPage = 10
	maxPerPage     = 50
)

// EventPublisher receives order lifecycle events. Publishing is best effort:
// a failure is logged and never fails the request.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// SetPublisher attaches p to the server; nil disables events.
func (s *Server) SetPublisher(p EventPublisher) {
	s.publisher = p
}

func (s *Server) publish(c *gin.Context, o models.Order, eventType string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(c.Request.Context(), models.NewOrderEvent(o, eventType)); err != nil {
		log.Printf("Failed to publish %s event for order %d: %v", eventType, o.ID, err)
	}
}

func missingDeliveryFields(d *models.Delivery) []string {
	if d == nil {
		d = &models.Delivery{}
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", d.Name},
		{"line1", d.Line1},
		{"city", d.City},
		{"state", d.State},
		{"zip", d.Zip},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func (s *Server) Checkout(c *gin.Context) {
	defer s.recordOperation(c, "checkout")
	userID, _ := middlewares.CurrentUserID(c)

	var req struct {
		FulfillmentDate   string           `json:"fulfillment_date"`
		RequestedTime     string           `json:"requested_time"`
		FulfillmentMethod string           `json:"fulfillment_method"`
		Delivery          *models.Delivery `json:"delivery"`
	}
	_ = c.ShouldBindJSON(&req)

	if req.FulfillmentDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fulfillment_date is required (YYYY-MM-DD)"})
		return
	}
	if _, err := time.Parse(time.DateOnly, req.FulfillmentDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fulfillment_date must be YYYY-MM-DD"})
		return
	}
	var requested *string
	if req.RequestedTime != "" {
		if _, err := time.Parse("15:04", req.RequestedTime); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "requested_time must be HH:MM (24h)"})
			return
		}
		rt := req.RequestedTime
		requested = &rt
	}
	method := models.FulfillmentMethod(req.FulfillmentMethod)
	if method == "" {
		method = models.FulfillmentPickup
	}
	if !method.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fulfillment_method must be 'pickup' or 'delivery'"})
		return
	}
	if method == models.FulfillmentDelivery {
		if missing := missingDeliveryFields(req.Delivery); len(missing) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Missing delivery fields: %s", strings.Join(missing, ", "))})
			return
		}
	}

	order, err := s.store.Checkout(userID, repository.CheckoutInput{
		FulfillmentDate: req.FulfillmentDate,
		RequestedTime:   requested,
		Method:          method,
		Delivery:        req.Delivery,
	})
	switch {
	case errors.Is(err, repository.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty"})
		return
	case errors.Is(err, repository.ErrDateBooked):
		c.JSON(http.StatusConflict, gin.H{"error": "That date is already booked"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Order %d placed by user %d for %s", order.ID, userID, order.FulfillmentDate)
	s.publish(c, order, models.OrderEventCreated)
	c.JSON(http.StatusCreated, order)
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// ListOrders pages through the caller's orders; admins see every order.
func (s *Server) ListOrders(c *gin.Context) {
	userID, _ := middlewares.CurrentUserID(c)

	filter := repository.OrderFilter{
		Page:    max(queryInt(c, "page", 1), 1),
		PerPage: min(max(queryInt(c, "per_page", defaultPerPage), 1), maxPerPage),
	}
	if !s.isAdmin(userID) {
		filter.UserID = &userID
	}
	if raw := c.Query("status"); raw != "" {
		status := models.OrderStatus(raw)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = status
	}

	items, total := s.store.ListOrders(filter)
	c.JSON(http.StatusOK, models.OrderList{
		Page:    filter.Page,
		PerPage: filter.PerPage,
		Total:   total,
		Items:   items,
	})
}

func (s *Server) GetOrder(c *gin.Context) {
	userID, _ := middlewares.CurrentUserID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	order, err := s.store.GetOrder(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if order.UserID != userID && !s.isAdmin(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus is admin only and accepts any of the three states.
func (s *Server) UpdateOrderStatus(c *gin.Context) {
	defer s.recordOperation(c, "update_status")
	userID, _ := middlewares.CurrentUserID(c)
	if !s.isAdmin(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	if _, err := s.store.GetOrder(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	var req models.StatusUpdateRequest
	_ = c.ShouldBindJSON(&req)
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	order, err := s.store.UpdateOrderStatus(id, req.Status)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	log.Printf("Order %d status changed to %s by user %d", order.ID, order.Status, userID)
	s.publish(c, order, models.OrderEventStatusUpdated)
	c.JSON(http.StatusOK, order)
}
