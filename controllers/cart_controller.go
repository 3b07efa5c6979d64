package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"bakery-storefront/middlewares"
	"bakery-storefront/repository"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetCart(c *gin.Context) {
	userID, _ := middlewares.CurrentUserID(c)
	c.JSON(http.StatusOK, s.store.Cart(userID))
}

// SetCartItem adds or updates a line; qty <= 0 removes it.
func (s *Server) SetCartItem(c *gin.Context) {
	defer s.recordOperation(c, "cart_set")
	userID, _ := middlewares.CurrentUserID(c)

	var req struct {
		ProductID int64 `json:"product_id"`
		Qty       *int  `json:"qty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.ProductID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	qty := 1
	if req.Qty != nil {
		qty = *req.Qty
	}

	cart, err := s.store.SetCartItem(userID, req.ProductID, qty)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found or inactive"})
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *Server) RemoveCartItem(c *gin.Context) {
	defer s.recordOperation(c, "cart_remove")
	userID, _ := middlewares.CurrentUserID(c)

	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	cart, err := s.store.RemoveCartItem(userID, productID)
	if errors.Is(err, repository.ErrNotInCart) {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not in cart"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not remove item"})
		return
	}
	c.JSON(http.StatusOK, cart)
}
