// Package controllers implements the bakery API the storefront talks to,
// backed by the in-memory repository. It serves local development and the
// storefront's end-to-end tests.
package controllers

import (
	"log"
	"net/http"
	"time"

	"bakery-storefront/middlewares"
	"bakery-storefront/models"
	"bakery-storefront/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
}

type Server struct {
	engine    *gin.Engine
	store     *repository.MemoryStore
	opts      Options
	publisher EventPublisher
	metrics   *middlewares.Metrics
}

func NewServer(store *repository.MemoryStore, opts Options) *Server {
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	m := middlewares.NewMetrics()
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), m.PrometheusMiddleware())
	s := &Server{engine: r, store: store, opts: opts, metrics: m}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	r := s.engine
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	auth := middlewares.AuthMiddleware(s.opts.JWTSecret)

	r.POST("/auth/signup", s.Signup)
	r.POST("/auth/login", s.Login)
	r.GET("/auth/me", auth, s.Me)

	r.GET("/products/", s.ListProducts)
	r.GET("/products/:id", s.GetProduct)

	cart := r.Group("/cart", auth)
	{
		cart.GET("/", s.GetCart)
		cart.POST("/items", s.SetCartItem)
		cart.DELETE("/items/:product_id", s.RemoveCartItem)
	}

	r.POST("/checkout", auth, s.Checkout)

	orders := r.Group("/orders", auth)
	{
		orders.GET("/", s.ListOrders)
		orders.GET("/:id", s.GetOrder)
	}

	r.PATCH("/admin/orders/:id/status", auth, s.UpdateOrderStatus)
}

// CreateUser registers an account directly, bypassing the HTTP surface.
func (s *Server) CreateUser(email, password, role string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.HashCost)
	if err != nil {
		return models.User{}, err
	}
	return s.store.CreateUser(email, hash, role)
}

// SeedProducts loads the default dessert catalog.
func SeedProducts(store *repository.MemoryStore) {
	for _, p := range []models.Product{
		{
			Name:        "Classic Carrot Cake",
			Description: "Moist carrot cake with cream cheese frosting",
			Price:       decimal.RequireFromString("24.00"),
			ImageURL:    "https://via.placeholder.com/300x200?text=Carrot+Cake",
			Allergens:   []string{"dairy", "gluten", "nuts"},
			IsActive:    true,
		},
		{
			Name:        "Chocolate Brownie Box",
			Description: "12 decadent chocolate brownies",
			Price:       decimal.RequireFromString("18.00"),
			ImageURL:    "https://via.placeholder.com/300x200?text=Brownies",
			Allergens:   []string{"dairy", "eggs", "gluten"},
			IsActive:    true,
		},
		{
			Name:        "Macaron Assortment",
			Description: "12 assorted French macarons",
			Price:       decimal.RequireFromString("22.00"),
			ImageURL:    "https://via.placeholder.com/300x200?text=Macarons",
			Allergens:   []string{"dairy", "eggs", "nuts"},
			IsActive:    true,
		},
	} {
		store.CreateProduct(p)
	}
	log.Printf("Seeded %d products", len(store.ListProducts()))
}

func (s *Server) recordOperation(c *gin.Context, operation string) {
	status := c.Writer.Status()
	s.metrics.RecordOrderOperation(operation, status >= 200 && status < 300)
}
