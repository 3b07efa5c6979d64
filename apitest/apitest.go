// Package apitest runs the development API server on a loopback listener
// for end-to-end tests of the storefront packages.
package apitest

import (
	"net/http/httptest"
	"testing"
	"time"

	"bakery-storefront/controllers"
	"bakery-storefront/models"
	"bakery-storefront/repository"
	"bakery-storefront/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	// money goes over the wire as JSON numbers, as bakery-api sends it
	decimal.MarshalJSONWithoutQuotes = true
}

const jwtSecret = "apitest-secret"

type Server struct {
	*httptest.Server
	API   *controllers.Server
	Store *repository.MemoryStore
}

// New starts a seeded server that is shut down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStore()
	controllers.SeedProducts(store)
	api := controllers.NewServer(store, controllers.Options{JWTSecret: jwtSecret, HashCost: bcrypt.MinCost})
	srv := httptest.NewServer(api.Engine())
	t.Cleanup(srv.Close)
	return &Server{Server: srv, API: api, Store: store}
}

// User creates an account and returns it with a valid bearer token.
func (s *Server) User(t testing.TB, email, password, role string) (models.User, string) {
	t.Helper()
	u, err := s.API.CreateUser(email, password, role)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	token, err := utils.GenerateToken(jwtSecret, u.ID, time.Hour)
	if err != nil {
		t.Fatalf("token for %s: %v", email, err)
	}
	return u, token
}
