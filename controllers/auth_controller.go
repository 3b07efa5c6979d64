package controllers

import (
	"errors"
	"net/http"
	"strings"

	"bakery-storefront/middlewares"
	"bakery-storefront/models"
	"bakery-storefront/repository"
	"bakery-storefront/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) Signup(c *gin.Context) {
	var req models.Credentials
	_ = c.ShouldBindJSON(&req)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required."})
		return
	}

	user, err := s.CreateUser(email, req.Password, models.RoleCustomer)
	if errors.Is(err, repository.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create account"})
		return
	}
	s.respondWithToken(c, http.StatusCreated, user)
}

func (s *Server) Login(c *gin.Context) {
	var req models.Credentials
	_ = c.ShouldBindJSON(&req)

	rec, err := s.store.UserByEmail(req.Email)
	if err != nil || bcrypt.CompareHashAndPassword(rec.PasswordHash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	s.respondWithToken(c, http.StatusOK, rec.User)
}

func (s *Server) Me(c *gin.Context) {
	userID, _ := middlewares.CurrentUserID(c)
	user, err := s.store.UserByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) respondWithToken(c *gin.Context, status int, user models.User) {
	token, err := utils.GenerateToken(s.opts.JWTSecret, user.ID, s.opts.TokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not issue token"})
		return
	}
	c.JSON(status, models.AuthResponse{User: &user, Token: token})
}

// isAdmin looks the role up on every call; the token carries only the id.
func (s *Server) isAdmin(userID int64) bool {
	user, err := s.store.UserByID(userID)
	return err == nil && user.Role == models.RoleAdmin
}
