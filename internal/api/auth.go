package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"catalog_system/internal/accounts"   // Registration and credentials
	"catalog_system/internal/config"     // Application configuration
	"catalog_system/internal/middleware" // Request scoped logging
	"catalog_system/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/gorm"                 // GORM ORM library
)

// Request struct for registration
type RegisterRequest struct {
	Username  string `form:"username" json:"username"`   // Desired username
	Password1 string `form:"password1" json:"password1"` // Password
	Password2 string `form:"password2" json:"password2"` // Password confirmation
}

// Request struct for login
type LoginRequest struct {
	Username string `form:"username" json:"username"` // Username
	Password string `form:"password" json:"password"` // Password
}

// Response struct for authentication
type AuthResponse struct {
	Token    string `json:"token"`    // Session token, also set as cookie
	Redirect string `json:"redirect"` // Where the client should go next
}

// RegisterHandler creates an account and logs it in
func RegisterHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind form or JSON request to struct
		if err := c.ShouldBind(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := accounts.Register(c.Request.Context(), db, accounts.Registration{
			Username:  req.Username,
			Password1: req.Password1,
			Password2: req.Password2,
		})
		if err != nil {
			respondAccountError(c, err)
			return
		}
		invalidateUsers(c, rdb) // Admin user pages now miss the new account
		// Log the new user in straight away
		token, err := startSession(c, cfg, user.ID)
		if err != nil {
			respondInternal(c, err, "Failed to create session")
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message":  "User registered successfully",
			"user":     user,
			"token":    token,
			"redirect": CatalogPath,
		})
	}
}

// LoginHandler authenticates a user and starts a session
func LoginHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind form or JSON request to struct
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := accounts.Authenticate(c.Request.Context(), db, req.Username, req.Password)
		if err != nil {
			respondAccountError(c, err)
			return
		}
		token, err := startSession(c, cfg, user.ID)
		if err != nil {
			respondInternal(c, err, "Failed to create session")
			return
		}
		middleware.Logger(c).WithField("user_id", user.ID).Info("User logged in")
		c.JSON(http.StatusOK, AuthResponse{Token: token, Redirect: CatalogPath})
	}
}

// LoginFormHandler describes the login form; guarded routes redirect here with ?next=
func LoginFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"fields": []string{"username", "password"}, // Expected form fields
			"next":   c.Query("next"),                  // Page to return to after login
		})
	}
}

// LogoutHandler ends the session by clearing the cookie
func LogoutHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.SessionCookie, "", -1, "/", "", cfg.IsProd, true) // Expire the cookie
		c.JSON(http.StatusOK, gin.H{"message": "Logged out", "redirect": CatalogPath})
	}
}

// startSession issues a token for userID and stores it in the session cookie
func startSession(c *gin.Context, cfg *config.Config, userID uint) (string, error) {
	token, err := utils.GenerateJWT(userID, cfg.JWTSecret)
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.SessionCookie, token, int(utils.SessionTTL.Seconds()), "/", "", cfg.IsProd, true)
	return token, nil
}

// respondAccountError maps account errors to responses
func respondAccountError(c *gin.Context, err error) {
	var verr *accounts.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := verr.Fields[""]
		if msg == "" {
			msg = "Invalid input"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg, "fields": verr.Fields})
	case errors.Is(err, accounts.ErrInvalidCredentials):
		// Same answer for unknown users and wrong passwords
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
	case errors.Is(err, accounts.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		respondInternal(c, err, "Internal server error")
	}
}

// respondInternal logs err and returns a generic 500
func respondInternal(c *gin.Context, err error, msg string) {
	middleware.Logger(c).WithFields(logrus.Fields{
		"path":  c.Request.URL.Path,
		"error": err.Error(),
	}).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
