package middleware

import (
	"net/http" // HTTP status codes
	"net/url"  // Query escaping for login redirects
	"strings"  // String manipulation

	"catalog_system/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by the middleware chain
const (
	UserIDKey    = "userID"    // Authenticated user id (uint)
	RoleKey      = "role"      // Resolved domain.Role
	RequestIDKey = "requestID" // Request correlation id
)

// Authenticate reads the session token from the Authorization header or the
// session cookie and stores the user id in the context. It never rejects:
// requests without a valid token continue as anonymous.
func Authenticate(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string
		// Prefer an explicit bearer token over the cookie
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
		} else if cookie, err := c.Cookie(cookieName); err == nil {
			tokenStr = cookie
		}
		if tokenStr != "" {
			if claims, err := utils.ParseJWT(tokenStr, secret); err == nil {
				c.Set(UserIDKey, claims.UserID) // Store userID in context
			}
		}
		c.Next() // Proceed to the next handler
	}
}

// CurrentUserID returns the authenticated user id, or zero for anonymous callers
func CurrentUserID(c *gin.Context) uint {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return 0
	}
	id, _ := v.(uint)
	return id
}

// RequireLogin redirects anonymous callers to loginPath
func RequireLogin(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserID(c) == 0 {
			// Remember where the caller was heading
			c.Redirect(http.StatusFound, loginPath+"?next="+url.QueryEscape(c.Request.URL.Path))
			c.Abort()
			return
		}
		c.Next()
	}
}
