package middleware

import (
	"net/http" // HTTP status codes

	"catalog_system/internal/access" // Role resolution and policy
	"catalog_system/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// RequireAction resolves the caller's role from the database on each request
// and lets the request through only if the role may perform action
func RequireAction(db *gorm.DB, action access.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := access.ResolveRole(c.Request.Context(), db, CurrentUserID(c))
		if err != nil {
			Logger(c).WithFields(logrus.Fields{
				"action": action,
				"error":  err.Error(),
			}).Error("Role resolution failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		// Check the role against the policy table
		if !access.Allowed(role, action) {
			Logger(c).WithFields(logrus.Fields{
				"action": action,
				"role":   role,
			}).Warn("Access denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Set(RoleKey, role) // Handlers reuse the resolved role
		c.Next()
	}
}

// Guard returns the fixed chain for a protected route: login check, then role check
func Guard(db *gorm.DB, loginPath string, action access.Action) gin.HandlersChain {
	return gin.HandlersChain{RequireLogin(loginPath), RequireAction(db, action)}
}

// CurrentRole returns the role resolved by RequireAction, if any
func CurrentRole(c *gin.Context) (domain.Role, bool) {
	v, exists := c.Get(RoleKey)
	if !exists {
		return "", false
	}
	role, ok := v.(domain.Role)
	return role, ok
}
