package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"catalog_system/internal/accounts"   // Account management
	"catalog_system/internal/domain"     // Importing domain models
	"catalog_system/internal/middleware" // Request scoped logging
	"catalog_system/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/gorm"                 // GORM ORM library
)

// Prefix for cached admin user pages
const usersCachePrefix = "admin:users:"

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID       uint        `json:"id"`       // User ID
	Username string      `json:"username"` // Username
	Role     domain.Role `json:"role"`     // Role from the profile
}

// Cached page of users
type usersPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
	Roles      []domain.Role       `json:"roles"`       // Roles an admin can assign
	Cached     bool                `json:"cached"`      // Response came from cache
}

// Request struct for role changes
type SetRoleRequest struct {
	Role string `form:"role" json:"role" binding:"required"` // New role
}

// ListUsersHandler returns users with their roles
func ListUsersHandler(db *gorm.DB, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page := 1                            // Default page number
		pageSize := accounts.DefaultPageSize // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= accounts.MaxPageSize {
				pageSize = v // Set page size
			}
		}
		// Cache key built from the normalized pagination parameters
		cacheKey := usersCachePrefix + "page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached usersPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true // Indicate response is from cache
			c.JSON(http.StatusOK, cached)
			return
		}
		result, err := accounts.List(ctx, db, page, pageSize)
		if err != nil {
			respondInternal(c, err, "Failed to fetch users")
			return
		}
		// Map users to response format
		resp := usersPage{
			Users:      make([]UserAdminResponse, len(result.Users)),
			Page:       result.Page,
			PageSize:   result.PageSize,
			Total:      result.Total,
			TotalPages: result.TotalPages,
			Roles:      domain.Roles,
		}
		for i, u := range result.Users {
			role := domain.RoleAuthorized // Users without a profile get one on first request
			if u.Profile != nil {
				role = u.Profile.Role
			}
			resp.Users[i] = UserAdminResponse{ID: u.ID, Username: u.Username, Role: role}
		}
		// Cache the response for future requests
		if err := utils.SetCache(ctx, rdb, cacheKey, resp, ttl); err != nil {
			middleware.Logger(c).WithFields(logrus.Fields{"key": cacheKey, "error": err.Error()}).Warn("User cache write failed")
		}
		c.JSON(http.StatusOK, resp)
	}
}

// SetRoleHandler changes the role of a user
func SetRoleHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req SetRoleRequest // Bind form or JSON request to struct
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Role is required"})
			return
		}
		profile, err := accounts.SetRole(c.Request.Context(), db, id, domain.Role(req.Role))
		if err != nil {
			respondAccountError(c, err)
			return
		}
		invalidateUsers(c, rdb)
		middleware.Logger(c).WithField("target_user_id", id).WithField("role", profile.Role).Info("Role changed")
		c.JSON(http.StatusOK, gin.H{"message": "Role updated", "profile": profile, "redirect": ManageUsersPath})
	}
}

// DeleteUserHandler removes a user together with their orders
func DeleteUserHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if id == middleware.CurrentUserID(c) {
			// An admin cannot remove their own account
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete yourself"})
			return
		}
		if err := accounts.Delete(c.Request.Context(), db, id); err != nil {
			respondAccountError(c, err)
			return
		}
		invalidateUsers(c, rdb)
		middleware.Logger(c).WithField("target_user_id", id).Info("User deleted")
		c.JSON(http.StatusOK, gin.H{"message": "User deleted", "redirect": ManageUsersPath})
	}
}

// invalidateUsers drops every cached user page
func invalidateUsers(c *gin.Context, rdb *redis.Client) {
	if err := utils.DeleteCachePrefix(c.Request.Context(), rdb, usersCachePrefix); err != nil {
		middleware.Logger(c).WithField("error", err.Error()).Warn("Failed to invalidate user cache")
	}
}
