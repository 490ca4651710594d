package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"catalog_system/internal/domain"     // Importing domain models
	"catalog_system/internal/middleware" // Session helpers
	"catalog_system/internal/orders"     // Orders and pickup points

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// OrderResponse is an order with its SKUs joined for display
type OrderResponse struct {
	domain.Order
	SKUs string `json:"skus"` // Comma separated SKUs
}

// OrderListHandler returns the orders of the current user, newest first
func OrderListHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := orders.ListForUser(c.Request.Context(), db, middleware.CurrentUserID(c))
		if err != nil {
			respondInternal(c, err, "Failed to fetch orders")
			return
		}
		resp := make([]OrderResponse, len(list))
		for i, o := range list {
			resp[i] = OrderResponse{Order: o, SKUs: o.SKUs()}
		}
		c.JSON(http.StatusOK, gin.H{"orders": resp})
	}
}

// BuyHandler places an order for one product at a pickup point
func BuyHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := pathID(c, "productId")
		if !ok {
			return
		}
		pickupPointID, ok := pathID(c, "pickupPointId")
		if !ok {
			return
		}
		order, err := orders.Create(c.Request.Context(), db, middleware.CurrentUserID(c), productID, pickupPointID)
		if err != nil {
			respondOrderError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Order created", "order": order, "redirect": OrdersPath})
	}
}

// PickupPointListHandler lists every pickup point
func PickupPointListHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		points, err := orders.ListPickupPoints(c.Request.Context(), db)
		if err != nil {
			respondInternal(c, err, "Failed to fetch pickup points")
			return
		}
		c.JSON(http.StatusOK, gin.H{"pickup_points": points})
	}
}

// Request struct for new pickup points
type PickupPointRequest struct {
	Address string `form:"address" json:"address"` // Street address
}

// AddPickupPointHandler creates a pickup point
func AddPickupPointHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PickupPointRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		point, err := orders.CreatePickupPoint(c.Request.Context(), db, req.Address)
		if err != nil {
			respondOrderError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Pickup point created", "pickup_point": point})
	}
}

// DeletePickupPointHandler removes a pickup point; its orders keep existing without one
func DeletePickupPointHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := orders.DeletePickupPoint(c.Request.Context(), db, id); err != nil {
			respondOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Pickup point deleted"})
	}
}

// respondOrderError maps order errors to responses
func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrAddressMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Address is required"})
	default:
		respondInternal(c, err, "Order operation failed")
	}
}
