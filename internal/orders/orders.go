// Package orders places orders and manages the pickup points they are collected from.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catalog_system/internal/domain"
	"catalog_system/internal/metrics"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAddressMissing = errors.New("address is required")
)

// Create places an order for one product, to be collected at one pickup point.
// A missing product or pickup point yields ErrNotFound and nothing is written.
func Create(ctx context.Context, db *gorm.DB, userID, productID, pickupPointID uint) (*domain.Order, error) {
	var product domain.Product
	if err := db.WithContext(ctx).First(&product, productID).Error; err != nil {
		return nil, lookupError("product", productID, err)
	}
	var point domain.PickupPoint
	if err := db.WithContext(ctx).First(&point, pickupPointID).Error; err != nil {
		return nil, lookupError("pickup point", pickupPointID, err)
	}

	code, err := domain.NewReceiveCode()
	if err != nil {
		return nil, fmt.Errorf("generate receive code: %w", err)
	}
	order := domain.Order{
		UserID:        userID,
		PickupPointID: &point.ID,
		ReceiveCode:   code,
		Status:        domain.OrderStatusNew,
		Products:      []domain.Product{product},
	}
	// Link the existing product without rewriting it
	if err := db.WithContext(ctx).Omit("Products.*").Create(&order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	order.PickupPoint = &point

	metrics.OrdersCreated.Inc()
	logrus.WithFields(logrus.Fields{
		"order_id":        order.ID,
		"user_id":         userID,
		"product_id":      product.ID,
		"pickup_point_id": point.ID,
	}).Info("Order created")
	return &order, nil
}

// ListForUser returns the orders of userID with products and pickup point, newest first
func ListForUser(ctx context.Context, db *gorm.DB, userID uint) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := db.WithContext(ctx).
		Preload("Products").
		Preload("PickupPoint").
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListPickupPoints returns every pickup point ordered by id
func ListPickupPoints(ctx context.Context, db *gorm.DB) ([]domain.PickupPoint, error) {
	points := []domain.PickupPoint{}
	if err := db.WithContext(ctx).Order("id").Find(&points).Error; err != nil {
		return nil, fmt.Errorf("list pickup points: %w", err)
	}
	return points, nil
}

// CreatePickupPoint adds a pickup point at address
func CreatePickupPoint(ctx context.Context, db *gorm.DB, address string) (*domain.PickupPoint, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrAddressMissing
	}
	point := domain.PickupPoint{Address: address}
	if err := db.WithContext(ctx).Create(&point).Error; err != nil {
		return nil, fmt.Errorf("create pickup point: %w", err)
	}
	logrus.WithField("pickup_point_id", point.ID).Info("Pickup point created")
	return &point, nil
}

// DeletePickupPoint removes a pickup point. Orders referencing it are kept
// with their pickup point cleared.
func DeletePickupPoint(ctx context.Context, db *gorm.DB, id uint) error {
	var point domain.PickupPoint
	if err := db.WithContext(ctx).First(&point, id).Error; err != nil {
		return lookupError("pickup point", id, err)
	}
	var detached int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Order{}).Where("pickup_point_id = ?", point.ID).Update("pickup_point_id", nil)
		if res.Error != nil {
			return res.Error
		}
		detached = res.RowsAffected
		return tx.Delete(&point).Error
	})
	if err != nil {
		return fmt.Errorf("delete pickup point %d: %w", id, err)
	}
	logrus.WithFields(logrus.Fields{
		"pickup_point_id": point.ID,
		"orders_detached": detached,
	}).Info("Pickup point deleted")
	return nil
}

func lookupError(what string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}
