// Package catalog serves the product listing and product maintenance.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog_system/internal/access"
	"catalog_system/internal/domain"
	"catalog_system/internal/metrics"
	"catalog_system/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CachePrefix prefixes every cached product listing key
const CachePrefix = "catalog:products:"

var (
	ErrNotFound     = errors.New("product not found")
	ErrDuplicateSKU = errors.New("sku already exists")
	ErrInvalidPrice = errors.New("invalid price")
)

// Listing is a product list together with the role-derived presentation flags
type Listing struct {
	Products       []domain.Product `json:"products"`
	UserRole       domain.Role      `json:"user_role"`
	ShowEdit       bool             `json:"show_edit"`
	ShowDelete     bool             `json:"show_delete"`
	ShowAddProduct bool             `json:"show_add_product"`
}

// NewListing attaches the presentation flags for role to products
func NewListing(products []domain.Product, role domain.Role) *Listing {
	return &Listing{
		Products:       products,
		UserRole:       role,
		ShowEdit:       access.Allowed(role, access.ActionEditProduct),
		ShowDelete:     access.Allowed(role, access.ActionDeleteProduct),
		ShowAddProduct: access.Allowed(role, access.ActionCreateProduct),
	}
}

// ProductInput carries the fields of a new product
type ProductInput struct {
	Name        string
	Price       string
	Description string
	SKU         string
}

// ProductPatch carries the fields to change; nil keeps the current value
type ProductPatch struct {
	Name        *string
	Price       *string
	Description *string
	SKU         *string
}

// Service reads and maintains the product catalog.
// rdb may be nil, in which case listings are not cached.
type Service struct {
	db  *gorm.DB
	rdb *redis.Client
	ttl time.Duration
}

// NewService builds a catalog service
func NewService(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *Service {
	return &Service{db: db, rdb: rdb, ttl: ttl}
}

// List returns the catalog as seen by role. The filter only applies to roles
// allowed to filter; everyone else gets the full list.
func (s *Service) List(ctx context.Context, role domain.Role, f Filter) (*Listing, error) {
	products, err := s.Find(ctx, f.ForRole(role))
	if err != nil {
		return nil, err
	}
	return NewListing(products, role), nil
}

// Find returns the products matching f, newest first, consulting the cache
func (s *Service) Find(ctx context.Context, f Filter) ([]domain.Product, error) {
	key := f.CacheKey()
	var products []domain.Product
	found, err := utils.GetCache(ctx, s.rdb, key, &products)
	if err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Catalog cache read failed")
	}
	if err == nil && found {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return products, nil
	}
	if s.rdb != nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	products = []domain.Product{}
	if err := s.db.WithContext(ctx).Scopes(f.Scope).Order("id desc").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if err := utils.SetCache(ctx, s.rdb, key, products, s.ttl); err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Catalog cache write failed")
	}
	return products, nil
}

// Get loads one product
func (s *Service) Get(ctx context.Context, id uint) (*domain.Product, error) {
	var product domain.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	return &product, nil
}

// Create adds a product. A blank price means zero.
func (s *Service) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	product := domain.Product{
		Name:        in.Name,
		Price:       price,
		Description: in.Description,
		SKU:         in.SKU,
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, translateWriteError(err)
	}
	s.InvalidateCache(ctx)
	logrus.WithFields(logrus.Fields{"product_id": product.ID, "sku": product.SKU}).Info("Product created")
	return &product, nil
}

// Update applies patch to the product with the given id
func (s *Service) Update(ctx context.Context, id uint, patch ProductPatch) (*domain.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Price != nil {
		price, err := parsePrice(*patch.Price)
		if err != nil {
			return nil, err
		}
		product.Price = price
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.SKU != nil {
		product.SKU = *patch.SKU
	}
	if err := s.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, translateWriteError(err)
	}
	s.InvalidateCache(ctx)
	logrus.WithFields(logrus.Fields{"product_id": product.ID, "sku": product.SKU}).Info("Product updated")
	return product, nil
}

// Delete removes a product and its order links
func (s *Service) Delete(ctx context.Context, id uint) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM order_products WHERE product_id = ?", product.ID).Error; err != nil {
			return err
		}
		return tx.Delete(product).Error
	})
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	s.InvalidateCache(ctx)
	logrus.WithFields(logrus.Fields{"product_id": product.ID, "sku": product.SKU}).Info("Product deleted")
	return nil
}

// InvalidateCache drops every cached listing
func (s *Service) InvalidateCache(ctx context.Context) {
	if err := utils.DeleteCachePrefix(ctx, s.rdb, CachePrefix); err != nil {
		logrus.WithField("error", err.Error()).Warn("Catalog cache invalidation failed")
	}
}

func parsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	return price.Round(2), nil
}

func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSKU
	}
	return fmt.Errorf("save product: %w", err)
}
