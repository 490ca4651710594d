package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // Path parameter parsing

	"catalog_system/internal/access"     // Role resolution
	"catalog_system/internal/catalog"    // Product catalog
	"catalog_system/internal/middleware" // Session helpers

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ProductRequest represents a new product form
type ProductRequest struct {
	Name        string `form:"name" json:"name"`               // Display name
	Price       string `form:"price" json:"price"`             // Decimal price, blank means zero
	Description string `form:"description" json:"description"` // Description
	SKU         string `form:"sku" json:"sku"`                 // Stock-keeping unit
}

// ProductPatchRequest represents an edit form; omitted fields keep their value
type ProductPatchRequest struct {
	Name        *string `form:"name" json:"name"`
	Price       *string `form:"price" json:"price"`
	Description *string `form:"description" json:"description"`
	SKU         *string `form:"sku" json:"sku"`
}

// ProductListHandler lists the catalog; search and price filters apply to authorized roles only
func ProductListHandler(db *gorm.DB, svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := access.ResolveRole(c.Request.Context(), db, middleware.CurrentUserID(c))
		if err != nil {
			respondInternal(c, err, "Failed to resolve role")
			return
		}
		filter := catalog.ParseFilter(c.Query("search"), c.Query("price_min"), c.Query("price_max"))
		listing, err := svc.List(c.Request.Context(), role, filter)
		if err != nil {
			respondInternal(c, err, "Failed to fetch products")
			return
		}
		c.JSON(http.StatusOK, listing)
	}
}

// AddProductHandler creates a product
func AddProductHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProductRequest // Bind form or JSON request to struct
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		product, err := svc.Create(c.Request.Context(), catalog.ProductInput{
			Name:        req.Name,
			Price:       req.Price,
			Description: req.Description,
			SKU:         req.SKU,
		})
		if err != nil {
			respondCatalogError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Product created", "product": product, "redirect": CatalogPath})
	}
}

// EditProductHandler shows a product on GET and updates it on POST
func EditProductHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if c.Request.Method == http.MethodGet {
			product, err := svc.Get(c.Request.Context(), id)
			if err != nil {
				respondCatalogError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"product": product})
			return
		}
		var req ProductPatchRequest // Only the submitted fields change
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		product, err := svc.Update(c.Request.Context(), id, catalog.ProductPatch{
			Name:        req.Name,
			Price:       req.Price,
			Description: req.Description,
			SKU:         req.SKU,
		})
		if err != nil {
			respondCatalogError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product updated", "product": product, "redirect": CatalogPath})
	}
}

// DeleteProductHandler asks for confirmation on GET and deletes on POST
func DeleteProductHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if c.Request.Method == http.MethodGet {
			product, err := svc.Get(c.Request.Context(), id)
			if err != nil {
				respondCatalogError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"object": product, "object_type": "product"})
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			respondCatalogError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted", "redirect": CatalogPath})
	}
}

// respondCatalogError maps catalog errors to responses
func respondCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.Is(err, catalog.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
	case errors.Is(err, catalog.ErrDuplicateSKU):
		c.JSON(http.StatusConflict, gin.H{"error": "SKU already exists"})
	default:
		respondInternal(c, err, "Product operation failed")
	}
}

// pathID parses a numeric path parameter, answering 404 when it is not one
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return uint(id), true
}
