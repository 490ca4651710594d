package api

import (
	"net/http" // HTTP status codes

	"catalog_system/internal/access"     // Actions guarded per route
	"catalog_system/internal/catalog"    // Product catalog
	"catalog_system/internal/config"     // Application configuration
	"catalog_system/internal/metrics"    // Prometheus endpoint
	"catalog_system/internal/middleware" // Session, guard and logging middleware

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// Paths clients are redirected to
const (
	CatalogPath     = "/"
	LoginPath       = "/login/"
	OrdersPath      = "/orders/"
	ManageUsersPath = "/manage-users/"
)

// NewRouter wires every route of the catalog; rdb may be nil to run without caching
func NewRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.Authenticate(cfg.JWTSecret, cfg.SessionCookie),
	)

	catalogService := catalog.NewService(db, rdb, cfg.CacheTTL)
	// guarded prepends the login check and the role check for action
	guarded := func(action access.Action, h gin.HandlerFunc) gin.HandlersChain {
		return append(middleware.Guard(db, LoginPath, action), h)
	}

	// Catalog, open to everyone
	r.GET(CatalogPath, ProductListHandler(db, catalogService))
	r.GET("/pickup-points/", PickupPointListHandler(db))

	// Auth routes
	r.POST("/register/", RegisterHandler(db, rdb, cfg))
	r.GET(LoginPath, LoginFormHandler())
	r.POST(LoginPath, LoginHandler(db, cfg))
	r.GET("/logout/", LogoutHandler(cfg))
	r.POST("/logout/", LogoutHandler(cfg))

	// Orders
	r.GET(OrdersPath, guarded(access.ActionViewOwnOrders, OrderListHandler(db))...)
	r.POST("/buy/:productId/:pickupPointId/", guarded(access.ActionPlaceOrder, BuyHandler(db))...)

	// Product management
	r.POST("/product/add/", guarded(access.ActionCreateProduct, AddProductHandler(catalogService))...)
	editProduct := guarded(access.ActionEditProduct, EditProductHandler(catalogService))
	r.GET("/product/:id/edit/", editProduct...)
	r.POST("/product/:id/edit/", editProduct...)
	deleteProduct := guarded(access.ActionDeleteProduct, DeleteProductHandler(catalogService))
	r.GET("/product/:id/delete/", deleteProduct...)
	r.POST("/product/:id/delete/", deleteProduct...)

	// User management
	r.GET(ManageUsersPath, guarded(access.ActionManageUsers, ListUsersHandler(db, rdb, cfg.CacheTTL))...)
	r.POST("/manage-users/:id/role/", guarded(access.ActionManageUsers, SetRoleHandler(db, rdb))...)
	r.POST("/manage-users/:id/delete/", guarded(access.ActionManageUsers, DeleteUserHandler(db, rdb))...)

	// Pickup point management
	r.POST("/pickup-point/add/", guarded(access.ActionManagePickupPoints, AddPickupPointHandler(db))...)
	r.POST("/pickup-point/:id/delete/", guarded(access.ActionManagePickupPoints, DeletePickupPointHandler(db))...)

	// Operational endpoints
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", HealthHandler(db))

	return r
}

// HealthHandler reports whether the database answers
func HealthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
