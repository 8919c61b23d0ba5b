// internal/router/router.go
package router

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/config"
	"github.com/marketua/marketplace-backend/internal/handlers"
	"github.com/marketua/marketplace-backend/internal/middleware"
	"github.com/marketua/marketplace-backend/internal/services"
	"github.com/marketua/marketplace-backend/internal/utils"
)

// Initialize wires services, handlers and routes. cache may be nil, in which
// case blacklist lookups go to the database only.
func Initialize(db *gorm.DB, cfg *config.Config, cache services.BlacklistCache) (*gin.Engine, error) {
	// Initialize services
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	hasher := utils.NewPasswordHasher(cfg.Security.PasswordHashIterations)
	addressService := services.NewAddressService()
	tokenService := services.NewTokenService(db, cfg)
	if cache != nil {
		tokenService.SetCache(cache)
	}
	userService := services.NewUserService(db, hasher, addressService, tokenService)
	authService := services.NewAuthService(db, userService, addressService, tokenService, hasher)
	categoryService := services.NewCategoryService(db)
	advertService := services.NewAdvertService(db, addressService, storageService)
	imageService := services.NewImageService(db, storageService)
	orderService := services.NewOrderService(db)
	adminService := services.NewAdminService(db)

	// Initialize handlers
	pageSize := cfg.Pagination.PageSize
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, pageSize)
	advertHandler := handlers.NewAdvertHandler(advertService, pageSize)
	imageHandler := handlers.NewImageHandler(imageService)
	orderHandler := handlers.NewOrderHandler(orderService, pageSize)
	adminHandler := handlers.NewAdminHandler(adminService, pageSize)
	healthHandler := handlers.NewHealthHandler(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewHTTPMetrics(registry)

	// Initialize Gin router
	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.ErrorResponse(c, fmt.Errorf("panic: %v", recovered))
	}))
	r.Use(middleware.RequestLogger())
	r.Use(httpMetrics.Middleware())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())

	r.NoRoute(func(c *gin.Context) {
		utils.ErrorResponse(c, apperror.NotFound())
	})
	r.NoMethod(func(c *gin.Context) {
		utils.ErrorResponse(c, apperror.New(apperror.KindMethodNotAllowed, apperror.CodeMethodNotAllowed,
			fmt.Sprintf("Method \"%s\" not allowed.", c.Request.Method)))
	})

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if root := storageService.LocalRoot(); root != "" {
		if prefix := strings.TrimRight(cfg.Media.URL, "/"); strings.HasPrefix(prefix, "/") {
			r.Static(prefix, root)
		}
	}

	authRequired := middleware.AuthRequired(authService)
	anonymousOnly := []gin.HandlerFunc{middleware.OptionalAuth(authService), middleware.AnonymousOnly()}

	// Identity routes
	user := r.Group("/user")
	{
		user.POST("/register", append(anonymousOnly, authHandler.Register)...)
		user.POST("/login", append(anonymousOnly, authHandler.Login)...)
		user.POST("/refresh", authHandler.Refresh)
		user.POST("/verify", authHandler.Verify)
		user.POST("/logout", authRequired, authHandler.Logout)

		user.GET("/retrieve/me", authRequired, userHandler.RetrieveMe)
		user.PATCH("/update/me", authRequired, userHandler.UpdateMe)
		user.PUT("/set-password/me", authRequired, userHandler.SetPasswordMe)
		user.POST("/disable/me", authRequired, userHandler.DisableMe)
	}

	// Catalog routes
	category := r.Group("/category")
	{
		category.GET("", categoryHandler.List)
		category.GET("/select-list", categoryHandler.SelectList)
		category.GET("/:id", categoryHandler.Retrieve)
	}

	adverts := r.Group("/adverts")
	{
		adverts.GET("", advertHandler.List)
		adverts.GET("/me", authRequired, advertHandler.ListMine)
		adverts.GET("/:id", advertHandler.Retrieve)
		adverts.POST("", authRequired, advertHandler.Create)
		adverts.PATCH("/:id", authRequired, advertHandler.Update)
		adverts.DELETE("/:id", authRequired, advertHandler.Delete)
	}

	images := r.Group("/images", authRequired)
	{
		images.POST("/multiple-create", imageHandler.MultipleCreate)
		images.POST("/multiple-delete", imageHandler.MultipleDelete)
	}

	orders := r.Group("/orders", authRequired)
	{
		orders.POST("/create", orderHandler.Create)
		orders.GET("", orderHandler.List)
		orders.GET("/:id", orderHandler.Get)
	}

	// Admin routes
	admin := r.Group("/admin", authRequired, middleware.StaffRequired())
	{
		admin.GET("/stats", adminHandler.GetDashboardStats)
		admin.GET("/users", adminHandler.GetUsers)

		admin.POST("/categories", categoryHandler.Create)
		admin.PATCH("/categories/:id", categoryHandler.Update)
		admin.DELETE("/categories/:id", categoryHandler.Delete)

		admin.PATCH("/orders/:id", orderHandler.Update)
	}

	return r, nil
}
