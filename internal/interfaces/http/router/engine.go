package router

import (
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// EngineConfig selects the middleware of the engine
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string
	TrustedProxies []string
	MaxBodySize    int64
	// Limiter is optional; nil disables rate limiting
	Limiter middleware.Limiter
	// Registry is optional; nil disables HTTP metrics and /metrics
	Registry *prometheus.Registry
}

// NewEngine builds a gin engine with the standard middleware chain.
// Correlation middleware runs first so the request logger sees the
// request ID and operator.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Operator(),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     cfg.TracingEnabled,
		}),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(cfg.Logger),
		middleware.Secure(),
	)

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSOrigins
	engine.Use(middleware.CORSWithConfig(cors))

	if cfg.Registry != nil {
		engine.Use(middleware.NewHTTPMetrics(cfg.Registry).Middleware())
		engine.GET("/metrics", middleware.MetricsHandler(cfg.Registry))
	}
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	if cfg.Limiter != nil {
		engine.Use(middleware.RateLimit(cfg.Limiter))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(dto.GetHTTPStatus(dto.ErrCodeNotFound), dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c),
		))
	})

	return engine, nil
}

// Handlers groups the API handlers
type Handlers struct {
	Products    *handler.ProductHandler
	Categories  *handler.CategoryHandler
	Suppliers   *handler.SupplierHandler
	Adjustments *handler.AdjustmentHandler
	System      *handler.SystemHandler
}

// InventoryRoutes returns the route groups of the stock ledger API
func InventoryRoutes(h Handlers) []RouteRegistrar {
	products := NewDomainGroup("products", "/products").
		GET("", h.Products.List).
		POST("", h.Products.Create).
		GET("/search", h.Products.Search).
		GET("/pos", h.Products.POS).
		GET("/picker", h.Products.Picker).
		PATCH("/bulk", h.Products.BulkUpdate).
		GET("/:id", h.Products.Get).
		PUT("/:id", h.Products.Update).
		DELETE("/:id", h.Products.Delete).
		GET("/:id/history", h.Products.History).
		GET("/:id/image", h.Products.Image)

	categories := NewDomainGroup("categories", "/categories").
		GET("", h.Categories.List).
		POST("", h.Categories.Create).
		GET("/:id", h.Categories.Get).
		PUT("/:id", h.Categories.Update).
		DELETE("/:id", h.Categories.Delete).
		GET("/:id/products", h.Categories.Products).
		PATCH("/:id/product-count", h.Categories.AdjustProductCount)

	suppliers := NewDomainGroup("suppliers", "/suppliers").
		GET("", h.Suppliers.List).
		POST("", h.Suppliers.Create).
		GET("/:id", h.Suppliers.Get).
		PUT("/:id", h.Suppliers.Update).
		DELETE("/:id", h.Suppliers.Delete).
		POST("/:id/products", h.Suppliers.AddProduct).
		POST("/:id/orders", h.Suppliers.RecordOrder)

	adjustments := NewDomainGroup("adjustments", "/adjustments").
		GET("", h.Adjustments.List).
		POST("", h.Adjustments.Create)

	payments := NewDomainGroup("payments", "/payments").
		POST("/apply", h.Adjustments.ApplyPayment)

	system := NewDomainGroup("system", "").
		GET("/stats", h.System.Stats).
		GET("/notifications", h.System.Notifications)

	admin := NewDomainGroup("admin", "/admin").
		POST("/reset", h.System.Reset).
		POST("/seed-defaults", h.System.SeedDefaults)

	return []RouteRegistrar{products, categories, suppliers, adjustments, payments, system, admin}
}

// Mount registers the health endpoint and the API routes on engine
func Mount(engine *gin.Engine, h Handlers, opts ...RouterOption) {
	engine.GET("/health", h.System.Health)
	NewRouter(engine, opts...).Register(InventoryRoutes(h)...).Setup()
}
