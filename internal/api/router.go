package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/pvzlink/parcel-system/docs"
	"github.com/pvzlink/parcel-system/internal/api/handler"
	"github.com/pvzlink/parcel-system/internal/api/middleware"
	"github.com/pvzlink/parcel-system/internal/core/domain"
	"github.com/pvzlink/parcel-system/internal/core/ports"
)

// RouterDeps carries everything the router needs. Services are constructed
// in main so the HTTP layer stays free of storage concerns.
type RouterDeps struct {
	Auth      ports.AuthService
	Packages  ports.PackageService
	Lifecycle ports.LifecycleService
	Events    handler.EventDispatcher
	Mongo     *mongo.Database
	Redis     *redis.Client
	JWTSecret string
	Log       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("parcel"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Auth)
	packageHandler := handler.NewPackageHandler(deps.Packages, deps.Lifecycle)
	eventHandler := handler.NewEventHandler(deps.Events)
	authRequired := middleware.Auth(deps.JWTSecret)
	staffOnly := middleware.RBAC(domain.RoleAdmin, domain.RoleCourier)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Health probes and operational endpoints (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Authenticated API ---
	v1 := e.Group("/v1", authRequired)

	users := v1.Group("/users")
	users.GET("/me", userHandler.Me)
	users.PATCH("/me", userHandler.UpdateMe)
	users.GET("/couriers", userHandler.Couriers)
	users.GET("", userHandler.List, middleware.RBAC(domain.RoleAdmin))

	packages := v1.Group("/packages")
	packages.POST("", packageHandler.Create)
	packages.GET("", packageHandler.List, staffOnly)
	packages.GET("/:tracking_number", packageHandler.Get)
	packages.PUT("/:tracking_number/pay", packageHandler.Pay)
	packages.PUT("/:tracking_number/status", packageHandler.UpdateStatus, staffOnly)
	packages.PUT("/:tracking_number/location", packageHandler.UpdateLocation, staffOnly)

	events := v1.Group("/events", staffOnly)
	events.POST("", eventHandler.Receive)
	events.POST("/batch", eventHandler.ReceiveBatch)

	return e
}
