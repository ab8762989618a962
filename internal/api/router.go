package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/carrent/auth-engine/internal/api/handler"
	"github.com/carrent/auth-engine/internal/api/middleware"
	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(engine ports.AuthEngine, db *mongo.Database, rdb *redis.Client, jwtSecret string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("carrent"))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(engine)
	sessionHandler := handler.NewSessionHandler(engine)
	authMiddleware := middleware.Auth(jwtSecret)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)

	// --- Session routes ---
	e.GET("/session", sessionHandler.Snapshot)
	me := e.Group("/me", authMiddleware)
	me.PATCH("", sessionHandler.UpdateMe)
	me.GET("/admin", sessionHandler.AdminCheck)

	// --- Debug routes (admin only) ---
	debug := e.Group("/debug", authMiddleware, middleware.RequireRole(string(domain.RoleAdmin)))
	debug.DELETE("/role-cache", sessionHandler.ClearRoleCache)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
