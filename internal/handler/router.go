package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/coffeeshop/coffeeshop/internal/middleware"
	"github.com/coffeeshop/coffeeshop/internal/model"
)

// RouterConfig wires handlers and middleware into a router.
type RouterConfig struct {
	Drinks  *DrinkHandler
	Health  *HealthHandler
	Metrics *MetricsHandler

	// Permissions configures the per-route permission checks.
	Permissions middleware.PermissionConfig
	Security    middleware.SecurityConfig
	Logger      *slog.Logger
	// MaxBodySize limits request bodies; zero disables the limit.
	MaxBodySize int64
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Permissions.Logger == nil {
		cfg.Permissions.Logger = logger
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(cfg.Security))
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
	}

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Healthz)
		r.Get("/readyz", cfg.Health.Readyz)
	}
	if cfg.Metrics != nil {
		r.Get("/metrics", cfg.Metrics.Metrics)
	}

	require := func(permission string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(cfg.Permissions, permission)
	}

	d := cfg.Drinks
	r.Get("/drinks", d.List)
	r.With(require(model.PermissionGetDrinksDetail)).Get("/drinks-detail", d.ListDetailed)
	r.With(require(model.PermissionPostDrinks)).Post("/drinks", d.Create)
	r.With(require(model.PermissionPatchDrinks)).Patch("/drinks/{id}", d.Update)
	r.With(require(model.PermissionDeleteDrinks)).Delete("/drinks/{id}", d.Delete)

	h := New()
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
