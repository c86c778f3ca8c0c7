// Package handler provides the HTTP API for Mini Market.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/metrics"
)

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	AuthHandler    *AuthHandler
	CatalogHandler *CatalogHandler
	CartHandler    *CartHandler
	ContactHandler *ContactHandler

	// AuthMiddleware guards the cart and session routes.
	AuthMiddleware func(http.Handler) http.Handler

	// HealthCheck probes the storage backend. Nil means always healthy.
	HealthCheck func(ctx context.Context) error

	// Metrics is optional. MetricsPath mounts its handler when both are set.
	Metrics     *metrics.Metrics
	MetricsPath string

	CORSAllowedOrigins []string
	Logger             zerolog.Logger
}

// NewRouter builds the HTTP handler tree.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger.With().Str("component", "router").Logger()

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog(logger, cfg.Metrics))
	r.Use(Recoverer(logger))
	r.Use(corsHandler(cfg.CORSAllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/health", healthHandler(cfg.HealthCheck, logger))
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		r.Method(http.MethodGet, cfg.MetricsPath, cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		cfg.CatalogHandler.RegisterRoutes(r)
		cfg.ContactHandler.RegisterRoutes(r)
		cfg.AuthHandler.RegisterRoutes(r, cfg.AuthMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware)
			cfg.CartHandler.RegisterRoutes(r)
		})
	})

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: !allowAll,
		MaxAge:           300,
	}
	if allowAll {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.Handler(opts)
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func healthHandler(check func(ctx context.Context) error, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.Warn().Err(err).Msg("health check failed")
				writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Time: time.Now().UTC()})
				return
			}
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Time: time.Now().UTC()})
	}
}
