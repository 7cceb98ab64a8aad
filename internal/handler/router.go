// Package handler provides the HTTP surface of Squid Coin.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/squidcoin/internal/metrics"
)

// DatabaseChecker is the health probe of the database.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// Router assembles the HTTP routes.
type Router struct {
	userHandler        *UserHandler
	transactionHandler *TransactionHandler
	fileHandler        *FileHandler
	db                 DatabaseChecker
	metrics            *metrics.Metrics
	metricsPath        string
	corsOrigins        []string
	logger             zerolog.Logger
}

// RouterConfig contains configuration for the router.
// A nil handler leaves its routes unmounted.
type RouterConfig struct {
	UserHandler        *UserHandler
	TransactionHandler *TransactionHandler
	FileHandler        *FileHandler
	Database           DatabaseChecker

	// Metrics records HTTP metrics when set.
	Metrics *metrics.Metrics

	// MetricsPath mounts the Prometheus endpoint on this router when non-empty.
	MetricsPath string

	// CORSOrigins enables CORS for the listed origins.
	CORSOrigins []string

	Logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		userHandler:        config.UserHandler,
		transactionHandler: config.TransactionHandler,
		fileHandler:        config.FileHandler,
		db:                 config.Database,
		metrics:            config.Metrics,
		metricsPath:        config.MetricsPath,
		corsOrigins:        config.CORSOrigins,
		logger:             config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(hlog.NewHandler(rt.logger))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
	}
	if len(rt.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Total-Count", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health check (no auth)
	r.Get("/health", rt.handleHealth)
	if rt.metrics != nil && rt.metricsPath != "" {
		r.Method(http.MethodGet, rt.metricsPath, rt.metrics.Handler())
	}

	if rt.userHandler != nil {
		rt.userHandler.RegisterRoutes(r)
	}
	if rt.transactionHandler != nil {
		rt.transactionHandler.RegisterRoutes(r)
	}
	if rt.fileHandler != nil {
		rt.fileHandler.RegisterRoutes(r)
	}

	return r
}

// handleHealth reports database reachability.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.db.Ping(ctx); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
