// Package httptransport composes the HTTP surface: middleware, routes and the
// not-found / method-not-allowed envelopes.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"screener/internal/platform/metrics"
	"screener/internal/platform/middleware"
	"screener/internal/screening/handler"
)

// RouterConfig carries the auth settings the router enforces.
type RouterConfig struct {
	AdminToken string
	APIKeys    middleware.APIKeyConfig
	// RequestTimeout bounds a whole request, batch checks included.
	RequestTimeout time.Duration
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter wires every public endpoint.
func NewRouter(h *handler.Handler, cfg RouterConfig, httpMetrics *metrics.Metrics, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(httpMetrics.Middleware)
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.NotFound(h.HandleNotFound)
	r.MethodNotAllowed(h.HandleMethodNotAllowed)

	h.Register(r)
	r.With(middleware.RequireAPIKey(cfg.APIKeys, logger)).Post("/check", h.HandleCheck)
	r.With(middleware.RequireAdminToken(cfg.AdminToken, logger)).Post("/clear-cache", h.HandleClearCache)

	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
