// Package handler exposes the screening pipeline over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"screener/internal/screening/models"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/circuit"
	"screener/pkg/platform/httputil"
	"screener/pkg/platform/sentinel"
	"screener/pkg/requestcontext"
)

// Service defines the screening operations the handler needs.
type Service interface {
	Check(ctx context.Context, entity string) *models.AggregatedFinding
	CheckBatch(ctx context.Context, entities []string) []*models.AggregatedFinding
	CacheConnected(ctx context.Context) bool
	FlushCache(ctx context.Context) error
}

// CircuitReporter exposes a breaker position. *circuit.Breaker satisfies it.
type CircuitReporter interface {
	State() circuit.State
}

// Sources describes the upstream providers. Everything but RegistryCircuit
// is fixed at startup.
type Sources struct {
	RegistryConfigured bool
	SearchConfigured   bool
	SearchProviders    []string
	TrustedDomains     []string
	// RegistryCircuit is optional; when set /health reports its state.
	RegistryCircuit CircuitReporter
}

// Handler wires screening endpoints to the orchestrator.
type Handler struct {
	service     Service
	sources     Sources
	maxEntities int
	logger      *slog.Logger
}

// New constructs a screening handler.
func New(service Service, sources Sources, maxEntities int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if sources.SearchProviders == nil {
		sources.SearchProviders = []string{}
	}
	if sources.TrustedDomains == nil {
		sources.TrustedDomains = []string{}
	}
	return &Handler{
		service:     service,
		sources:     sources,
		maxEntities: maxEntities,
		logger:      logger,
	}
}

// Register mounts the unauthenticated endpoints. /check and /clear-cache are
// mounted by the router behind their auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleRoot)
	r.Get("/api/info", h.HandleInfo)
	r.Get("/health", h.HandleHealth)
}

// HandleCheck handles POST /check requests.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	body, err := httputil.DecodeJSON(r)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to decode check request", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	req, err := ParseEntities(body, h.maxEntities)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid check request", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	if req.Single {
		finding := h.service.Check(ctx, req.Entities[0])
		h.logger.InfoContext(ctx, "entity checked",
			"request_id", requestID,
			"entity", req.Entities[0],
			"found", finding.Found,
			"status", finding.ProcessingStatus,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		httputil.WriteJSON(w, http.StatusOK, SingleCheckResponse{
			Success:    true,
			Entity:     EntityRef{Name: req.Entities[0]},
			Result:     finding,
			APIVersion: APIVersion,
		})
		return
	}

	findings := h.service.CheckBatch(ctx, req.Entities)
	h.logger.InfoContext(ctx, "entities checked",
		"request_id", requestID,
		"entities", len(req.Entities),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, BatchCheckResponse{
		Success:       true,
		TotalEntities: len(req.Entities),
		Results:       findings,
		APIVersion:    APIVersion,
	})
}

// HandleHealth handles GET /health. A missing registry key degrades the
// service and answers 503. An open registry circuit is reported as degraded
// but still answers 200, since it closes on its own.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "healthy",
		Services: HealthServices{
			Cache:         connected(h.service.CacheConnected(r.Context())),
			OpenSanctions: configured(h.sources.RegistryConfigured),
			Search:        configured(h.sources.SearchConfigured),
		},
		SearchProviders: h.sources.SearchProviders,
		APIVersion:      APIVersion,
	}
	if h.sources.RegistryCircuit != nil {
		state := h.sources.RegistryCircuit.State()
		resp.Services.RegistryCircuit = string(state)
		if state != circuit.StateClosed {
			resp.Status = "degraded"
		}
	}
	status := http.StatusOK
	if !h.sources.RegistryConfigured {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

// HandleClearCache handles POST /clear-cache. Callers must already have
// passed the admin token check.
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := h.service.FlushCache(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to clear cache", "request_id", requestID, "error", err)
		if errors.Is(err, sentinel.ErrUnavailable) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "cache is not configured"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear cache"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ClearCacheResponse{
		Success:    true,
		Message:    "Cache cleared successfully",
		APIVersion: APIVersion,
	})
}

// HandleRoot handles GET / with a description of the service.
func (h *Handler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, serviceDescription())
}

// HandleInfo handles GET /api/info.
func (h *Handler) HandleInfo(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, apiInfo(h.sources.TrustedDomains))
}

// HandleNotFound answers unknown routes with the endpoint list.
func (h *Handler) HandleNotFound(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusNotFound, ErrorResponse{
		Error:              "Endpoint not found",
		AvailableEndpoints: Endpoints,
		APIVersion:         APIVersion,
	})
}

func (h *Handler) HandleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:      "Method not allowed",
		APIVersion: APIVersion,
	})
}
