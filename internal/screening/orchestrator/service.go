// Package orchestrator runs the per-entity screening pipeline: cache lookup,
// registry and web search fan-out, aggregation, and cache write-back.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"screener/internal/screening/metrics"
	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
	"screener/pkg/requestcontext"
)

const (
	defaultTimeout          = 15 * time.Second
	defaultCacheTTL         = time.Hour
	defaultBatchConcurrency = 4

	// MsgInvalidEntity is the summary of a failed record for blank input.
	MsgInvalidEntity = "Invalid entity name"
)

// Service screens entities. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	registry   RegistrySearcher
	web        WebSearcher
	planner    QueryPlanner
	aggregator Aggregator

	cache            Cache
	cacheTTL         time.Duration
	timeout          time.Duration
	batchConcurrency int

	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithCache enables finding caching with the given TTL.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithTimeout sets the parallel join barrier.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBatchConcurrency bounds how many batch entities run at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New wires the pipeline.
func New(registry RegistrySearcher, web WebSearcher, planner QueryPlanner, aggregator Aggregator, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, errors.New("registry searcher is required")
	}
	if web == nil {
		return nil, errors.New("web searcher is required")
	}
	if planner == nil {
		return nil, errors.New("query planner is required")
	}
	if aggregator == nil {
		return nil, errors.New("aggregator is required")
	}

	s := &Service{
		registry:         registry,
		web:              web,
		planner:          planner,
		aggregator:       aggregator,
		cacheTTL:         defaultCacheTTL,
		timeout:          defaultTimeout,
		batchConcurrency: defaultBatchConcurrency,
		logger:           slog.New(slog.DiscardHandler),
		tracer:           otel.Tracer("screener/orchestrator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Check screens one entity. It always returns a well-formed finding: blank
// input and internal failures produce a failed-status record.
func (s *Service) Check(ctx context.Context, entity string) (finding *models.AggregatedFinding) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "screening.check",
		trace.WithAttributes(attribute.String("screening.entity", entity)))
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "entity check panicked",
				"entity", entity,
				"panic", fmt.Sprint(r),
				"request_id", requestcontext.RequestID(ctx),
			)
			finding = models.FailedFinding(entity, fmt.Sprintf("Processing error: %v", r), requestcontext.Now(ctx).Unix())
		}
		span.SetAttributes(
			attribute.Bool("screening.found", finding.Found),
			attribute.String("screening.status", finding.ProcessingStatus),
		)
		span.End()
		s.metrics.IncrementFinding(finding.ProcessingStatus, finding.Found)
		s.metrics.ObserveCheck(time.Since(start))
	}()

	q, err := models.ParseEntityQuery(entity)
	if err != nil {
		return models.FailedFinding(entity, MsgInvalidEntity, requestcontext.Now(ctx).Unix())
	}

	if cached, ok := s.lookup(ctx, q); ok {
		span.SetAttributes(attribute.Bool("screening.cache_hit", true))
		return cached
	}

	finding = s.screen(ctx, q)
	s.store(ctx, q, finding)
	return finding
}

// screen runs the parallel strategy and falls back to the sequential one if
// parallel dispatch fails.
func (s *Service) screen(ctx context.Context, q models.EntityQuery) *models.AggregatedFinding {
	reg, searches, err := s.parallel(ctx, q)
	if err != nil {
		s.metrics.IncrementFallback()
		s.logger.WarnContext(ctx, "parallel dispatch failed, falling back to sequential",
			"entity", q.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		reg, searches = s.sequential(ctx, q)
	}
	return s.aggregator.Aggregate(q.String(), reg, searches...)
}

func (s *Service) lookup(ctx context.Context, q models.EntityQuery) (*models.AggregatedFinding, bool) {
	if s.cache == nil {
		return nil, false
	}
	cached, err := s.cache.Get(ctx, q.String())
	switch {
	case err == nil && cached != nil:
		s.metrics.IncrementCache("hit")
		s.logger.DebugContext(ctx, "finding served from cache", "entity", q.String())
		return cached, true
	case err == nil, errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementCache("miss")
	default:
		s.metrics.IncrementCache("error")
		s.logger.WarnContext(ctx, "cache lookup failed", "entity", q.String(), "error", err)
	}
	return nil, false
}

func (s *Service) store(ctx context.Context, q models.EntityQuery, finding *models.AggregatedFinding) {
	if s.cache == nil || finding == nil {
		return
	}
	if err := s.cache.Set(ctx, q.String(), finding, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "entity", q.String(), "error", err)
	}
}

// CacheConnected reports whether a cache is configured and reachable.
func (s *Service) CacheConnected(ctx context.Context) bool {
	return s.cache != nil && s.cache.IsConnected(ctx)
}

// FlushCache drops every cached finding.
func (s *Service) FlushCache(ctx context.Context) error {
	if s.cache == nil {
		return sentinel.ErrUnavailable
	}
	if err := s.cache.Flush(ctx); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}
	s.logger.InfoContext(ctx, "screening cache flushed", "request_id", requestcontext.RequestID(ctx))
	return nil
}
