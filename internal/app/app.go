// Package app builds the screening pipeline from configuration. Both the HTTP
// server and the operator CLI start from here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"screener/internal/platform/config"
	platformredis "screener/internal/platform/redis"
	"screener/internal/screening/aggregate"
	"screener/internal/screening/cache"
	"screener/internal/screening/handler"
	"screener/internal/screening/metrics"
	"screener/internal/screening/orchestrator"
	"screener/internal/screening/planner"
	"screener/internal/screening/registry"
	"screener/internal/screening/trust"
	"screener/internal/screening/websearch"
	"screener/pkg/platform/circuit"
)

// App is the wired pipeline plus the resources it owns.
type App struct {
	Service *orchestrator.Service
	Sources handler.Sources
	Metrics *metrics.Metrics

	redis *platformredis.Client
}

// New wires clients, cache and orchestrator. Redis is optional: when it is
// not configured or unreachable the in-memory cache is used instead.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	breaker := circuit.New("registry")
	registryClient := registry.New(cfg.Registry.APIKey,
		registry.WithBaseURL(cfg.Registry.BaseURL),
		registry.WithTimeout(cfg.Registry.Timeout),
		registry.WithCollections(cfg.Registry.Collections...),
		registry.WithBreaker(breaker),
		registry.WithLogger(logger),
	)
	searchClient := websearch.New(cfg.WebSearch.APIKey,
		websearch.WithBaseURL(cfg.WebSearch.BaseURL),
		websearch.WithTimeout(cfg.WebSearch.Timeout),
		websearch.WithLimit(cfg.WebSearch.Limit),
		websearch.WithLogger(logger),
	)

	trustOpts := make([]trust.Option, 0, len(cfg.Screening.ExtraTrustedSource))
	for _, src := range cfg.Screening.ExtraTrustedSource {
		trustOpts = append(trustOpts, trust.WithSource(src.Domain, src.Name))
	}
	filter := trust.New(trustOpts...)
	aggregator, err := aggregate.New(filter, aggregate.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("build aggregator: %w", err)
	}

	a := &App{
		Sources: handler.Sources{
			RegistryConfigured: registryClient.IsConfigured(),
			SearchConfigured:   searchClient.IsConfigured(),
			SearchProviders:    searchClient.Providers(),
			TrustedDomains:     filter.Domains(),
			RegistryCircuit:    breaker,
		},
		Metrics: metrics.New(reg),
	}

	store, err := a.openCache(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}

	a.Service, err = orchestrator.New(
		registryClient,
		searchClient,
		planner.New(planner.WithMultiQuery(cfg.WebSearch.Mode == config.SearchModeMulti)),
		aggregator,
		orchestrator.WithCache(store, cfg.Screening.CacheTTL),
		orchestrator.WithTimeout(cfg.Screening.ParallelTimeout),
		orchestrator.WithBatchConcurrency(cfg.Screening.BatchConcurrency),
		orchestrator.WithMetrics(a.Metrics),
		orchestrator.WithLogger(logger),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	return a, nil
}

func (a *App) openCache(ctx context.Context, cfg config.Redis, logger *slog.Logger) (orchestrator.Cache, error) {
	client, err := platformredis.New(ctx, cfg)
	if err != nil {
		logger.WarnContext(ctx, "redis unavailable, using in-memory cache", "error", err)
		return cache.NewInMemoryCache(), nil
	}
	if client == nil {
		logger.InfoContext(ctx, "redis not configured, using in-memory cache")
		return cache.NewInMemoryCache(), nil
	}

	store, err := cache.NewRedisCache(client.Client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("build redis cache: %w", err)
	}
	a.redis = client
	logger.InfoContext(ctx, "redis cache connected")
	return store, nil
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.redis == nil {
		return nil
	}
	err := a.redis.Close()
	a.redis = nil
	if err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
