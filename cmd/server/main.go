package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"screener/internal/app"
	"screener/internal/platform/config"
	"screener/internal/platform/httpserver"
	"screener/internal/platform/logger"
	"screener/internal/platform/metrics"
	"screener/internal/platform/middleware"
	"screener/internal/screening/handler"
	httptransport "screener/internal/transport/http"
)

// main wires dependencies, exposes the HTTP router and keeps the server
// lifecycle small. Business logic lives in internal/screening.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Log)

	for _, problem := range cfg.Validate() {
		log.Warn("configuration problem", "error", problem)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx := context.Background()
	screening, err := app.New(ctx, cfg, log, reg)
	if err != nil {
		log.Error("failed to build screening pipeline", "error", err)
		os.Exit(1)
	}

	h := handler.New(screening.Service, screening.Sources, cfg.Screening.MaxEntities, log)
	router := httptransport.NewRouter(h, httptransport.RouterConfig{
		AdminToken: cfg.Auth.AdminToken,
		APIKeys: middleware.APIKeyConfig{
			Enabled: cfg.Auth.RequireAPIKey,
			Header:  cfg.Auth.APIKeyHeader,
			Keys:    cfg.Auth.APIKeys,
		},
		RequestTimeout: requestTimeout(cfg),
		Gatherer:       reg,
	}, metrics.New(reg), log)

	srv := httpserver.New(cfg.Server.Addr, router, requestTimeout(cfg)+5*time.Second)

	log.Info("starting screener",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"registry_configured", screening.Sources.RegistryConfigured,
		"search_configured", screening.Sources.SearchConfigured,
		"search_mode", cfg.WebSearch.Mode,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := screening.Close(); err != nil {
		log.Error("failed to release resources", "error", err)
	}
	log.Info("screener stopped")
}

// requestTimeout bounds a whole /check request: a full batch runs in waves of
// BATCH_CONCURRENCY entities, each bounded by the parallel barrier.
func requestTimeout(cfg config.Config) time.Duration {
	workers := max(cfg.Screening.BatchConcurrency, 1)
	waves := (max(cfg.Screening.MaxEntities, 1) + workers - 1) / workers
	return time.Duration(waves+1) * cfg.Screening.ParallelTimeout
}
