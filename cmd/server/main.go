// Package main is the entry point for the weighbridge API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"weighbridge/internal/config"
	corecache "weighbridge/internal/core/cache"
	"weighbridge/internal/domain/auth"
	"weighbridge/internal/domain/consistency"
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/domain/documents/invoice"
	"weighbridge/internal/domain/reports"
	infracache "weighbridge/internal/infrastructure/cache"
	v1 "weighbridge/internal/infrastructure/http/v1"
	"weighbridge/internal/infrastructure/numerator"
	"weighbridge/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting weighbridge server", "storage", cfg.App.Storage, "env", cfg.App.Env)

	tolerance, err := cfg.Tolerance()
	if err != nil {
		log.Fatalw("invalid tolerance", "error", err)
	}
	strategy := cfg.Strategy()

	// --- Storage ---
	st, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer st.Close()

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// --- Cache ---
	checks := st.checks
	var store corecache.Store
	if cfg.Redis.Addr != "" {
		client, err := infracache.NewRedisClient(infracache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalw("failed to configure redis", "error", err)
		}
		redisStore := infracache.NewRedisStore(client)
		defer redisStore.Close()
		if err := redisStore.Ping(ctx); err != nil {
			log.Warnw("redis not reachable, reads will fall back to storage", "error", err)
		}
		checks["cache"] = redisStore.Ping
		store = redisStore
	} else {
		store = infracache.NewMemoryStore()
	}
	store = infracache.Instrument(store, infracache.NewMetrics(registry))

	// --- Services ---
	numbers := numerator.New(st.counters)

	entryService := entry.NewService(entry.ServiceConfig{
		Repo:              st.entries,
		Vehicles:          st.vehicles,
		Vendors:           st.vendors,
		Plants:            st.plants,
		Materials:         st.materials,
		Numerator:         numbers,
		TxManager:         st.txm,
		NumeratorStrategy: &strategy,
		Cache:             store,
		CacheTTL:          cfg.Cache.TTL,
		Tolerance:         &tolerance,
	})
	invoiceService := invoice.NewService(invoice.ServiceConfig{
		Repo:              st.invoices,
		Entries:           st.entries,
		Vendors:           st.vendors,
		Plants:            st.plants,
		Materials:         st.materials,
		Numerator:         numbers,
		TxManager:         st.txm,
		NumeratorStrategy: &strategy,
		Cache:             store,
		CacheTTL:          cfg.Cache.TTL,
	})
	reportService := reports.NewService(st.entries, store, cfg.Cache.ReportTTL)

	consistency.Attach(consistency.NewCoordinator(store, invoiceService), entryService, invoiceService)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Entries:         entryService,
		Invoices:        invoiceService,
		Reports:         reportService,
		Logger:          log,
		JWTValidator:    auth.NewJWTService(jwtConfig(cfg)),
		ReadinessChecks: checks,
		Registry:        registry,
		Debug:           cfg.IsDevelopment(),
	})

	// --- HTTP Server ---
	port := strconv.Itoa(cfg.App.Port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func jwtConfig(cfg config.Config) auth.JWTConfig {
	jc := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
	if cfg.Auth.TokenTTL > 0 {
		jc.AccessTokenTTL = cfg.Auth.TokenTTL
	}
	return jc
}
