package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shopgrid/catalog-engine/api/routes"
	"github.com/shopgrid/catalog-engine/internal/catalog"
	"github.com/shopgrid/catalog-engine/internal/importer"
	"github.com/shopgrid/catalog-engine/internal/inventory"
	"github.com/shopgrid/catalog-engine/internal/moderation"
	"github.com/shopgrid/catalog-engine/internal/stores"
	"github.com/shopgrid/catalog-engine/pkg/config"
	"github.com/shopgrid/catalog-engine/pkg/db"
	"github.com/shopgrid/catalog-engine/pkg/logger"
	"github.com/shopgrid/catalog-engine/pkg/metrics"
	"github.com/shopgrid/catalog-engine/pkg/migrate"
	"github.com/shopgrid/catalog-engine/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	catalogMetrics := metrics.NewCatalogMetrics(registry)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	importRepo := importer.NewRepository(dbClient.DB())
	storesRepo := stores.NewRepository(dbClient.DB())

	matcher, err := catalog.NewMatcher(catalogRepo, cfg.Matching)
	if err != nil {
		logg.Error(context.Background(), "failed to create matcher", err)
		os.Exit(1)
	}
	resolver, err := catalog.NewResolver(catalogRepo, cfg.Import.ResolveAttempts, cfg.Import.ResolveBackoff, catalogMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create resolver", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, catalogRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	catalogService, err := catalog.NewService(catalogRepo, matcher, resolver, storesRepo, inventoryService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	moderationService, err := moderation.NewService(catalogRepo, dbClient, resolver, inventoryService, cfg.Promotion.MinQualityScore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create moderation service", err)
		os.Exit(1)
	}
	importService, err := importer.NewService(importRepo, matcher, resolver, redisClient, cfg.Import, catalogMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create import service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			catalogService,
			inventoryService,
			moderationService,
			importService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
