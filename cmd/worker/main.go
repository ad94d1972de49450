package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/internal/catalog"
	"github.com/shopgrid/catalog-engine/internal/importer"
	"github.com/shopgrid/catalog-engine/pkg/config"
	"github.com/shopgrid/catalog-engine/pkg/db"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
	"github.com/shopgrid/catalog-engine/pkg/logger"
	"github.com/shopgrid/catalog-engine/pkg/metrics"
	"github.com/shopgrid/catalog-engine/pkg/redis"
)

// The worker drains queued import jobs. The API kicks jobs inline after a
// commit; this binary picks up anything left behind by a crashed or
// restarted instance.
func main() {
	logg := logger.New(logger.Options{ServiceName: "import-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "import-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	catalogMetrics := metrics.NewCatalogMetrics(nil)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	importRepo := importer.NewRepository(dbClient.DB())

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
	importService, err := importer.NewService(importRepo, matcher, resolver, redisClient, cfg.Import, catalogMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create import service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting import worker")

	pollLoop(ctx, cfg.Import.PollInterval, importRepo, importService, logg)
	logg.Info(ctx, "import worker shutting down")
}

func pollLoop(ctx context.Context, interval time.Duration, repo *importer.Repository, svc importer.Service, logg *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drainQueue(ctx, repo, svc, logg)
		}
	}
}

func drainQueue(ctx context.Context, repo *importer.Repository, svc importer.Service, logg *logger.Logger) {
	for {
		job, err := repo.NextQueued(ctx)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				logg.Error(ctx, "poll queued import jobs", err)
			}
			return
		}

		jobCtx := logg.WithJobID(ctx, job.ID.String())
		logg.Info(jobCtx, "running queued import job")

		if err := svc.Run(ctx, job.ID); err != nil {
			// Another runner may have claimed it first; anything else is real.
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
				logg.Error(jobCtx, "import job run failed", err)
				return
			}
		}
	}
}
