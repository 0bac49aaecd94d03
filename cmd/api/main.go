package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/gallery-backend/api/routes"
	"github.com/angelmondragon/gallery-backend/internal/images"
	"github.com/angelmondragon/gallery-backend/internal/media"
	"github.com/angelmondragon/gallery-backend/internal/orphans"
	"github.com/angelmondragon/gallery-backend/pkg/config"
	"github.com/angelmondragon/gallery-backend/pkg/db"
	"github.com/angelmondragon/gallery-backend/pkg/logger"
	"github.com/angelmondragon/gallery-backend/pkg/metrics"
	"github.com/angelmondragon/gallery-backend/pkg/migrate"
	"github.com/angelmondragon/gallery-backend/pkg/redis"
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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	deps := routes.Dependencies{DB: dbClient}

	var recorder orphans.Recorder = orphans.NewLogRecorder(logg)
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return redisErr
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
		store, storeErr := orphans.NewStore(redisClient)
		if storeErr != nil {
			return storeErr
		}
		recorder = store
		deps.Redis = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; orphaned uploads will only be logged")
	}

	uploadMetrics := metrics.NewUploadMetrics(prometheus.DefaultRegisterer)

	provider, err := media.NewProvider(ctx, cfg, logg)
	if err != nil {
		return err
	}
	gateway, err := media.NewGateway(provider,
		media.WithTimeout(cfg.Media.UploadTimeout),
		media.WithFolder(cfg.Media.Folder),
		media.WithMetrics(uploadMetrics),
		media.WithLogger(logg),
	)
	if err != nil {
		return err
	}

	svc, err := images.NewService(images.NewRepository(dbClient.DB()), gateway, recorder, uploadMetrics, logg)
	if err != nil {
		return err
	}
	deps.Images = svc
	deps.Metrics = promhttp.Handler()

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"media_provider": gateway.ProviderName(),
	})
	logg.Info(logCtx, "starting api server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.App.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
