package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	httpadapter "github.com/satreflabs/tropo-correction-service/internal/adapter/http"
	kafkaadapter "github.com/satreflabs/tropo-correction-service/internal/adapter/kafka"
	"github.com/satreflabs/tropo-correction-service/internal/adapter/registry"
	"github.com/satreflabs/tropo-correction-service/internal/config"
	"github.com/satreflabs/tropo-correction-service/internal/observability"
	"github.com/satreflabs/tropo-correction-service/internal/pipeline"
	"github.com/satreflabs/tropo-correction-service/internal/tropo"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Station registry: Postgres when DATABASE_URL is set, otherwise the
	// seed file loaded into memory.
	var resolver tropo.StationResolver
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = registry.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open station database", "error", err)
			os.Exit(1)
		}
		if err := registry.InitSchema(db); err != nil {
			logger.Error("failed to initialize station schema", "error", err)
			os.Exit(1)
		}
		// Seeding is an idempotent upsert, safe to repeat on every start.
		if err := registry.SeedFromJSON(db, cfg.StationSeedPath); err != nil {
			logger.Error("failed to seed stations", "error", err, "path", cfg.StationSeedPath)
			os.Exit(1)
		}
		resolver = registry.NewPostgresRegistry(db, logger, metrics)
		logger.Info("station registry backed by postgres")
	} else {
		static, err := registry.LoadStaticRegistry(cfg.StationSeedPath)
		if err != nil {
			logger.Error("failed to load station seed file", "error", err, "path", cfg.StationSeedPath)
			os.Exit(1)
		}
		resolver = static
		logger.Info("station registry loaded from seed file", "path", cfg.StationSeedPath)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		resolver = registry.NewCachedResolver(resolver, redisClient, cfg.StationCacheTTL, logger, metrics)
		logger.Info("station cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.StationCacheTTL)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(resolver, cfg.UseSeasonal, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	api := httpadapter.NewAPI(resolver, cfg.UseSeasonal, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, api, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start correction pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
