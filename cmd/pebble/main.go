package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/carrel-labs/pebble"
	"github.com/carrel-labs/pebble/internal/catalog"
	"github.com/carrel-labs/pebble/internal/config"
	logpkg "github.com/carrel-labs/pebble/internal/logger"
	"github.com/carrel-labs/pebble/internal/metrics"
	chiTransport "github.com/carrel-labs/pebble/internal/transport/chi"
	"github.com/carrel-labs/pebble/internal/version"
	"github.com/carrel-labs/pebble/query"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pebble catalog server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	metrics.Register()

	ctx := context.Background()
	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer st.close()
	logger.Info("Connected to database")

	if *cfg.Database.MigrateOnStart {
		if err := catalog.Migrate(ctx, st.sql, cfg.Database.Driver, logger); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	var opts []pebble.Option
	opts = append(opts, pebble.WithDefaultPageSize(cfg.Query.DefaultPageSize))
	if cfg.Query.ConcurrentCount {
		opts = append(opts, pebble.WithConcurrentCount())
	}
	repo := catalog.New(st.sql, st.reader, opts...)

	if cfg.Database.SeedSampleItems {
		if err := seedIfEmpty(ctx, repo); err != nil {
			logger.Fatal("Failed to seed sample items", zap.Error(err))
		}
	}

	server := chiTransport.NewServer(repo, st.sql, time.Duration(cfg.Query.TimeoutSec)*time.Second, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

const sampleItems = 40

// seedIfEmpty fills an empty catalog with generated items.
func seedIfEmpty(ctx context.Context, repo *catalog.Repository) error {
	res, err := repo.SearchItems(ctx, &query.SearchQuery{FindAll: true, Length: 1})
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}
	if res.Metadata.ResultTotalItems > 0 {
		return nil
	}
	return repo.SeedSample(ctx, sampleItems)
}
