package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/lindale-isd/districtops/internal/config"
	"github.com/lindale-isd/districtops/internal/importer"
	"github.com/lindale-isd/districtops/internal/logging"
	"github.com/lindale-isd/districtops/internal/recon"
	"github.com/lindale-isd/districtops/internal/registry"
	"github.com/lindale-isd/districtops/internal/sheet"
	"github.com/lindale-isd/districtops/internal/store"
	"github.com/lindale-isd/districtops/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_batch_size", cfg.Import.BatchSize,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		dbName := strings.TrimPrefix(u.Path, "/")
		slog.Info("connected to database", "name", dbName)
	} else {
		slog.Info("connected to database")
	}

	slog.Info("import templates registered", "count", registry.Count())

	// Wire the pipeline
	sheet.MaxFileSize = cfg.Import.MaxFileSize
	st := store.New(pool)
	logger := slog.Default()
	runner := importer.NewRunner(st, st, st, logger,
		importer.WithBatchSize(cfg.Import.BatchSize),
	)
	adapter := recon.NewAdapter(st, st, logger)

	server := web.NewServer(cfg, st, runner, adapter, logger)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
