// Command curator runs the asset-repository service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Mindburn-Labs/curator/pkg/api"
	"github.com/Mindburn-Labs/curator/pkg/assets"
	"github.com/Mindburn-Labs/curator/pkg/config"
	"github.com/Mindburn-Labs/curator/pkg/content"
	"github.com/Mindburn-Labs/curator/pkg/lifecycle"
	"github.com/Mindburn-Labs/curator/pkg/observability"
	"github.com/Mindburn-Labs/curator/pkg/store"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry, err := observability.New(ctx, &observability.Config{
		ServiceName:  "curator",
		Environment:  envName(),
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRate:   1.0,
		Enabled:      cfg.TelemetryEnabled,
		Insecure:     true,
	})
	if err != nil {
		logger.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}

	assetStore, attachmentStore, cleanup, err := openStores(ctx, cfg)
	if err != nil {
		logger.Error("failed to open document stores", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	contentStore, err := content.NewStoreFromEnv(ctx)
	if err != nil {
		logger.Error("failed to open content store", "error", err)
		os.Exit(1)
	}

	machine, err := loadLifecycle(cfg)
	if err != nil {
		logger.Error("failed to load lifecycle table", "error", err)
		os.Exit(1)
	}

	validator, err := loadValidator(cfg)
	if err != nil {
		logger.Error("failed to load asset schema", "error", err)
		os.Exit(1)
	}

	var summaries *assets.SummaryCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		summaries = assets.NewSummaryCache(redis.NewClient(opts), time.Minute, logger)
	}

	service := assets.NewService(assets.Config{
		Assets:      assetStore,
		Attachments: attachmentStore,
		Content:     contentStore,
		Machine:     machine,
		Validator:   validator,
		Summaries:   summaries,
		Logger:      logger,
	})

	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := api.RequestLogger(logger,
		telemetry.Middleware(
			limiter.Middleware(
				api.NewServer(service, logger).Routes())))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("curator listening", "port", cfg.Port, "store", cfg.StoreBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown failed", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func envName() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}

// openStores builds the asset and attachment collections on the configured
// backend. Both collections share one database.
func openStores(ctx context.Context, cfg *config.Config) (store.Store, store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemoryStore(nil), store.NewMemoryStore(nil), func() {}, nil

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, nil, err
		}
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		assetStore, err := store.NewSQLiteStore(db, "assets", nil)
		if err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		attachmentStore, err := store.NewSQLiteStore(db, "attachments", nil)
		if err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return assetStore, attachmentStore, func() { _ = db.Close() }, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		assetStore := store.NewPostgresStore(db, "assets", nil)
		if err := assetStore.Init(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		attachmentStore := store.NewPostgresStore(db, "attachments", nil)
		if err := attachmentStore.Init(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return assetStore, attachmentStore, func() { _ = db.Close() }, nil

	default:
		return nil, nil, nil, errors.New("unknown STORE_BACKEND: " + cfg.StoreBackend)
	}
}

func loadLifecycle(cfg *config.Config) (*lifecycle.Machine, error) {
	if cfg.LifecycleTablePath == "" {
		return lifecycle.Default(), nil
	}
	data, err := os.ReadFile(cfg.LifecycleTablePath)
	if err != nil {
		return nil, err
	}
	return lifecycle.FromYAML(data)
}

func loadValidator(cfg *config.Config) (*assets.Validator, error) {
	if cfg.AssetSchemaPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(cfg.AssetSchemaPath)
	if err != nil {
		return nil, err
	}
	return assets.NewValidator(data)
}
