package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"hsr-monitor/internal/config"
	"hsr-monitor/internal/database"
	"hsr-monitor/internal/metrics"
	"hsr-monitor/internal/subscriber"
	"hsr-monitor/internal/watermark"
	pkgmetrics "hsr-monitor/pkg/metrics"
	"hsr-monitor/pkg/shared"
)

const serviceName = "hsr-monitor"

// app holds the resources shared by the commands.
type app struct {
	cfg         *config.Config
	redis       *redis.Client
	watermark   watermark.Store
	subscribers subscriber.Store
	collector   *pkgmetrics.Collector
	recorder    metrics.Recorder
	closers     []func() error
}

// loadConfig reads configuration, installs logging and, when requireAPI is
// set, validates it.
func loadConfig(path string, requireAPI bool) (*config.Config, error) {
	cfg, err := config.Load(path, config.NewKeyringSource())
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.LogLevel, cfg.LogFormat)

	if requireAPI {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newApp connects the optional Redis and PostgreSQL backends.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, recorder: metrics.NewNoOp()}

	if cfg.RedisAddr != "" {
		slog.Info("Connecting to Redis", "addr", cfg.RedisAddr)
		client, err := shared.ConnectRedis(ctx, cfg.RedisAddr)
		switch {
		case err == nil:
			a.redis = client
			a.closers = append(a.closers, client.Close)
			a.collector = pkgmetrics.NewCollector(serviceName, client)
			a.recorder = metrics.NewCollectorAdapter(a.collector)
		case cfg.WatermarkBackend == config.BackendRedis:
			return nil, err
		default:
			slog.Warn("Redis unavailable, metrics disabled", "error", err)
		}
	}

	if cfg.WatermarkBackend == config.BackendRedis {
		a.watermark = watermark.NewRedisStore(a.redis, "")
	} else {
		a.watermark = watermark.NewFileStore(cfg.StateFile)
	}

	subs, err := openSubscribers(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.subscribers = subs
	if db, ok := subs.(*database.DB); ok {
		a.closers = append(a.closers, db.Close)
	}

	slog.Debug("Initialized backends",
		"watermark_backend", cfg.WatermarkBackend,
		"subscribers_backend", subscribersBackend(cfg),
		"metrics", a.collector != nil,
	)
	return a, nil
}

func openSubscribers(ctx context.Context, cfg *config.Config) (subscriber.Store, error) {
	if cfg.SubscribersDSN == "" {
		return subscriber.NewFileStore(cfg.SubscribersFile), nil
	}

	slog.Info("Connecting to PostgreSQL database", "dsn", shared.MaskDSN(cfg.SubscribersDSN))
	db, err := database.NewDB(cfg.SubscribersDSN)
	if err != nil {
		return nil, fmt.Errorf("opening subscriber database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing subscriber schema: %w", err)
	}
	return db, nil
}

func subscribersBackend(cfg *config.Config) string {
	if cfg.SubscribersDSN != "" {
		return "postgres"
	}
	return "file"
}

// Close releases every backend in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
