// Package app opens the infrastructure shared by the API and worker processes.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/misproductos/backend/internal/cache"
	"github.com/misproductos/backend/internal/config"
	"github.com/misproductos/backend/internal/db"
	"github.com/misproductos/backend/internal/discount"
	"github.com/misproductos/backend/internal/domains"
	"github.com/misproductos/backend/internal/lock"
	"github.com/misproductos/backend/internal/obs"
	"github.com/misproductos/backend/internal/repo"
	"github.com/misproductos/backend/internal/resilience"
	"github.com/misproductos/backend/internal/tasks"
)

// Dependencies enumerates the connections and services shared across modules.
type Dependencies struct {
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Queries    *db.Queries
	TaskClient *asynq.Client
	Discounts  *discount.Service
	Directory  *domains.Directory

	logger zerolog.Logger
}

// Open connects to Postgres and Redis, applies migrations when enabled and
// assembles the pricing services. appName tags database sessions.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, appName string) (*Dependencies, error) {
	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	pool, err := NewPool(ctx, cfg, appName)
	if err != nil {
		return nil, err
	}
	rdb, err := NewRedis(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("parse asynq redis url: %w", err)
	}

	d := &Dependencies{
		DB:         pool,
		Redis:      rdb,
		Queries:    db.New(pool),
		TaskClient: asynq.NewClient(redisOpt),
		logger:     logger,
	}
	d.Discounts = &discount.Service{
		Rules:     repo.DiscountRulesTenantRepo{Q: d.Queries},
		Settings:  repo.SettingsTenantRepo{Q: d.Queries},
		Cache:     cache.New(rdb, cfg.PricingCacheTTL),
		Validator: discount.NewValidator(),
		Tasks: &tasks.Enqueuer{
			Client:   d.TaskClient,
			Queue:    cfg.TaskQueue,
			MaxRetry: cfg.WarmTaskMaxRetry,
		},
		Logger: &d.logger,
		Lock:   lock.Locker{R: rdb, Wait: 2 * time.Second},
		Breaker: resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
			WithTarget("pricing_store").
			WithLogger(logger).
			WithIgnore(discount.IsClientError),
	}
	d.Directory = &domains.Directory{
		Q:       d.Queries,
		Cache:   cache.New(rdb, cfg.DomainCacheTTL),
		MissTTL: cfg.DomainMissTTL,
		Logger:  &d.logger,
		Breaker: resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
			WithTarget("tenant_directory").
			WithLogger(logger).
			WithIgnore(discount.IsClientError),
	}
	return d, nil
}

// Close releases every connection. Safe to call on a partially built value.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.TaskClient != nil {
		if err := d.TaskClient.Close(); err != nil {
			d.logger.Error().Err(err).Msg("close task client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// NewPool opens a traced pgx pool and verifies connectivity.
func NewPool(ctx context.Context, cfg *config.Config, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MinConns = int32(cfg.DBMinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis opens an instrumented Redis client and verifies connectivity.
// Instrumentation failures are logged, not fatal.
func NewRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if cfg.TracingEnabled {
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
