package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Decision is the outcome of counting one request against a key.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts requests for a key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// StoreLimiter adapts an ulule limiter to Limiter.
type StoreLimiter struct {
	lim *limiter.Limiter
}

// NewStoreLimiter builds a limiter for rate over store.
func NewStoreLimiter(store limiter.Store, rate limiter.Rate) *StoreLimiter {
	return &StoreLimiter{lim: limiter.New(store, rate)}
}

// NewRedisLimiter parses a formatted rate ("100-M", "10-S") and backs it by Redis.
func NewRedisLimiter(client *redis.Client, prefix, formatted string) (*StoreLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", formatted, err)
	}
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("limiter store: %w", err)
	}
	return NewStoreLimiter(store, rate), nil
}

// Allow increments the counter for key.
func (l *StoreLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := l.lim.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     int(res.Limit),
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
