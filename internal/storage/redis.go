package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Backend = (*RedisBackend)(nil)

const rateLimitKeyPrefix = "ratelimit:"

type RedisConfig struct {
	Client *redis.Client
	// Limit is the number of requests allowed per Window.
	Limit  int
	Window time.Duration
}

// RedisBackend rate limits across every server instance sharing one redis.
type RedisBackend struct {
	client     *redis.Client
	rateLimit  int
	rateWindow time.Duration
}

func NewRedisBackend(cfg RedisConfig) *RedisBackend {
	window := cfg.Window
	if window <= 0 {
		window = time.Second
	}
	return &RedisBackend{
		client:     cfg.Client,
		rateLimit:  max(cfg.Limit, 1),
		rateWindow: window,
	}
}

func (r *RedisBackend) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	params := rateLimitParams{
		window: r.rateWindow,
		limit:  r.rateLimit,
		ttl:    r.rateWindow + time.Second,
	}

	allowed, err := runRateLimitScript(ctx, r.client, rateLimitKeyPrefix+key, params)
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return RateLimitResult{
		Allowed:    allowed,
		RetryAfter: r.rateWindow,
	}, nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
