// Package redis opens the shared redis used for rate limiting and the
// catalog cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/version"
)

const (
	clientName  = "salla-funnerlife"
	pingTimeout = 5 * time.Second
)

// Open parses a redis:// or rediss:// URL and checks the server answers
// before returning the client.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if opt.ClientName == "" {
		opt.ClientName = clientName + "-" + version.Get()
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
