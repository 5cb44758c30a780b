// Package cache connects the shared Redis client used for idempotency keys
// and rate limiting.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"ticketsale/pkg/config"
	"ticketsale/pkg/errors"
)

const pingTimeout = 5 * time.Second

// Connect dials Redis and verifies the connection before returning.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis %s", cfg.URL)
	}
	return client, nil
}
