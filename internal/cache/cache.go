// Package cache owns the Redis connection backing the revocation and
// pending-signup stores.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/koru-app/koru/internal/config"
	"github.com/redis/go-redis/v9"
)

// New connects to Redis and verifies the connection
func New(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Cache.Addr, err)
	}

	return client, nil
}
