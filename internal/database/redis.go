package database

import (
	"context"
	"fmt"
	"time"

	"github.com/exzly/exzly/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedis connects the session backend. Sessions are the only Redis
// consumer; token and verification state live in Postgres.
func NewRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	return client, nil
}
