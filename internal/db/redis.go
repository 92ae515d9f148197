package db

import (
	"context"
	"fmt"
	"time"

	"backend-socialgraph/internal/config"

	"github.com/redis/go-redis/v9"
)

var pingTimeout = 2 * time.Second

// ConnectRedis builds the shared store handle. REDIS_URL wins over the
// discrete address settings. An empty address yields a nil client.
func ConnectRedis(cfg config.Config) (*redis.Client, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}), nil
}

// Ping checks the store is reachable.
func Ping(ctx context.Context, rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
