package redis

import (
	"context"
	"fmt"
	"time"

	"fleet-track/internal/general/config"
	"fleet-track/internal/general/logger"

	"github.com/redis/go-redis/v9"
)

// Connect creates a Redis client and verifies connectivity.
func Connect(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info(ctx, "redis_connected", "Connected to Redis", map[string]any{
		"addr": cfg.Redis.Addr,
	})

	return client, nil
}
