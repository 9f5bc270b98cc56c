package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/islab/coordinates-registry/internal/pkg/config"
)

const defaultDialTimeout = 5 * time.Second

// Connect opens the client used by the Redis broadcast driver and pings it
// once. The client is named after the service so broker-side CLIENT LIST
// output shows which instance holds each subscription.
func Connect(ctx context.Context, cfg config.RedisConfig, clientName string) (*redis.Client, error) {
	opts := clientOptions(cfg, clientName)
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return client, nil
}

func clientOptions(cfg config.RedisConfig, clientName string) *redis.Options {
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}
	return &redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		ClientName:  clientName,
		DialTimeout: dial,
	}
}
