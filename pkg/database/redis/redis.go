package redis

import (
	"context"
	"fmt"
	"net"

	"customerSegments/pkg/config"

	"github.com/redis/go-redis/v9"
)

// Options maps the redis section of the config onto client options.
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.IOTimeout,
		WriteTimeout: cfg.IOTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
}

// NewRedisClient connects and pings within the dial timeout. The client is
// closed again when the ping fails.
func NewRedisClient(config *config.Config) (*redis.Client, error) {
	opts := Options(config.Redis)
	client := redis.NewClient(opts)

	ctx := context.Background()
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return client, nil
}

func CloseRedisClient(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}

	return nil
}
