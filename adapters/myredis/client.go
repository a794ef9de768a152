package myredis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConfigOption tunes the options parsed from the Redis URL.
type ConfigOption func(*redis.Options)

// WithPoolSize overrides the connection pool size.
func WithPoolSize(size int) ConfigOption {
	return func(o *redis.Options) {
		if size > 0 {
			o.PoolSize = size
		}
	}
}

// WithDialTimeout overrides the dial timeout.
func WithDialTimeout(d time.Duration) ConfigOption {
	return func(o *redis.Options) {
		if d > 0 {
			o.DialTimeout = d
		}
	}
}

// NewRedisUniversalClient creates a universal client from a redis:// or rediss:// URL. Records
// and record events share this client, so it always talks to a single node.
func NewRedisUniversalClient(redisURL string, options ...ConfigOption) (redis.UniversalClient, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cant parse redis url: %w", err)
	}
	for _, opt := range options {
		opt(parsed)
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:              []string{parsed.Addr},
		DB:                 parsed.DB,
		Username:           parsed.Username,
		Password:           parsed.Password,
		TLSConfig:          parsed.TLSConfig,
		MaxRetries:         parsed.MaxRetries,
		MinRetryBackoff:    parsed.MinRetryBackoff,
		MaxRetryBackoff:    parsed.MaxRetryBackoff,
		DialTimeout:        parsed.DialTimeout,
		ReadTimeout:        parsed.ReadTimeout,
		WriteTimeout:       parsed.WriteTimeout,
		PoolSize:           parsed.PoolSize,
		MinIdleConns:       parsed.MinIdleConns,
		PoolTimeout:        parsed.PoolTimeout,
		IdleTimeout:        parsed.IdleTimeout,
		IdleCheckFrequency: parsed.IdleCheckFrequency,
	}), nil
}

// Connect creates the client and pings the server within timeout. The client is closed when the
// ping fails.
func Connect(ctx context.Context, redisURL string, timeout time.Duration, options ...ConfigOption) (redis.UniversalClient, error) {
	client, err := NewRedisUniversalClient(redisURL, options...)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
