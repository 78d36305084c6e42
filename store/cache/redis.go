package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisCacheInterface is the L2 layer. Redis is optional and only needed
// when several instances share one database.
type RedisCacheInterface interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

// RedisCacheConfig holds the Redis connection configuration.
type RedisCacheConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() *RedisCacheConfig {
	return &RedisCacheConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "divinecanvas:",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisCache is a Redis-based L2 cache.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, config *RedisCacheConfig) (*RedisCache, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	slog.Info("Redis cache connected", "addr", config.Addr)
	return &RedisCache{client: client, keyPrefix: config.KeyPrefix}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("failed to get cache value", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, r.fullKey(key), value, ttl).Err(); err != nil {
		slog.Warn("failed to set cache value", "key", key, "error", err)
	}
}

func (r *RedisCache) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.fullKey(key)).Err(); err != nil {
		slog.Warn("failed to delete cache value", "key", key, "error", err)
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) fullKey(key string) string {
	return r.keyPrefix + key
}
