// Package cache fronts read-mostly reference data with Redis. When Redis is
// not configured or unreachable the NoOpCache keeps callers on the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"govdocs/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Cache interface {
	// Get returns "" on a miss.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// GetJSON decodes a cached JSON value into dest. It reports whether the key was present.
func GetJSON(ctx context.Context, c Cache, key string, dest interface{}) (bool, error) {
	raw, err := c.Get(ctx, key)
	if err != nil || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, string(data), ttl)
}

type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

// New connects to Redis when REDIS_HOST is set and falls back to a no-op cache otherwise.
func New(cfg config.RedisConfig, log *logrus.Logger) Cache {
	if cfg.Host == "" {
		log.Info("REDIS_HOST not set, catalog cache disabled")
		return NewNoOpCache()
	}
	rc, err := NewRedisCache(cfg, log)
	if err != nil {
		return NewNoOpCache()
	}
	return rc
}

func NewRedisCache(cfg config.RedisConfig, log *logrus.Logger) (*RedisCache, error) {
	port := cfg.Port
	if port == "" {
		port = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, cache will be disabled")
		client.Close()
		return nil, err
	}

	log.Info("Connected to Redis cache")
	return &RedisCache{client: client, logger: log}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoOpCache is a no-op cache for when Redis is unavailable
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(ctx context.Context, key string) (string, error) { return "", nil }

func (c *NoOpCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return nil
}

func (c *NoOpCache) Delete(ctx context.Context, keys ...string) error { return nil }

func (c *NoOpCache) Close() error { return nil }
