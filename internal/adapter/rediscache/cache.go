// Package rediscache shares routing lookup results across runs through Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
)

const (
	defaultTimeout = 5 * time.Second
	keyPrefix      = "distmatrix:"
)

// Config captures the settings for establishing a Redis connection.
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

// Connect initialises a Redis client and validates connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Cache stores lookup results as JSON. Entries expire after the TTL; a zero
// TTL keeps them forever.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps client.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached result for key, if any.
func (c *Cache) Get(ctx context.Context, key string) (domain.LookupResult, bool, error) {
	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.LookupResult{}, false, nil
	}
	if err != nil {
		return domain.LookupResult{}, false, fmt.Errorf("redis get: %w", err)
	}
	result, err := decode(data)
	if err != nil {
		return domain.LookupResult{}, false, err
	}
	return result, true, nil
}

// Set stores result under key.
func (c *Cache) Set(ctx context.Context, key string, result domain.LookupResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode lookup result: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func redisKey(key string) string {
	return keyPrefix + key
}

func decode(data []byte) (domain.LookupResult, error) {
	var result domain.LookupResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.LookupResult{}, fmt.Errorf("decode cached lookup result: %w", err)
	}
	if result.Status == "" {
		return domain.LookupResult{}, errors.New("decode cached lookup result: missing status")
	}
	return result, nil
}
