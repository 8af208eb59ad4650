package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
)

const flushBatchSize = 500

// RedisCache stores findings as JSON strings with a Redis TTL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an already-connected client.
func NewRedisCache(client *redis.Client) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisCache{client: client}, nil
}

// Get returns the stored finding or sentinel.ErrNotFound.
func (c *RedisCache) Get(ctx context.Context, entity string) (*models.AggregatedFinding, error) {
	raw, err := c.client.Get(ctx, Key(entity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var f models.AggregatedFinding
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode cached finding: %w", err)
	}
	return &f, nil
}

// Set writes finding with ttl using SET EX.
func (c *RedisCache) Set(ctx context.Context, entity string, finding *models.AggregatedFinding, ttl time.Duration) error {
	if finding == nil || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(finding)
	if err != nil {
		return fmt.Errorf("encode finding: %w", err)
	}
	if err := c.client.Set(ctx, Key(entity), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// IsConnected pings Redis.
func (c *RedisCache) IsConnected(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}

// Flush deletes every key under KeyPrefix, scanning in batches so large
// keyspaces never block the server.
func (c *RedisCache) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, KeyPrefix+"*", flushBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
