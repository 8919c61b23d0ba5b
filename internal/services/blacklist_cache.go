// internal/services/blacklist_cache.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "token:blacklist:"

// BlacklistCache is a read-through shortcut in front of the blacklist table.
// The database stays authoritative; a cache miss falls back to it.
type BlacklistCache interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	MarkBlacklisted(ctx context.Context, jti string, ttl time.Duration) error
}

type noopBlacklistCache struct{}

func (noopBlacklistCache) IsBlacklisted(context.Context, string) (bool, error) { return false, nil }

func (noopBlacklistCache) MarkBlacklisted(context.Context, string, time.Duration) error { return nil }

type RedisBlacklistCache struct {
	client *redis.Client
}

// NewRedisBlacklistCache connects to url (redis://host:port/db) and pings it.
func NewRedisBlacklistCache(ctx context.Context, url string) (*RedisBlacklistCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisBlacklistCache{client: client}, nil
}

func (c *RedisBlacklistCache) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	err := c.client.Get(ctx, blacklistKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisBlacklistCache) MarkBlacklisted(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, blacklistKeyPrefix+jti, 1, ttl).Err()
}

func (c *RedisBlacklistCache) Close() error {
	return c.client.Close()
}
