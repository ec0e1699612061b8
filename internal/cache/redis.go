// Package cache provides a Redis-backed cache for annotated quote runs.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/life-quote-server/internal/domain"
)

// RedisQuoteCache stores finished quote runs so identical profiles within
// the TTL skip pricing and screening entirely.
type RedisQuoteCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
	logger     *logrus.Logger
}

// NewRedisQuoteCache creates a quote cache from the cache configuration.
func NewRedisQuoteCache(config domain.CacheConfig, logger *logrus.Logger) (*RedisQuoteCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQuoteCache{
		redis:      client,
		defaultTTL: config.DefaultTTL,
		logger:     logger,
	}, nil
}

// cachedQuotes wraps a stored quote run with cache metadata.
type cachedQuotes struct {
	Quotes    []domain.Quote `json:"quotes"`
	CachedAt  time.Time      `json:"cached_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Get retrieves a cached quote run. Any Redis failure is a cache miss so
// quoting keeps working without the cache.
func (c *RedisQuoteCache) Get(ctx context.Context, key string) ([]domain.Quote, bool) {
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithField("error", err.Error()).Warn("Quote cache read failed")
		return nil, false
	}

	var cached cachedQuotes
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false
	}

	return cached.Quotes, true
}

// Set stores a quote run under the default TTL.
func (c *RedisQuoteCache) Set(ctx context.Context, key string, quotes []domain.Quote) error {
	ttl := c.defaultTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	cached := cachedQuotes{
		Quotes:    quotes,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal quote cache entry: %w", err)
	}

	return c.redis.Set(ctx, key, jsonData, ttl).Err()
}

// InvalidatePattern removes cached runs matching a key pattern, for use
// after rule or rate updates.
func (c *RedisQuoteCache) InvalidatePattern(ctx context.Context, pattern string) error {
	keys, err := c.redis.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("failed to get keys for pattern %s: %w", pattern, err)
	}

	if len(keys) == 0 {
		return nil
	}

	return c.redis.Del(ctx, keys...).Err()
}

// Ping checks if the Redis connection is alive.
func (c *RedisQuoteCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisQuoteCache) Close() error {
	return c.redis.Close()
}
