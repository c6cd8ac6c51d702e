// Package cache keeps fetched job lists in redis so that runs started close together share them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/sources"
)

const (
	keyPrefix  = "job-alert:fetch:"
	DefaultTTL = 30 * time.Minute
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Redis stores JSON encoded values with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New parses redisURL and verifies the connection.
func New(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.Duration("ttl", ttl))
	return &Redis{client: client, ttl: ttl, logger: logger}, nil
}

func (c *Redis) Close() error {
	return c.client.Close()
}

func (c *Redis) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Error("failed to set cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("set cache: %w", err)
	}
	return nil
}

func (c *Redis) Get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		c.logger.Error("failed to get cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("get cache: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

// Through returns the cached list for key or calls fetch and stores its result.
// Cache errors are logged and never fail the fetch.
func (c *Redis) Through(ctx context.Context, key string, fetch func(context.Context) (jobs.List, error)) (jobs.List, error) {
	var cached jobs.List
	err := c.Get(ctx, key, &cached)
	if err == nil {
		c.logger.Debug("fetch cache hit", zap.String("key", key), zap.Int("jobs", len(cached)))
		if cached == nil {
			cached = jobs.List{}
		}
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		c.logger.Warn("fetch cache unavailable", zap.String("key", key), zap.Error(err))
	}

	list, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, key, list); err != nil {
		c.logger.Warn("fetch cache not updated", zap.String("key", key), zap.Error(err))
	}
	return list, nil
}

// Fetcher fetches the jobs of a source set.
type Fetcher interface {
	Fetch(ctx context.Context, names []string) (jobs.List, error)
}

type cachedFetcher struct {
	cache *Redis
	next  Fetcher
}

// Wrap returns a Fetcher that shares fetched lists through redis, keyed by the source set.
func (c *Redis) Wrap(next Fetcher) Fetcher {
	return &cachedFetcher{cache: c, next: next}
}

func (f *cachedFetcher) Fetch(ctx context.Context, names []string) (jobs.List, error) {
	return f.cache.Through(ctx, sources.SetKey(names), func(ctx context.Context) (jobs.List, error) {
		return f.next.Fetch(ctx, names)
	})
}
