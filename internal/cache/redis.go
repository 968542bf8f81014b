// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Connect parses addr (a redis:// URL or host:port) and pings the server.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Cache wraps an optional Redis client. A nil client turns every call into a miss.
type Cache struct {
	rdb *redis.Client
	log *zap.Logger
}

func New(rdb *redis.Client, log *zap.Logger) *Cache {
	return &Cache{rdb: rdb, log: log}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Aside returns the cached value for key or loads it with fetch and stores it for ttl.
// Redis failures are logged and fall through to fetch.
func Aside[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	if !c.Enabled() {
		return fetch(ctx)
	}

	var cached T
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		c.log.Warn("discarding undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}

	if payload, err := json.Marshal(value); err == nil {
		if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
			c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}

// Invalidate deletes keys, logging failures.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Ping reports whether Redis answers. A disabled cache is not an error.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}
