package cache

import (
	"context"
	"time"
)

// Blacklist marks an access token id as revoked until it would have expired anyway.
func (c *Cache) Blacklist(ctx context.Context, jti string, until time.Time) error {
	if !c.Enabled() || jti == "" {
		return nil
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, BlacklistKey(jti), 1, ttl).Err()
}

// IsBlacklisted reports whether jti was revoked. It fails open when Redis is unavailable.
func (c *Cache) IsBlacklisted(ctx context.Context, jti string) bool {
	if !c.Enabled() || jti == "" {
		return false
	}
	n, err := c.rdb.Exists(ctx, BlacklistKey(jti)).Result()
	return err == nil && n > 0
}
