package middleware

import (
	"context"
	"fmt"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// CheckRateLimit counts one hit for id on resource and reports whether it is within limit.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	if _, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	}); err != nil {
		return false, err
	}

	// Every counter carries the window as its expiry, including one whose
	// first EXPIRE was lost.
	if ttl.Val() < 0 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return incr.Val() <= int64(limit), nil
}

// RateLimit allows limit requests per window for each user (or IP when anonymous).
// Requests pass when Redis is unavailable.
func RateLimit(rdb *redis.Client, name string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id string
		if uid, ok := c.Get("userID"); ok {
			id = fmt.Sprintf("user:%v", uid)
		} else {
			id = "ip:" + c.ClientIP()
		}

		allowed, err := CheckRateLimit(c.Request.Context(), rdb, name, id, limit, window)
		if err != nil {
			c.Next()
			return
		}
		if !allowed {
			observability.RateLimitedTotal.WithLabelValues(name).Inc()
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			_ = c.Error(apperr.TooManyRequests())
			c.Abort()
			return
		}
		c.Next()
	}
}
