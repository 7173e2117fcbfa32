package middleware

import (
	"fmt"      // Key formatting
	"net/http" // HTTP status codes
	"strconv"  // Header values
	"time"     // Window length

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
)

// RateLimit allows limit requests per client IP and scope in each fixed window
func RateLimit(rdb *redis.Client, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		key := fmt.Sprintf("rate_limit:%s:%s", scope, c.ClientIP())

		ctx := c.Request.Context()
		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttl = pipe.PTTL(ctx, key)
			return nil
		})
		if err != nil {
			// Redis being down must not lock users out of login
			logrus.WithError(err).Warn("rate limit check failed")
			c.Next()
			return
		}
		count := incr.Val()
		// Any counter found without a TTL gets one, including one left behind by a failed EXPIRE
		if ttl.Val() < 0 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				logrus.WithError(err).WithField("key", key).Warn("failed to set rate limit window")
			}
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			abort(c, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		c.Next()
	}
}
