package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/cache"
	apperr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/logger"
	"github.com/oggyb/ember/internal/utils/response"
)

const rateLimitWindow = time.Minute

// RateLimitConfig defines rate limiting parameters.
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// RateLimit returns a fixed-window rate limiting middleware using Redis.
func RateLimit(rc *cache.RedisCache, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s", clientID(c))

		count, err := rc.IncrWithExpire(c.Request.Context(), key, rateLimitWindow)
		if err != nil {
			// On Redis error, allow the request but log the error
			logger.FromContext(c.Request.Context()).Warn("rate limit unavailable", "err", err)
			c.Next()
			return
		}

		limit := cfg.RequestsPerMinute
		remaining := limit - int(count)
		if remaining < 0 {
			remaining = 0
		}

		reset := time.Now().Add(rateLimitWindow)
		if ttl, err := rc.TTL(c.Request.Context(), key); err == nil && ttl > 0 {
			reset = time.Now().Add(ttl)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if int(count) > limit+cfg.BurstSize {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(reset).Seconds())+1))
			response.Error(c, apperr.ErrRateLimited)
			return
		}
		c.Next()
	}
}

// clientID keys the limiter by session/bearer token when present, else by IP.
func clientID(c *gin.Context) string {
	if tok := TokenFromRequest(c); tok != "" {
		if len(tok) > 24 {
			tok = tok[len(tok)-24:]
		}
		return "tok:" + tok
	}
	return "ip:" + c.ClientIP()
}
