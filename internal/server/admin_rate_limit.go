package server

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/autobill/internal/observability/logger"
	"go.uber.org/zap"
)

// AdminTriggerRateLimit throttles endpoints that start billing work, keyed by client IP.
func (s *Server) AdminTriggerRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.adminLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		allowed, retryAfter, err := s.adminLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("admin trigger rate limit check failed", zap.Error(err))
		}
		if !allowed {
			logger.FromContext(ctx).Warn("admin trigger rate limit exceeded",
				zap.String("endpoint", normalizeRateLimitEndpoint(c)),
				zap.Duration("retry_after", retryAfter),
			)
			c.Header("Retry-After", retryAfterSeconds(retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := c.FullPath()
	if endpoint == "" {
		endpoint = c.Request.URL.Path
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
