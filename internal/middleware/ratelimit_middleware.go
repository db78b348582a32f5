package middleware

import (
	"context"
	"net/http"
	"strconv"

	"resume-analyzer/internal/redis"
	"resume-analyzer/internal/transport/httpdto"
	"resume-analyzer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// LoginLimiter is satisfied by *redis.RateLimiter.
type LoginLimiter interface {
	AllowLogin(ctx context.Context, ip string) (*redis.RateLimitResult, error)
	ResetLogin(ctx context.Context, ip string) error
}

// RateLimitMiddleware limits login attempts per client IP. A successful login
// clears the counter so only failed attempts accumulate.
func RateLimitMiddleware(limiter LoginLimiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		result, err := limiter.AllowLogin(c.Request.Context(), ip)
		if err != nil {
			if l != nil {
				l.WithContext(c.Request.Context()).Sugar().Errorf("rate limit check failed: %v", err)
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("rate limit unavailable", httpdto.CodeServiceUnavailable))
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.Header("Retry-After", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("too many login attempts", httpdto.CodeRateLimited))
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			if err := limiter.ResetLogin(c.Request.Context(), ip); err != nil && l != nil {
				l.WithContext(c.Request.Context()).Sugar().Warnf("rate limit reset failed: %v", err)
			}
		}
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
