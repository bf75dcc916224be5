package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
	"github.com/linkboard-io/linkboard-api/pkg/response"
)

type rateLimitCounter interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitConfig tunes the fixed-window limiter on the public share
// surface.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// RateLimit caps requests per client IP per uid using a fixed redis
// window. It runs before share lookup so a flood of requests against
// one uid cannot burn database reads. When redis is unavailable the
// limiter fails open.
func RateLimit(counter rateLimitCounter, cfg RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Requests <= 0 {
		cfg.Requests = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:share:%s:%s", c.Param("uid"), c.ClientIP())
		count, err := counter.IncrementWindow(c.Request.Context(), key, cfg.Window)
		if err != nil {
			logger.Sugar().Warnw("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if count > int64(cfg.Requests) {
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
