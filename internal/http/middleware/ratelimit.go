package middleware

import (
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// SenderLimitConfig config for the Redis-based per-sender limiter.
type SenderLimitConfig struct {
	Redis     *redis.Client
	PerMinute int    // 0 disables the limiter
	KeyPrefix string // e.g. "rl:sender:"
}

// SenderLimit applies a fixed-window per-minute cap on webhook calls, keyed
// by the form From field. Callers without a From field pass through; the
// handler rejects those itself. Redis errors fail open.
func SenderLimit(cfg SenderLimitConfig) echo.MiddlewareFunc {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:sender:"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			from := c.FormValue("From")
			if from == "" || cfg.PerMinute <= 0 || cfg.Redis == nil {
				// no limit configured or redis missing (dev): allow
				return next(c)
			}

			// fixed-window key: rl:sender:{from}:{unix_min}
			now := time.Now()
			key := cfg.KeyPrefix + from + ":" + strconv.FormatInt(now.Unix()/60, 10)

			ctx := c.Request().Context()
			pipe := cfg.Redis.Pipeline()
			cnt := pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, 2*time.Minute)
			if _, err := pipe.Exec(ctx); err != nil {
				return next(c)
			}

			if cnt.Val() > int64(cfg.PerMinute) {
				// seconds until the window rolls over
				c.Response().Header().Set("Retry-After", strconv.FormatInt(60-now.Unix()%60, 10))
				return c.String(http.StatusTooManyRequests, "rate limited")
			}
			return next(c)
		}
	}
}
