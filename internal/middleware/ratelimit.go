package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns middleware that limits requests per IP to maxRequests
// within the given window, backed by Redis so the limit holds across
// replicas. Returns 429 when exceeded.
//
// The counter key is scoped to the route path so /login and /register have
// independent budgets. INCR creates the key atomically; the expiry is set
// once when the key is first created, giving a fixed-window counter.
//
// If Redis is unreachable the request is allowed through: availability of
// the auth endpoints wins over strictness of the limiter.
func RateLimit(rdb *redis.Client, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := fmt.Sprintf("ratelimit:%s:%s", c.Path(), c.RealIP())

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					slog.Any("error", err),
				)
				return next(c)
			}

			if count == 1 {
				// First hit in this window -- start the clock.
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					slog.Warn("failed to set rate limit expiry", slog.Any("error", err))
				}
			}

			if count > int64(maxRequests) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "Too Many Requests",
					"message": "Rate limit exceeded. Please try again later.",
				})
			}

			return next(c)
		}
	}
}
