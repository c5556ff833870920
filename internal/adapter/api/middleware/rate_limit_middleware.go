package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"karsaz/internal/infrastructure/ratelimit"
	"karsaz/pkg/errors"
	"karsaz/pkg/logger"
	"karsaz/pkg/response"
)

// RateLimit limits requests per authenticated user, or per client IP when
// the route is public.
func RateLimit(limiter *ratelimit.RateLimiter, message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := UserID(c)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, wait := limiter.Allow(key)
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
			if !allowed {
				logger.Security("rate limit exceeded", "key", key, "path", c.Path(), "retry_after", wait.String())
				return response.Error(c, errors.TooManyRequests(message, wait))
			}
			return next(c)
		}
	}
}
