package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/modelverse/weblab/common/ratelimit"
)

// PopulateRateLimit throttles cache repopulation requests per user.
// Repopulation is a full repository walk plus a delete-and-recreate of the
// cache tables, so a handful per window per user is plenty.
func PopulateRateLimit(limiter *ratelimit.Limiter, perUserLimit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}

			userID := c.Request().Header.Get("X-User-ID")
			if userID == "" {
				userID = "anonymous"
			}

			result, err := limiter.Check(c.Request().Context(), "populate:"+userID, perUserLimit)
			if err != nil {
				// Redis trouble should not block maintenance operations
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":       "too many repopulation requests",
					"retry_after": result.RetryAfterSeconds,
				})
			}

			return next(c)
		}
	}
}
