package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/modelverse/weblab/cmd/weblab/models"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserKey is the context key for the authenticated user
	UserKey ContextKey = "user"
)

// ExtractUser extracts the X-User-ID header into a models.User. Requests
// without the header proceed as the anonymous user; visibility resolution
// decides what they may see.
func ExtractUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := c.Request().Header.Get("X-User-ID")
			if userID != "" {
				c.Set(string(UserKey), models.AuthenticatedUser(userID))
			}
			return next(c)
		}
	}
}

// GetUser returns the caller, anonymous when unauthenticated
func GetUser(c echo.Context) models.User {
	if user, ok := c.Get(string(UserKey)).(models.User); ok {
		return user
	}
	return models.AnonymousUser()
}
