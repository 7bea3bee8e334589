package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/modelverse/weblab/cmd/weblab/service"
	"github.com/modelverse/weblab/common/queue"
)

// respondError maps service error kinds onto HTTP responses. Objects the
// caller may not see answer 404 like objects that do not exist, so the
// response never leaks which private entities are out there.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrCacheMiss):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "version not found in cache",
			"hint":  "repopulation may be required",
		})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "not found",
		})
	case errors.Is(err, service.ErrVersionConflict):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "version changed concurrently",
			"hint":  "retry after repopulation settles",
		})
	case errors.Is(err, queue.ErrFull):
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"error": "service busy, try again later",
		})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "internal error",
		})
	}
}
