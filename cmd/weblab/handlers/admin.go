package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/modelverse/weblab/cmd/weblab/middleware"
	"github.com/modelverse/weblab/cmd/weblab/service"
	"github.com/modelverse/weblab/common/logger"
)

// AdminHandler serves maintenance operations on the cache tables
type AdminHandler struct {
	entities *service.EntityService
	populate *service.PopulateService
	log      *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(entities *service.EntityService, populate *service.PopulateService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		entities: entities,
		populate: populate,
		log:      log,
	}
}

// PopulateEntity rebuilds the cache rows of one entity from its
// repository. Author only; runs synchronously.
// POST /api/v1/entities/:id/populate
func (h *AdminHandler) PopulateEntity(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid entity id",
		})
	}

	entity, err := h.entities.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if !user.Authenticated || entity.AuthorID != user.ID {
		return c.JSON(http.StatusNotFound, map[string]interface{}{"error": "not found"})
	}

	if err := h.populate.Populate(ctx, id); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "populated",
		"entity_id": id,
	})
}
