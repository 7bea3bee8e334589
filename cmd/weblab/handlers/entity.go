package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/modelverse/weblab/cmd/weblab/middleware"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/cmd/weblab/service"
	"github.com/modelverse/weblab/common/logger"
)

// EntityHandler handles entity CRUD and listing requests
type EntityHandler struct {
	entities   *service.EntityService
	visibility *service.VisibilityService
	lookup     *service.LookupService
	filter     *service.EntityFilter
	log        *logger.Logger
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(
	entities *service.EntityService,
	visibility *service.VisibilityService,
	lookup *service.LookupService,
	filter *service.EntityFilter,
	log *logger.Logger,
) *EntityHandler {
	return &EntityHandler{
		entities:   entities,
		visibility: visibility,
		lookup:     lookup,
		filter:     filter,
		log:        log,
	}
}

// CreateEntityRequest is the payload for creating an entity
type CreateEntityRequest struct {
	Kind models.EntityKind `json:"kind"`
	Name string            `json:"name"`
}

// CreateEntity creates a new entity and its repository
// POST /api/v1/entities
func (h *EntityHandler) CreateEntity(c echo.Context) error {
	user := middleware.GetUser(c)
	if !user.Authenticated {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error": "authentication required",
		})
	}

	var req CreateEntityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	entity, err := h.entities.Create(c.Request().Context(), req.Kind, req.Name, user.ID)
	if err != nil {
		h.log.Error("failed to create entity", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, entity)
}

// ListEntities lists entities visible to the caller, optionally filtered
// by kind, by a CEL filter expression, or restricted to the moderated set
// GET /api/v1/entities?kind=model&filter=visibility=="public"&moderated=1
func (h *EntityHandler) ListEntities(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	var kind *models.EntityKind
	if k := c.QueryParam("kind"); k != "" {
		entityKind := models.EntityKind(k)
		if !entityKind.Valid() {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "invalid entity kind",
			})
		}
		kind = &entityKind
	}

	visibleIDs, err := h.visibility.VisibleEntityIDs(ctx, user)
	if err != nil {
		h.log.Error("failed to resolve visible entities", "error", err)
		return respondError(c, err)
	}
	visible := make(map[uuid.UUID]bool, len(visibleIDs))
	for _, id := range visibleIDs {
		visible[id] = true
	}

	// moderated=1 narrows the listing to entities whose latest version is
	// exactly moderated (the moderation review queue)
	if m := c.QueryParam("moderated"); m == "1" || m == "true" {
		moderatedIDs, err := h.visibility.ModeratedEntityIDs(ctx, kind)
		if err != nil {
			h.log.Error("failed to resolve moderated entities", "error", err)
			return respondError(c, err)
		}
		moderated := make(map[uuid.UUID]bool, len(moderatedIDs))
		for _, id := range moderatedIDs {
			moderated[id] = true
		}
		for id := range visible {
			if !moderated[id] {
				delete(visible, id)
			}
		}
	}

	entities, err := h.entities.List(ctx, kind)
	if err != nil {
		h.log.Error("failed to list entities", "error", err)
		return respondError(c, err)
	}

	filterExpr := c.QueryParam("filter")

	listings := make([]*service.EntityListing, 0, len(entities))
	for _, entity := range entities {
		if !visible[entity.ID] {
			continue
		}

		entityVisibility, err := h.visibility.EntityVisibility(ctx, entity.ID)
		if err != nil {
			h.log.Error("failed to resolve entity visibility", "entity_id", entity.ID, "error", err)
			return respondError(c, err)
		}

		listing := &service.EntityListing{
			Entity:     entity,
			Visibility: entityVisibility,
		}
		if version, err := h.lookup.GetVersion(ctx, entity.ID, service.LatestRef); err == nil {
			listing.LatestSHA = version.SHA
		}

		if filterExpr != "" {
			match, err := h.filter.Matches(filterExpr, listing)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]interface{}{
					"error": err.Error(),
				})
			}
			if !match {
				continue
			}
		}

		listings = append(listings, listing)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"entities": listings,
	})
}

// GetEntity retrieves one entity if the caller may see it
// GET /api/v1/entities/:id
func (h *EntityHandler) GetEntity(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid entity id",
		})
	}

	canView, err := h.visibility.CanView(ctx, user, id)
	if err != nil {
		return respondError(c, err)
	}
	if !canView {
		return c.JSON(http.StatusNotFound, map[string]interface{}{"error": "not found"})
	}

	entity, err := h.entities.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	entityVisibility, err := h.visibility.EntityVisibility(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"entity":     entity,
		"visibility": entityVisibility,
	})
}

// PatchEntity applies a JSON merge patch to entity metadata
// PATCH /api/v1/entities/:id
func (h *EntityHandler) PatchEntity(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid entity id",
		})
	}

	ok, err := h.authoredBy(ctx, user, id)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{"error": "not found"})
	}

	patch, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "failed to read request body",
		})
	}

	entity, err := h.entities.PatchMetadata(ctx, id, patch)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, entity)
}

// DeleteEntity removes an entity, its cache, and its repository
// DELETE /api/v1/entities/:id
func (h *EntityHandler) DeleteEntity(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid entity id",
		})
	}

	ok, err := h.authoredBy(ctx, user, id)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{"error": "not found"})
	}

	if err := h.entities.Delete(ctx, id); err != nil {
		h.log.Error("failed to delete entity", "entity_id", id, "error", err)
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// CollaboratorRequest names a user for grant changes
type CollaboratorRequest struct {
	UserID string `json:"user_id"`
}

// AddCollaborator grants a user viewer access
// POST /api/v1/entities/:id/collaborators
func (h *EntityHandler) AddCollaborator(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid entity id",
		})
	}

	ok, err := h.authoredBy(ctx, user, id)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{"error": "not found"})
	}

	var req CollaboratorRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "user_id is required",
		})
	}

	if err := h.entities.AddCollaborator(ctx, id, req.UserID); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// RemoveCollaborator revokes a user's viewer access
// DELETE /api/v1/entities/:id/collaborators/:user
func (h *EntityHandler) RemoveCollaborator(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid entity id",
		})
	}

	ok, err := h.authoredBy(ctx, user, id)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{"error": "not found"})
	}

	if err := h.entities.RemoveCollaborator(ctx, id, c.Param("user")); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// authoredBy reports whether the entity exists and user is its author.
// Mutations are author-only.
func (h *EntityHandler) authoredBy(ctx context.Context, user models.User, id uuid.UUID) (bool, error) {
	entity, err := h.entities.Get(ctx, id)
	if err != nil {
		return false, err
	}

	return user.Authenticated && entity.AuthorID == user.ID, nil
}
