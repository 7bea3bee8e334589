package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/modelverse/weblab/cmd/weblab/middleware"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/cmd/weblab/service"
	"github.com/modelverse/weblab/common/logger"
)

// VersionHandler serves the cached versions and tags of an entity
type VersionHandler struct {
	entities   *service.EntityService
	lookup     *service.LookupService
	visibility *service.VisibilityService
	log        *logger.Logger
}

// NewVersionHandler creates a new version handler
func NewVersionHandler(
	entities *service.EntityService,
	lookup *service.LookupService,
	visibility *service.VisibilityService,
	log *logger.Logger,
) *VersionHandler {
	return &VersionHandler{
		entities:   entities,
		lookup:     lookup,
		visibility: visibility,
		log:        log,
	}
}

type versionResponse struct {
	SHA         string            `json:"sha"`
	Name        string            `json:"name"`
	Visibility  models.Visibility `json:"visibility"`
	CommittedAt *string           `json:"committed_at,omitempty"`
	ParsedOK    *bool             `json:"parsed_ok,omitempty"`
}

func (h *VersionHandler) toResponse(ctx context.Context, version *models.CachedEntityVersion) (*versionResponse, error) {
	name, err := h.lookup.NiceVersionName(ctx, version)
	if err != nil {
		return nil, err
	}

	resp := &versionResponse{
		SHA:        version.SHA,
		Name:       name,
		Visibility: version.Visibility,
		ParsedOK:   version.ParsedOK,
	}
	if version.CommittedAt != nil {
		s := version.CommittedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.CommittedAt = &s
	}

	return resp, nil
}

// ListVersions lists an entity's cached versions the caller may see,
// newest first
// GET /api/v1/entities/:id/versions
func (h *VersionHandler) ListVersions(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid entity id",
		})
	}

	versions, err := h.lookup.ListVersions(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	visible := make([]*versionResponse, 0, len(versions))
	for _, version := range versions {
		ok, err := h.visibility.CanViewVersion(ctx, user, id, version.Visibility)
		if err != nil {
			return respondError(c, err)
		}
		if !ok {
			continue
		}

		resp, err := h.toResponse(ctx, version)
		if err != nil {
			return respondError(c, err)
		}
		visible = append(visible, resp)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"versions": visible,
		"count":    len(visible),
	})
}

// GetVersion resolves a ref ("latest", a tag, or a commit hash) to one
// cached version
// GET /api/v1/entities/:id/versions/:ref
func (h *VersionHandler) GetVersion(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid entity id",
		})
	}

	version, err := h.lookup.GetVersion(ctx, id, c.Param("ref"))
	if err != nil {
		return respondError(c, err)
	}

	ok, err := h.visibility.CanViewVersion(ctx, user, id, version.Visibility)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{"error": "not found"})
	}

	resp, err := h.toResponse(ctx, version)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// ListTags lists an entity's cached tags
// GET /api/v1/entities/:id/tags
func (h *VersionHandler) ListTags(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid entity id",
		})
	}

	ok, err := h.visibility.CanView(ctx, user, id)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{"error": "not found"})
	}

	tags, err := h.lookup.ListTags(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Tag)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"tags":  names,
		"count": len(names),
	})
}

type setVisibilityRequest struct {
	Visibility models.Visibility `json:"visibility"`
}

// SetVisibility changes one version's visibility annotation. Author only.
// PUT /api/v1/entities/:id/versions/:sha/visibility
func (h *VersionHandler) SetVisibility(c echo.Context) error {
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

	var req setVisibilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}
	if !req.Visibility.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid visibility",
		})
	}

	if err := h.lookup.SetVisibility(ctx, id, c.Param("sha"), req.Visibility); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type markParsedRequest struct {
	ParsedOK bool `json:"parsed_ok"`
}

// MarkParsed records the outcome of parsing a version's files. Author only.
// PUT /api/v1/entities/:id/versions/:sha/parsed
func (h *VersionHandler) MarkParsed(c echo.Context) error {
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

	var req markParsedRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	if err := h.lookup.MarkParsed(ctx, id, c.Param("sha"), req.ParsedOK); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *VersionHandler) authoredBy(ctx context.Context, user models.User, id uuid.UUID) (bool, error) {
	entity, err := h.entities.Get(ctx, id)
	if err != nil {
		return false, err
	}

	return user.Authenticated && entity.AuthorID == user.ID, nil
}
