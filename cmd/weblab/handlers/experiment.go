package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/modelverse/weblab/cmd/weblab/middleware"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/cmd/weblab/service"
	"github.com/modelverse/weblab/common/logger"
)

// ExperimentHandler serves experiment submission, retrieval, and the
// completion callback from the simulation service
type ExperimentHandler struct {
	experiments *service.ExperimentService
	log         *logger.Logger
}

// NewExperimentHandler creates a new experiment handler
func NewExperimentHandler(experiments *service.ExperimentService, log *logger.Logger) *ExperimentHandler {
	return &ExperimentHandler{
		experiments: experiments,
		log:         log,
	}
}

// SubmitExperiment queues a model/protocol version pair for simulation
// POST /api/v1/experiments
func (h *ExperimentHandler) SubmitExperiment(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	if !user.Authenticated {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error": "authentication required",
		})
	}

	var req service.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}
	if req.ModelRef == "" || req.ProtocolRef == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "model_ref and protocol_ref are required",
		})
	}

	experiment, err := h.experiments.Submit(ctx, user, &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, experiment)
}

// GetExperiment retrieves one experiment if the caller may see both of
// its halves
// GET /api/v1/experiments/:id
func (h *ExperimentHandler) GetExperiment(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid experiment id",
		})
	}

	experiment, err := h.experiments.Get(ctx, user, id)
	if err != nil {
		return respondError(c, err)
	}

	visibility, err := h.experiments.Visibility(ctx, experiment)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"experiment": experiment,
		"visibility": visibility,
	})
}

// ListExperiments lists experiments for a model/protocol entity pair
// GET /api/v1/experiments?model_id=...&protocol_id=...
func (h *ExperimentHandler) ListExperiments(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetUser(c)

	modelID, err := uuid.Parse(c.QueryParam("model_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid model_id",
		})
	}
	protocolID, err := uuid.Parse(c.QueryParam("protocol_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid protocol_id",
		})
	}

	experiments, err := h.experiments.ListForPair(ctx, user, modelID, protocolID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"experiments": experiments,
		"count":       len(experiments),
	})
}

type callbackRequest struct {
	Status models.ExperimentStatus `json:"status"`
	Note   *string                 `json:"note,omitempty"`
}

// ExperimentCallback receives the terminal status of a run from the
// simulation service
// POST /api/v1/experiments/:id/callback
func (h *ExperimentHandler) ExperimentCallback(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid experiment id",
		})
	}

	var req callbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}
	if !req.Status.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid status",
		})
	}

	if err := h.experiments.HandleCallback(ctx, id, req.Status, req.Note); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
