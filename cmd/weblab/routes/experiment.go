package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/modelverse/weblab/cmd/weblab/container"
	"github.com/modelverse/weblab/cmd/weblab/handlers"
)

// RegisterExperimentRoutes registers experiment routes
func RegisterExperimentRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewExperimentHandler(c.ExperimentService, c.Components.Logger)

	experiments := e.Group("/api/v1/experiments")
	{
		experiments.POST("", h.SubmitExperiment)              // POST /api/v1/experiments
		experiments.GET("", h.ListExperiments)                // GET /api/v1/experiments?model_id=...&protocol_id=...
		experiments.GET("/:id", h.GetExperiment)              // GET /api/v1/experiments/{id}
		experiments.POST("/:id/callback", h.ExperimentCallback) // POST /api/v1/experiments/{id}/callback
	}
}
