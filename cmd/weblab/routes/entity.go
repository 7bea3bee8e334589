package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/modelverse/weblab/cmd/weblab/container"
	"github.com/modelverse/weblab/cmd/weblab/handlers"
	commonmw "github.com/modelverse/weblab/common/middleware"
)

// RegisterEntityRoutes registers entity, version, and cache maintenance routes
func RegisterEntityRoutes(e *echo.Echo, c *container.Container) {
	log := c.Components.Logger

	h := handlers.NewEntityHandler(c.EntityService, c.VisibilityService, c.LookupService, c.Filter, log)
	vh := handlers.NewVersionHandler(c.EntityService, c.LookupService, c.VisibilityService, log)
	ah := handlers.NewAdminHandler(c.EntityService, c.PopulateService, log)

	entities := e.Group("/api/v1/entities")
	{
		entities.POST("", h.CreateEntity)          // POST /api/v1/entities
		entities.GET("", h.ListEntities)           // GET /api/v1/entities?kind=model&filter=...
		entities.GET("/:id", h.GetEntity)          // GET /api/v1/entities/{id}
		entities.PATCH("/:id", h.PatchEntity)      // PATCH /api/v1/entities/{id}
		entities.DELETE("/:id", h.DeleteEntity)    // DELETE /api/v1/entities/{id}

		entities.POST("/:id/collaborators", h.AddCollaborator)            // POST /api/v1/entities/{id}/collaborators
		entities.DELETE("/:id/collaborators/:user", h.RemoveCollaborator) // DELETE /api/v1/entities/{id}/collaborators/{user}

		entities.GET("/:id/versions", vh.ListVersions)                    // GET /api/v1/entities/{id}/versions
		entities.GET("/:id/versions/:ref", vh.GetVersion)                 // GET /api/v1/entities/{id}/versions/{ref}
		entities.GET("/:id/tags", vh.ListTags)                            // GET /api/v1/entities/{id}/tags
		entities.PUT("/:id/versions/:sha/visibility", vh.SetVisibility)   // PUT /api/v1/entities/{id}/versions/{sha}/visibility
		entities.PUT("/:id/versions/:sha/parsed", vh.MarkParsed)          // PUT /api/v1/entities/{id}/versions/{sha}/parsed

		// Populate is expensive; a per-user fixed window keeps one user
		// from monopolizing it.
		entities.POST("/:id/populate", ah.PopulateEntity,
			commonmw.PopulateRateLimit(c.Limiter, c.Components.Config.RateLimit.PopulatePerMinute))
	}
}
