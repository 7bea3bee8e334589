package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/modelverse/weblab/cmd/weblab/container"
	"github.com/modelverse/weblab/cmd/weblab/middleware"
	"github.com/modelverse/weblab/cmd/weblab/routes"
	"github.com/modelverse/weblab/common/bootstrap"
	"github.com/modelverse/weblab/common/server"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (DB, logger, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, "weblab")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap weblab: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(ctx, components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}
	defer serviceContainer.Shutdown()

	// Consume queued experiments and forward them to the simulation service
	if err := serviceContainer.ExperimentService.StartDispatcher(ctx, components.Config.Chaste.CallbackBase); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start experiment dispatcher: %v\n", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, serviceContainer)
	registerRoutes(e, serviceContainer)

	startServer(e, serviceContainer)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.RequestID())
	e.Use(middleware.ExtractUser())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, c *container.Container) {
	e.GET("/health", func(ec echo.Context) error {
		if err := c.Components.Health(ec.Request().Context()); err != nil {
			return ec.JSON(503, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return ec.JSON(200, map[string]string{
			"status":  "ok",
			"service": "weblab",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, c *container.Container) {
	routes.RegisterEntityRoutes(e, c)
	routes.RegisterExperimentRoutes(e, c)
}

// startServer serves the Echo handler behind the graceful shutdown wrapper
func startServer(e *echo.Echo, c *container.Container) {
	srv := server.New("weblab", c.Components.Config.Service.Port, e, c.Components.Logger)
	if err := srv.Start(); err != nil {
		c.Components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
