package handlers

import (
	"rentflow/internal/app"
	"rentflow/internal/handlers/middleware"
	"rentflow/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	router.Use(app.Middleware.TraceID())

	api := router.Group("/api")
	HealthHandler(api, app.Config, app.Database)
	NewInspectionHandler(*app, api).Register()
	NewSigningHandler(*app, api).Register()
	NewAmendmentHandler(*app, api).Register()

	return nil
}
