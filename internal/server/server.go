package server

import (
	"context"
	"errors"
	"fmt"
	"rentflow/config"
	"rentflow/internal/app"
	"rentflow/internal/handlers"
	"rentflow/internal/handlers/middleware"
	"rentflow/internal/types"
	"rentflow/pkg/logger"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogs "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/helmet/v2"
)

// Signature drawings and photo metadata arrive as JSON; binary uploads go
// straight to object storage and never through this server.
const bodyLimit = 4 * 1024 * 1024

type AppServer struct {
	FiberApp *fiber.App
	log      logger.Logger
}

func fiberConfig(cfg config.Config, log logger.Logger) fiber.Config {
	fc := fiber.Config{
		ServerHeader:             fmt.Sprintf("RentflowAPI/%s", cfg.GeneralVersion),
		AppName:                  "rentflow_server",
		BodyLimit:                bodyLimit,
		ReadBufferSize:           16384,
		WriteBufferSize:          16384,
		EnableSplittingOnParsers: true,
		EnableTrustedProxyCheck:  true,
		ReadTimeout:              30 * time.Second,
		WriteTimeout:             30 * time.Second,
		IdleTimeout:              120 * time.Second,
		DisableStartupMessage:    true,
		ErrorHandler:             errorHandler(log),
	}

	if cfg.Environment == "development" {
		log.Info("Enabling development mode")
		fc.DisableStartupMessage = false
		fc.EnablePrintRoutes = true
	}
	return fc
}

// errorHandler renders errors that escape the handlers (unknown routes, body
// limits, recovered panics) in the same shape as handled ones.
func errorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "Internal server error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
			message = fiberErr.Message
		}
		if status >= fiber.StatusInternalServerError {
			log.Function("errorHandler").Er("unhandled request error", err,
				"path", c.Path(),
				"traceID", middleware.GetTraceID(c),
			)
		}

		return c.Status(status).JSON(types.ErrorResponse{Error: message})
	}
}

func New(app *app.App) (*AppServer, error) {
	log := logger.New("server").Function("New")
	log.Info("Initializing server")

	server := fiber.New(fiberConfig(app.Config, log))

	server.Use(recover.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.CorsAllowOrigins,
		AllowMethods:     "GET, POST, PUT, PATCH, OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Trace-ID, X-Client-Type",
		AllowCredentials: true,
		MaxAge:           300,
		ExposeHeaders:    "X-Trace-ID",
	}))
	server.Use(fiberLogs.New(fiberLogs.Config{
		Format: "${time} ${status} ${method} ${path} ${latency} trace=${respHeader:X-Trace-ID}\n",
	}))
	server.Use(compress.New())

	// The API serves JSON only, so nothing may be framed or scripted.
	server.Use(helmet.New(helmet.Config{
		XSSProtection:             "0",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		ReferrerPolicy:            "no-referrer",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
	}))

	if err := handlers.Router(server, app); err != nil {
		return nil, log.Err("failed to initialize handlers", err)
	}

	return &AppServer{FiberApp: server, log: log}, nil
}

func (s *AppServer) Listen(port int) error {
	log := s.log.Function("Listen")

	if port <= 0 {
		return log.Error("invalid port", "port", port)
	}

	log.Info("Starting server", "port", port)
	return s.FiberApp.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *AppServer) Shutdown(ctx context.Context) error {
	if err := s.FiberApp.ShutdownWithContext(ctx); err != nil {
		return s.log.Function("Shutdown").Err("server forced to shut down", err)
	}
	return nil
}
