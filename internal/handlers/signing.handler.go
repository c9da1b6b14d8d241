package handlers

import (
	"rentflow/internal/app"
	signingController "rentflow/internal/controllers/signing"
	"rentflow/internal/handlers/middleware"
	"rentflow/internal/types"
	"rentflow/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type SigningHandler struct {
	Handler
	signingController signingController.SigningControllerInterface
}

func NewSigningHandler(app app.App, router fiber.Router) *SigningHandler {
	log := logger.New("handlers").File("signing_handler")
	return &SigningHandler{
		signingController: app.Controllers.Signing,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *SigningHandler) Register() {
	auth := h.middleware.RequireAuth()

	inspections := h.router.Group("/inspections")
	inspections.Post("/:id/sign", h.middleware.OptionalAuth(), h.sign)
	inspections.Get("/:id/signing-link", auth, h.signingLink)
	inspections.Post("/:id/signing-link/send", auth, h.sendSigningLink)
	inspections.Post("/:id/artifact", auth, h.generateArtifact)
}

// sign accepts either a bearer session or the ?token= signing link.
func (h *SigningHandler) sign(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	caller := signingController.Caller{
		User:      middleware.GetUser(c),
		LinkToken: c.Query("token"),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IPAddress: c.IP(),
	}
	if caller.User == nil && caller.LinkToken == "" {
		return h.unauthorized(c)
	}

	var req types.SignRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	response, err := h.signingController.Sign(c.UserContext(), caller, id, &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(response)
}

func (h *SigningHandler) signingLink(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	link, err := h.signingController.SigningLink(c.UserContext(), user, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(link)
}

func (h *SigningHandler) sendSigningLink(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	link, err := h.signingController.SendSigningLink(c.UserContext(), user, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(link)
}

func (h *SigningHandler) generateArtifact(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	artifact, err := h.signingController.GenerateArtifact(c.UserContext(), user, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(artifact)
}
