package handlers

import (
	"rentflow/internal/app"
	amendmentController "rentflow/internal/controllers/amendment"
	"rentflow/internal/types"
	"rentflow/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type AmendmentHandler struct {
	Handler
	amendmentController amendmentController.AmendmentControllerInterface
}

func NewAmendmentHandler(app app.App, router fiber.Router) *AmendmentHandler {
	log := logger.New("handlers").File("amendment_handler")
	return &AmendmentHandler{
		amendmentController: app.Controllers.Amendment,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *AmendmentHandler) Register() {
	auth := h.middleware.RequireAuth()

	inspections := h.router.Group("/inspections")
	inspections.Get("/:id/amendments", auth, h.list)
	inspections.Post("/:id/amendments", auth, h.create)
	inspections.Post("/:id/amendments/:amendmentId/respond", auth, h.respond)
}

func (h *AmendmentHandler) list(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	amendments, err := h.amendmentController.List(c.UserContext(), user, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"amendments": amendments,
	})
}

func (h *AmendmentHandler) create(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	var req types.CreateAmendmentRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	amendment, err := h.amendmentController.Create(c.UserContext(), user, id, &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(amendment)
}

func (h *AmendmentHandler) respond(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}
	amendmentID, ok := uuidParam(c, "amendmentId")
	if !ok {
		return h.badRequest(c, "Invalid amendment ID")
	}

	var req types.RespondAmendmentRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	amendment, err := h.amendmentController.Respond(c.UserContext(), user, id, amendmentID, &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(amendment)
}
