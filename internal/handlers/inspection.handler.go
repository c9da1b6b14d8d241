package handlers

import (
	"rentflow/internal/app"
	inspectionController "rentflow/internal/controllers/inspection"
	"rentflow/internal/models"
	"rentflow/internal/types"
	"rentflow/pkg/logger"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type InspectionHandler struct {
	Handler
	inspectionController inspectionController.InspectionControllerInterface
}

func NewInspectionHandler(app app.App, router fiber.Router) *InspectionHandler {
	log := logger.New("handlers").File("inspection_handler")
	return &InspectionHandler{
		inspectionController: app.Controllers.Inspection,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *InspectionHandler) Register() {
	auth := h.middleware.RequireAuth()

	inspections := h.router.Group("/inspections")
	inspections.Post("", auth, h.create)
	inspections.Get("/:id", auth, h.get)
	inspections.Patch("/:id", auth, h.updateHeader)
	inspections.Post("/:id/touch", auth, h.touch)
	inspections.Post("/:id/rooms", auth, h.addRoom)
	inspections.Patch("/:id/rooms/:roomId", auth, h.updateRoom)
	inspections.Post("/:id/rooms/:roomId/elements", auth, h.addElement)
	inspections.Post("/:id/rooms/:roomId/photos", auth, h.attachPhoto)
	inspections.Put("/:id/elements/:elementId", auth, h.replaceElement)
	inspections.Put("/:id/meters/:type", auth, h.upsertMeter)
	inspections.Put("/:id/keys/:type", auth, h.upsertKey)
}

func (h *InspectionHandler) create(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}

	var req types.CreateInspectionRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	view, err := h.inspectionController.Create(c.UserContext(), user, &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *InspectionHandler) get(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	view, err := h.inspectionController.Get(c.UserContext(), user, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(view)
}

func (h *InspectionHandler) updateHeader(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	var req types.UpdateInspectionRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	view, err := h.inspectionController.UpdateHeader(c.UserContext(), user, id, &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(view)
}

func (h *InspectionHandler) touch(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	var req types.TouchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return h.badRequest(c, "Invalid request body")
		}
	}

	if err := h.inspectionController.Touch(c.UserContext(), user, id, &req); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *InspectionHandler) addRoom(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	var req types.CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	room, err := h.inspectionController.AddRoom(c.UserContext(), user, id, &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

func (h *InspectionHandler) updateRoom(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return h.badRequest(c, "Invalid room ID")
	}

	var req types.UpdateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	room, err := h.inspectionController.UpdateRoom(c.UserContext(), user, id, roomID, &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(room)
}

func (h *InspectionHandler) addElement(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return h.badRequest(c, "Invalid room ID")
	}

	var req types.ElementRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	element, err := h.inspectionController.AddElement(c.UserContext(), user, id, roomID, &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(element)
}

func (h *InspectionHandler) replaceElement(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}
	elementID, ok := uuidParam(c, "elementId")
	if !ok {
		return h.badRequest(c, "Invalid element ID")
	}

	var req types.ElementRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	element, err := h.inspectionController.ReplaceElement(c.UserContext(), user, id, elementID, &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(element)
}

func (h *InspectionHandler) attachPhoto(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return h.badRequest(c, "Invalid room ID")
	}

	var req types.PhotoRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	photo, err := h.inspectionController.AttachPhoto(c.UserContext(), user, id, roomID, &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(photo)
}

func (h *InspectionHandler) upsertMeter(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	var req types.MeterRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	meterType := models.MeterType(strings.ToUpper(c.Params("type")))
	meter, err := h.inspectionController.UpsertMeter(c.UserContext(), user, id, meterType, &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(meter)
}

func (h *InspectionHandler) upsertKey(c *fiber.Ctx) error {
	user, ok := h.currentUser(c)
	if !ok {
		return h.unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return h.badRequest(c, "Invalid inspection ID")
	}

	var req types.KeyRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, "Invalid request body")
	}

	key, err := h.inspectionController.UpsertKey(c.UserContext(), user, id, textParam(c, "type"), &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(key)
}
