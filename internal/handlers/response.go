package handlers

import (
	"net/url"
	"rentflow/internal/handlers/middleware"
	"rentflow/internal/models"
	"rentflow/internal/types"
	"rentflow/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var kindStatus = map[types.ErrorKind]int{
	types.ErrNotFound:                 fiber.StatusNotFound,
	types.ErrForbidden:                fiber.StatusForbidden,
	types.ErrInspectionFinalized:      fiber.StatusConflict,
	types.ErrOutOfOrderSignature:      fiber.StatusConflict,
	types.ErrDuplicateInspection:      fiber.StatusConflict,
	types.ErrAmendmentAlreadyResolved: fiber.StatusConflict,
	types.ErrAmendmentWindowClosed:    fiber.StatusConflict,
	types.ErrInvalidState:             fiber.StatusConflict,
	types.ErrInvalidOrExpiredLink:     fiber.StatusUnauthorized,
	types.ErrExportFailed:             fiber.StatusBadGateway,
	types.ErrValidation:               fiber.StatusBadRequest,
}

// StatusFor maps an error kind to its HTTP status; unknown kinds are 500.
func StatusFor(kind types.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// respondError writes the error body for err. Errors without a kind are
// logged and reported as a generic internal error.
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	kind := types.KindOf(err)
	status := StatusFor(kind)

	if kind == "" {
		logger.NewWithContext(c.UserContext(), "handlers").Function("respondError").
			Er("unhandled error", err, "path", c.Path(), "method", c.Method())
		return c.Status(status).JSON(types.ErrorResponse{Error: "Internal server error"})
	}

	body := types.ErrorResponse{Error: types.Message(err), Code: kind}
	if id, ok := types.DuplicateInspectionID(err); ok {
		body.InspectionID = &id
	}
	return c.Status(status).JSON(body)
}

func (h *Handler) badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
		Error: message,
		Code:  types.ErrValidation,
	})
}

func (h *Handler) unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(types.ErrorResponse{
		Error: "Authentication required",
	})
}

func (h *Handler) currentUser(c *fiber.Ctx) (*models.User, bool) {
	user := middleware.GetUser(c)
	return user, user != nil
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func textParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
