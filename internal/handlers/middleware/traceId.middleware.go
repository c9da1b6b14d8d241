package middleware

import (
	"rentflow/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	TraceIDHeader   = "X-Trace-ID"
	TraceIDLocalKey = "traceID"

	maxTraceIDLength = 64
)

// validTraceID accepts the characters trace IDs are made of; anything else
// from the caller is replaced so it never reaches the logs.
func validTraceID(id string) bool {
	if id == "" || len(id) > maxTraceIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// TraceID echoes a well-formed incoming X-Trace-ID or mints one, and puts it
// on the request context for every logger built from it.
func (m *Middleware) TraceID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get(TraceIDHeader)
		if !validTraceID(traceID) {
			traceID = uuid.Must(uuid.NewV7()).String()
		}

		c.Set(TraceIDHeader, traceID)
		c.Locals(TraceIDLocalKey, traceID)
		c.SetUserContext(logger.ContextWithTraceID(c.UserContext(), traceID))

		return c.Next()
	}
}

func GetTraceID(c *fiber.Ctx) string {
	traceID, _ := c.Locals(TraceIDLocalKey).(string)
	return traceID
}
