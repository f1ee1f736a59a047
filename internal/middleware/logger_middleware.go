package middleware

import (
	"go-resto-inventory/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestLogger attaches a logger tagged with the request id to the user
// context. It must run after the requestid middleware.
func RequestLogger(base *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := base
		if id, ok := c.Locals("requestid").(string); ok && id != "" {
			l = l.With(zap.String("request_id", id))
		}
		c.SetUserContext(logger.WithContext(c.UserContext(), l))
		return c.Next()
	}
}
