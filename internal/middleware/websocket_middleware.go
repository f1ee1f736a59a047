package middleware

import (
	"strings"

	"go-resto-inventory/internal/ws"
	"go-resto-inventory/pkg/jwt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SubscriptionKey is the Locals key holding the establishment a websocket
// client is allowed to follow (uuid.Nil: every establishment).
const SubscriptionKey = "ws_establishment"

// RequireStreamAuth guards the websocket upgrade. Browsers cannot set headers
// on the upgrade, so the token may also come as ?token.
func RequireStreamAuth(tokens *jwt.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}
		claims, err := tokens.ValidateToken(token)
		if err != nil {
			return deny(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		}

		requested := uuid.Nil
		if raw := c.Query("establishment_id"); raw != "" {
			if requested, err = uuid.Parse(raw); err != nil {
				return deny(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid establishment_id")
			}
		}
		est, err := ws.Subscription(claims.Actor(), requested)
		if err != nil {
			return deny(c, fiber.StatusForbidden, "FORBIDDEN", err.Error())
		}

		if !websocket.IsWebSocketUpgrade(c) {
			return c.SendStatus(fiber.StatusUpgradeRequired)
		}
		c.Locals(SubscriptionKey, est)
		return c.Next()
	}
}
