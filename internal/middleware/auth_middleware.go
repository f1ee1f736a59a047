package middleware

import (
	"strings"

	"go-resto-inventory/internal/handler"
	"go-resto-inventory/internal/logger"
	"go-resto-inventory/internal/model"
	"go-resto-inventory/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func deny(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "code": code, "message": message})
}

// RequireAuth validates the bearer token and stores the actor it carries in
// the request locals and the request logger.
func RequireAuth(tokens *jwt.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return deny(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization token")
		}

		// "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return deny(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format. Use: Bearer <token>")
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			return deny(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		}

		actor := claims.Actor()
		c.Locals(handler.ActorKey, actor)

		log := logger.FromContext(c.UserContext(), nil).With(
			zap.String("actor_id", actor.ID.String()),
			zap.String("establishment_id", actor.EstablishmentID.String()),
		)
		c.SetUserContext(logger.WithContext(c.UserContext(), log))

		return c.Next()
	}
}

// RequireRole lets the request through when the actor has one of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := c.Locals(handler.ActorKey).(model.Actor)
		if !ok {
			return deny(c, fiber.StatusForbidden, "FORBIDDEN", "No actor found")
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return deny(c, fiber.StatusForbidden, "FORBIDDEN",
			"Forbidden: requires one of "+strings.Join(roles, ", ")+" roles")
	}
}
