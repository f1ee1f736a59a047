package handler

import (
	"errors"
	"fmt"
	"time"

	"go-resto-inventory/internal/logger"
	"go-resto-inventory/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActorKey is the fiber Locals key holding the authenticated model.Actor.
const ActorKey = "actor"

type envelope struct {
	Success  bool            `json:"success"`
	Data     interface{}     `json:"data,omitempty"`
	Warnings []model.Warning `json:"warnings,omitempty"`
	Message  string          `json:"message,omitempty"`
	Code     string          `json:"code,omitempty"`
}

func respond(c *fiber.Ctx, status int, data interface{}, warnings ...model.Warning) error {
	return c.Status(status).JSON(envelope{Success: true, Data: data, Warnings: warnings})
}

// fail maps the error taxonomy onto HTTP statuses.
func fail(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, model.ErrValidation):
		status, code = fiber.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, model.ErrInsufficientStock):
		status, code = fiber.StatusBadRequest, "INSUFFICIENT_STOCK"
	case errors.Is(err, model.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, model.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, model.ErrConflict):
		status, code = fiber.StatusConflict, "CONFLICT"
	}

	message := err.Error()
	if status == fiber.StatusInternalServerError {
		logger.FromContext(c.UserContext(), nil).Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
		message = "Internal Server Error"
	}
	return c.Status(status).JSON(envelope{Message: message, Code: code})
}

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{model.ErrValidation}, args...)...)
}

func actorFrom(c *fiber.Ctx) model.Actor {
	if a, ok := c.Locals(ActorKey).(model.Actor); ok {
		return a
	}
	return model.Actor{}
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, badRequest("invalid %s", name)
	}
	return id, nil
}

// establishment reads ?establishment_id and defaults to the actor's own.
func establishment(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Query("establishment_id")
	if raw == "" {
		return actorFrom(c).EstablishmentID, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("invalid establishment_id")
	}
	return id, nil
}

func queryUUID(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, badRequest("invalid %s", key)
	}
	return &id, nil
}

// parseTime accepts RFC 3339 timestamps and plain YYYY-MM-DD dates. A plain
// date is midnight in loc, the zone buckets are keyed in; used as a range end
// it covers the whole day.
func parseTime(raw string, end bool, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, badRequest("invalid date %q", raw)
	}
	if end {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func queryTime(c *fiber.Ctx, key string, end bool, loc *time.Location) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := parseTime(raw, end, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// dateRange reads ?from and ?to.
func dateRange(c *fiber.Ctx, loc *time.Location) (from, to *time.Time, err error) {
	if from, err = queryTime(c, "from", false, loc); err != nil {
		return nil, nil, err
	}
	if to, err = queryTime(c, "to", true, loc); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
