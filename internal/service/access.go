package service

import (
	"fmt"

	"go-resto-inventory/internal/model"

	"github.com/google/uuid"
)

// authorize rejects actors reaching into another establishment.
func authorize(actor model.Actor, establishmentID uuid.UUID) error {
	if establishmentID == uuid.Nil {
		return fmt.Errorf("%w: establishment is required", model.ErrValidation)
	}
	if !actor.CanAccess(establishmentID) {
		return fmt.Errorf("%w: establishment %s", model.ErrForbidden, establishmentID)
	}
	return nil
}

// warn builds a non-fatal warning for stage.
func warn(stage string, err error) model.Warning {
	return model.Warning{Stage: stage, Message: err.Error()}
}
