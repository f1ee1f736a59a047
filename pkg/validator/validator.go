package validator

import (
	"errors"
	"fmt"

	"go-resto-inventory/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string `json:"field"`
	Tag         string `json:"tag"`
	Value       string `json:"value"`
}

var validate = validator.New()

func init() {
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})
	validate.RegisterValidation("entry_type", func(fl validator.FieldLevel) bool {
		return model.EntryType(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("procurement_status", func(fl validator.FieldLevel) bool {
		return model.ProcurementStatus(fl.Field().String()).Valid()
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errs []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []*ErrorResponse{{FailedField: "", Tag: "invalid", Value: err.Error()}}
		}
		for _, e := range verrs {
			errs = append(errs, &ErrorResponse{
				FailedField: e.StructNamespace(),
				Tag:         e.Tag(),
				Value:       e.Param(),
			})
		}
	}
	return errs
}

// Check validates data and returns the first failure wrapped in model.ErrValidation.
func Check(data interface{}) error {
	errs := ValidateStruct(data)
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	return fmt.Errorf("%w: field '%s' failed on tag '%s'", model.ErrValidation, first.FailedField, first.Tag)
}
