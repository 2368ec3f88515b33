package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/anbanon/verdana/internal/domain"
)

// Validator adapts go-playground/validator to echo's Validator interface and
// converts tag failures into domain field errors so the error envelope stays
// uniform across binding, validation, and core failures.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates the request validator. Field names in error payloads
// follow the json tag, not the Go field name.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return domain.Internal(err, "api.validate", "failed to validate request")
	}

	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &domain.ValidationError{Op: "api.validate", Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is below the minimum of " + fe.Param()
	case "max":
		return "Value is above the maximum of " + fe.Param()
	case "uuid":
		return "Must be a valid UUID"
	default:
		return "Invalid value"
	}
}
