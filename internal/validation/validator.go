// Package validation checks request DTOs with go-playground/validator and
// reports failures as structured field errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Get returns the shared validator. Field names are reported by their json tag.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("endpoint", validateEndpoint)
	})
	return validate
}

// Struct validates s and returns a VALIDATION_FAILED domain error listing every rejected field.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return apperrors.NewValidationError("Validation failed", nil)
	}

	fields := make([]apperrors.FieldError, 0, len(invalid))
	messages := make([]string, 0, len(invalid))
	for _, fe := range invalid {
		msg := message(fe)
		fields = append(fields, apperrors.FieldError{Field: fe.Field(), Rule: fe.Tag(), Message: msg})
		messages = append(messages, msg)
	}
	return apperrors.NewValidationError(strings.Join(messages, "; "), fields)
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "endpoint":
		return fmt.Sprintf("%s must be a route path starting with /", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// validateEndpoint accepts route paths like "/branch" or "/branch/:id".
func validateEndpoint(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return strings.HasPrefix(value, "/") && !strings.ContainsAny(value, " ?#")
}
