package handlers

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/exzly/exzly/internal/models"
	"github.com/go-playground/validator/v10"
)

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report json field names so validation errors match the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("username", validUsername); err != nil {
		panic(err)
	}

	return v
}

// usernameRe bounds the charset and edges: 2 to 30 characters,
// alphanumeric first and last. Separator repetition is checked
// separately since Go's regexp has no lookahead.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._]{0,28}[a-zA-Z0-9]$`)

func validUsername(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !usernameRe.MatchString(s) {
		return false
	}
	for _, pair := range []string{"..", "__", "._", "_."} {
		if strings.Contains(s, pair) {
			return false
		}
	}
	return true
}

// ValidateRequest validates a request struct and returns every
// violated field at once, not just the first.
func ValidateRequest(req interface{}) *models.ValidationError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return models.NewValidationError("request", "invalid request")
	}

	out := &models.ValidationError{}
	for _, fieldError := range ve {
		out.Fields = append(out.Fields, models.FieldError{
			Field:   fieldError.Field(),
			Message: formatValidationError(fieldError),
		})
	}
	return out
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "eqfield":
		return "must match " + fe.Param()
	case "username":
		return "may contain letters, digits, and single '.' or '_' separators, and must start and end with a letter or digit"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
