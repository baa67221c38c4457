package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
)

// SetupValidator configures the validator with custom tags
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
	}
}

// ValidationIssue describes one rejected input field.
type ValidationIssue struct {
	Field   string `json:"field,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Message string `json:"message"`
}

// ValidationIssues flattens a binding or validation error. Errors that
// are not field level, such as malformed JSON, yield a single issue.
func ValidationIssues(err error) []ValidationIssue {
	var requestErr *dto.RequestValidationError
	if errors.As(err, &requestErr) {
		err = requestErr.Err
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []ValidationIssue{{Message: err.Error()}}
	}
	issues := make([]ValidationIssue, 0, len(validationErrors))
	for _, e := range validationErrors {
		issues = append(issues, ValidationIssue{
			Field:   e.Field(),
			Tag:     e.Tag(),
			Message: getValidationMessage(e),
		})
	}
	return issues
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "alphanum":
		return "Must be alphanumeric"
	case "timezone":
		return "Invalid time zone"
	case "bcp47_language_tag":
		return "Invalid language tag"
	default:
		return "Invalid value"
	}
}
