package persistence

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKeyType is returned when a key value cannot be compared with its column.
	ErrKeyType = errors.New("persistence: key value has the wrong type")
	// ErrCompositeKey is returned when a composite key value does not match the key columns.
	ErrCompositeKey = errors.New("persistence: composite key mismatch")
	// ErrInvalidPage is returned for negative pages or non-positive page sizes.
	ErrInvalidPage = errors.New("persistence: invalid page")
)

// UnknownFieldError reports a column or relationship name that the model
// does not declare.
type UnknownFieldError struct {
	Model     string
	Field     string
	Available []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s has no field %q, available: %s", e.Model, e.Field, strings.Join(e.Available, ", "))
}

// MissingFieldsError reports required columns absent from a create payload.
type MissingFieldsError struct {
	Model    string
	Missing  []string
	Required []string
	Given    []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: missing required fields [%s] (required: [%s], given: [%s])",
		e.Model,
		strings.Join(e.Missing, ", "),
		strings.Join(e.Required, ", "),
		strings.Join(e.Given, ", "))
}
