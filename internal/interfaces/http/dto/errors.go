package dto

import (
	"fmt"
	"maps"
	"net/http"
)

// Spec names a class of API error. The string value is what clients see
// in the "spec" field of an error response.
type Spec string

// Error specs
const (
	SpecUnknownError               Spec = "unknown_error"
	SpecNotFound                   Spec = "not_found"
	SpecValidationError            Spec = "validation_error"
	SpecInternalServerError        Spec = "internal_server_error"
	SpecExternalServiceUnavailable Spec = "external_service_unavailible"
	SpecDatabaseError              Spec = "database_error"
	SpecInsufficientPermissions    Spec = "insufficient_permissions"
	SpecSessionExpired             Spec = "session_expired"
	SpecBanned                     Spec = "banned"
	SpecUnauthorized               Spec = "unauthorized"
	SpecUnloadedProp               Spec = "unloaded_prop"
)

type specInfo struct {
	status int
	detail string
}

// specOrder fixes which spec wins when several share a status code.
var specOrder = []Spec{
	SpecUnknownError,
	SpecNotFound,
	SpecValidationError,
	SpecInternalServerError,
	SpecExternalServiceUnavailable,
	SpecDatabaseError,
	SpecInsufficientPermissions,
	SpecSessionExpired,
	SpecBanned,
	SpecUnauthorized,
	SpecUnloadedProp,
}

var specTable = map[Spec]specInfo{
	SpecUnknownError:               {http.StatusBadRequest, "Unknown error"},
	SpecNotFound:                   {http.StatusNotFound, "Not found"},
	SpecValidationError:            {http.StatusUnprocessableEntity, "Invalid body / query of a request / response"},
	SpecInternalServerError:        {http.StatusInternalServerError, "Internal server error"},
	SpecExternalServiceUnavailable: {http.StatusBadGateway, "Could not fetch external service"},
	SpecDatabaseError:              {http.StatusConflict, "Error on a repository level"},
	SpecInsufficientPermissions:    {http.StatusForbidden, "Forbidden"},
	SpecSessionExpired:             {http.StatusUnauthorized, "Unauthorized"},
	SpecBanned:                     {http.StatusTeapot, ":)))"},
	SpecUnauthorized:               {http.StatusUnauthorized, "Unauthorized"},
	SpecUnloadedProp:               {http.StatusNotImplemented, "Property not loaded"},
}

// Specs returns every spec in table order.
func Specs() []Spec {
	return append([]Spec(nil), specOrder...)
}

// Status returns the HTTP status code for the spec, 500 for unknown specs.
func (s Spec) Status() int {
	if info, ok := specTable[s]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Detail returns the spec's default human readable text.
func (s Spec) Detail() string {
	return specTable[s].detail
}

// SpecForStatus returns the first spec mapped to status.
func SpecForStatus(status int) (Spec, bool) {
	for _, s := range specOrder {
		if specTable[s].status == status {
			return s, true
		}
	}
	return "", false
}

// APIError is an error that renders as a specific spec and status.
type APIError struct {
	Spec    Spec
	Detail  string
	Context map[string]any
}

// NewAPIError creates an APIError for spec.
func NewAPIError(spec Spec, detail string) *APIError {
	return &APIError{Spec: spec, Detail: detail, Context: map[string]any{}}
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return string(e.Spec)
	}
	return fmt.Sprintf("%s: %s", e.Spec, e.Detail)
}

// Status returns the HTTP status code of the error's spec.
func (e *APIError) Status() int {
	return e.Spec.Status()
}

// With adds a context entry and returns e.
func (e *APIError) With(key string, value any) *APIError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

// ErrorSO returns the wire form of e. The context map is copied.
func (e *APIError) ErrorSO() ErrorSO {
	so := ErrorSO{Spec: e.Spec, Context: maps.Clone(e.Context)}
	if so.Context == nil {
		so.Context = map[string]any{}
	}
	if e.Detail != "" {
		detail := e.Detail
		so.Detail = &detail
	}
	return so
}

// Constructors for the common specs.

func NotFound(detail string) *APIError { return NewAPIError(SpecNotFound, detail) }

func Banned(detail string) *APIError { return NewAPIError(SpecBanned, detail) }

func Validation(detail string) *APIError { return NewAPIError(SpecValidationError, detail) }

func Database(detail string) *APIError { return NewAPIError(SpecDatabaseError, detail) }

func ExternalService(detail string) *APIError {
	return NewAPIError(SpecExternalServiceUnavailable, detail)
}

func InternalServer(detail string) *APIError { return NewAPIError(SpecInternalServerError, detail) }

func Unauthorized(detail string) *APIError { return NewAPIError(SpecUnauthorized, detail) }

func Forbidden(detail string) *APIError { return NewAPIError(SpecInsufficientPermissions, detail) }

func Unknown(detail string) *APIError { return NewAPIError(SpecUnknownError, detail) }

// HTTPError is a framework level failure, such as an unmatched route,
// that carries only a status code and a detail.
type HTTPError struct {
	Status int
	Detail any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %v", e.Status, http.StatusText(e.Status), e.Detail)
}

// RequestValidationError wraps a failure to bind or validate request input.
type RequestValidationError struct {
	Err error
}

func (e *RequestValidationError) Error() string {
	return "request validation failed: " + e.Err.Error()
}

func (e *RequestValidationError) Unwrap() error {
	return e.Err
}
