// Package handler holds the gin handlers of the stuffkit API. Handlers
// report failures by attaching an error to the context; the middleware
// error handler renders the response envelope.
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/stuffkit/backend/internal/domain/shared"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
	"github.com/stuffkit/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// HandleError converts domain errors to API errors and aborts. Other
// errors pass through unchanged and render as internal errors.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	middleware.Abort(c, toAPIError(err))
}

func toAPIError(err error) error {
	var apiErr *dto.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return err
	}
	var out *dto.APIError
	switch domainErr.Code {
	case shared.CodeNotFound:
		out = dto.NotFound(domainErr.Message)
	case shared.CodeAlreadyExists:
		out = dto.Database(domainErr.Message)
	case shared.CodeInvalidInput:
		out = dto.Validation(domainErr.Message)
	case shared.CodeUnauthorized:
		out = dto.Unauthorized(domainErr.Message)
	case shared.CodeForbidden:
		out = dto.Forbidden(domainErr.Message)
	case shared.CodeBanned:
		out = dto.Banned(domainErr.Message)
	default:
		out = dto.Unknown(domainErr.Message)
	}
	out = out.With("code", domainErr.Code)
	if domainErr.Cause != nil {
		out = out.With("cause", domainErr.Cause.Error())
	}
	return out
}

// BindJSON binds the request body into obj, aborting with a validation
// error on failure.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.Abort(c, &dto.RequestValidationError{Err: err})
		return false
	}
	return true
}

// BindQuery binds query parameters into obj, aborting with a validation
// error on failure.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		middleware.Abort(c, &dto.RequestValidationError{Err: err})
		return false
	}
	return true
}
