package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stuffkit/backend/internal/infrastructure/logger"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// unknownErrorDetail replaces the detail of errors that are not APIErrors.
const unknownErrorDetail = "unknown error emitted; contact support with the data below"

// Normalize maps any error raised while serving req to a status code and
// the error half of the response envelope.
//
// An *dto.APIError renders as itself. Anything else is reported with its
// type, message and the request line in the context, then classified:
// *dto.HTTPError keeps its status when a spec exists for it, request
// validation failures become 422, everything else 500. The spec is the
// first one registered for the final status.
func Normalize(err error, req *http.Request) (int, dto.ErrorSO) {
	var apiErr *dto.APIError
	if errors.As(err, &apiErr) {
		so := apiErr.ErrorSO()
		status := apiErr.Status()
		so.Context["status_code"] = status
		return status, so
	}

	ctx := map[string]any{
		"exception_type": fmt.Sprintf("%T", err),
		"exception_str":  err.Error(),
		"request.method": req.Method,
		"request.url":    requestURL(req),
	}

	status := http.StatusInternalServerError
	var (
		httpErr         *dto.HTTPError
		requestErr      *dto.RequestValidationError
		validationError validator.ValidationErrors
	)
	switch {
	case errors.As(err, &httpErr):
		if _, ok := dto.SpecForStatus(httpErr.Status); ok {
			status = httpErr.Status
		}
		ctx["exception.detail"] = httpErr.Detail
	case errors.As(err, &requestErr), errors.As(err, &validationError):
		status = http.StatusUnprocessableEntity
		ctx["exception.errors"] = ValidationIssues(err)
	}

	spec, ok := dto.SpecForStatus(status)
	if !ok {
		spec = dto.SpecInternalServerError
	}
	detail := spec.Detail()
	ctx["status_code"] = status
	return status, dto.ErrorSO{Spec: spec, Detail: &detail, Context: ctx}
}

func requestURL(req *http.Request) string {
	if req.URL.IsAbs() {
		return req.URL.String()
	}
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + req.Host + req.URL.RequestURI()
}

// ErrorHandlerConfig configures ErrorHandler.
type ErrorHandlerConfig struct {
	// DeleteAuthCookie runs before a 401 response is written.
	DeleteAuthCookie func(c *gin.Context)
}

// ErrorHandlerOption configures ErrorHandler.
type ErrorHandlerOption func(*ErrorHandlerConfig)

// WithCookieDeleter sets the hook that clears the auth cookie on 401.
func WithCookieDeleter(fn func(c *gin.Context)) ErrorHandlerOption {
	return func(cfg *ErrorHandlerConfig) {
		if fn != nil {
			cfg.DeleteAuthCookie = fn
		}
	}
}

// CookieDeleter returns a hook that expires the named cookie.
func CookieDeleter(name string, secure bool) func(c *gin.Context) {
	return func(c *gin.Context) {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(name, "", -1, "/", "", secure, true)
	}
}

func unimplementedCookieDeleter(c *gin.Context) {
	logger.GetGinLogger(c).Error("delete auth cookie method is unimplemented", zap.Bool("critical", true))
}

// ErrorHandler renders the last error attached to the context as the
// response envelope once the handlers have run, unless a response was
// already written.
func ErrorHandler(opts ...ErrorHandlerOption) gin.HandlerFunc {
	cfg := ErrorHandlerConfig{DeleteAuthCookie: unimplementedCookieDeleter}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		status, so := Normalize(last.Err, c.Request)
		if status >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Error("Request failed",
				zap.Error(last.Err),
				zap.String("spec", string(so.Spec)),
			)
		}
		if status == http.StatusUnauthorized {
			cfg.DeleteAuthCookie(c)
		}
		c.JSON(status, dto.NewErrorResponse(so))
	}
}

// Recovery turns a panic in a later handler into an error for
// ErrorHandler to render.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}
			logger.GetGinLogger(c).Error("Recovered from panic", zap.Any("panic", r), zap.Stack("stack"))
			_ = c.Error(err)
			c.Abort()
		}()
		c.Next()
	}
}

// Apply installs the error envelope on engine: ErrorHandler, Recovery and
// envelope responses for unmatched routes and methods.
func Apply(engine *gin.Engine, opts ...ErrorHandlerOption) {
	engine.HandleMethodNotAllowed = true
	engine.Use(ErrorHandler(opts...), Recovery())
	engine.NoRoute(func(c *gin.Context) {
		Abort(c, &dto.HTTPError{Status: http.StatusNotFound, Detail: http.StatusText(http.StatusNotFound)})
	})
	engine.NoMethod(func(c *gin.Context) {
		Abort(c, &dto.HTTPError{Status: http.StatusMethodNotAllowed, Detail: http.StatusText(http.StatusMethodNotAllowed)})
	})
}

// Abort attaches err for ErrorHandler and stops the chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// OK writes payload in the response envelope with status 200.
func OK[T any](c *gin.Context, payload T) {
	c.JSON(http.StatusOK, dto.NewResponse(payload))
}

// Created writes payload in the response envelope with status 201.
func Created[T any](c *gin.Context, payload T) {
	c.JSON(http.StatusCreated, dto.NewResponse(payload))
}
