package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stuffkit/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request, named "METHOD /route/:pattern".
func Tracing(serviceName string, opts ...otelgin.Option) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, opts...)
}

// SpanEnricher annotates the active span with the request id and the
// authenticated profile, and marks it failed for error responses. It
// must run after Tracing and JWTUser.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if claims := CurrentUser(c); claims != nil {
			span.SetAttributes(attribute.String(telemetry.SpanAttrProfileID, claims.Subject))
		}

		c.Next()

		// errors attached for ErrorHandler are not rendered yet
		if last := c.Errors.Last(); last != nil {
			span.SetStatus(codes.Error, last.Error())
			return
		}
		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
