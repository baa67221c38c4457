package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
)

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"generated", "", false},
		{"client supplied", "abc-123", true},
		{"too long", strings.Repeat("x", MaxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			id := w.Header().Get(RequestIDHeader)
			assert.Equal(t, id, w.Body.String())
			if tt.reuse {
				assert.Equal(t, tt.header, id)
			} else {
				assert.Len(t, id, 36)
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	engine := newEngine()
	engine.Use(BodyLimit(8))
	engine.POST("/", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			Abort(c, dto.Validation(err.Error()))
			return
		}
		OK(c, len(body))
	})

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("1234")))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared length over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("123456789")))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.SpecValidationError, env.Error.Spec)
		assert.Equal(t, float64(8), env.Error.Context["limit_bytes"])
	})

	t.Run("streamed body over limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("123456789")))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

type bindTarget struct {
	Handle   string `json:"handle" binding:"required,min=3"`
	Timezone string `json:"timezone" binding:"omitempty,timezone"`
}

func TestValidationIssues(t *testing.T) {
	SetupValidator()

	engine := gin.New()
	engine.POST("/", func(c *gin.Context) {
		var body bindTarget
		err := c.ShouldBindJSON(&body)
		c.JSON(http.StatusOK, ValidationIssues(err))
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"handle":"a","timezone":"Mars/Olympus"}`)))

	assert.JSONEq(t, `[
		{"field":"handle","tag":"min","message":"Must be at least 3 characters"},
		{"field":"timezone","tag":"timezone","message":"Invalid time zone"}
	]`, w.Body.String())
}
