package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
)

func serveDocs(guard gin.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	engine := newEngine()
	engine.GET("/docs/*any", guard, func(c *gin.Context) { c.String(http.StatusOK, "docs") })

	req := httptest.NewRequest(http.MethodGet, "/docs/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestDocsGuard(t *testing.T) {
	deny := func(c *gin.Context) { Abort(c, dto.Unauthorized("Authentication required")) }
	allow := func(c *gin.Context) { c.Next() }

	tests := []struct {
		name         string
		access       DocsAccess
		authenticate gin.HandlerFunc
		remoteAddr   string
		want         int
	}{
		{"open", DocsAccess{}, nil, "203.0.113.9:4000", http.StatusOK},
		{"allowed ip", DocsAccess{AllowedIPs: []string{"127.0.0.1"}}, nil, "127.0.0.1:4000", http.StatusOK},
		{"allowed cidr", DocsAccess{AllowedIPs: []string{"10.0.0.0/8"}}, nil, "10.1.2.3:4000", http.StatusOK},
		{"denied ip", DocsAccess{AllowedIPs: []string{"10.0.0.0/8", "bogus"}}, nil, "192.168.1.1:4000", http.StatusForbidden},
		{"auth required and rejected", DocsAccess{RequireAuth: true}, deny, "127.0.0.1:4000", http.StatusUnauthorized},
		{"auth required and passed", DocsAccess{RequireAuth: true}, allow, "127.0.0.1:4000", http.StatusOK},
		{"ip checked before auth", DocsAccess{RequireAuth: true, AllowedIPs: []string{"127.0.0.1"}}, allow, "10.0.0.1:4000", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveDocs(DocsGuard(tt.access, tt.authenticate), tt.remoteAddr)
			require.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.want == http.StatusOK {
				assert.Equal(t, "docs", w.Body.String())
			}
		})
	}

	w := serveDocs(DocsGuard(DocsAccess{AllowedIPs: []string{"127.0.0.1"}}, nil), "10.0.0.1:4000")
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.SpecInsufficientPermissions, env.Error.Spec)
}
