package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stuffkit/backend/internal/application/profile"
	"github.com/stuffkit/backend/internal/infrastructure/auth"
	"github.com/stuffkit/backend/internal/infrastructure/config"
	"github.com/stuffkit/backend/internal/infrastructure/persistence"
	"github.com/stuffkit/backend/internal/infrastructure/persistence/models"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
	"github.com/stuffkit/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

const (
	testCookie   = "access_token"
	testBotToken = "123456:bot-token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Payload json.RawMessage `json:"payload"`
	Error   *dto.ErrorSO    `json:"error"`
}

type testEnv struct {
	t        *testing.T
	engine   *gin.Engine
	db       *persistence.Database
	profiles *profile.Service
	tokens   *auth.TokenService
	revoker  *auth.MemoryRevoker
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := persistence.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.DB.AutoMigrate(models.All()...))
	require.NoError(t, db.DB.Create(&[]models.Role{{Name: "admin"}, {Name: "editor"}}).Error)

	tokens, err := auth.NewTokenService(config.AuthConfig{
		JWTSecret: "test-secret-key-at-least-32-chars",
		Issuer:    "stuffkit-test",
		TokenTTL:  15 * time.Minute,
	})
	require.NoError(t, err)

	env := &testEnv{
		t:        t,
		db:       db,
		profiles: profile.NewService(db.DB, zap.NewNop()),
		tokens:   tokens,
		revoker:  auth.NewMemoryRevoker(),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env.engine = env.mount(nil)
	return env
}

// mount builds the engine the way the server does, minus telemetry.
func (e *testEnv) mount(redisClient func() (*redis.Client, error)) *gin.Engine {
	engine := gin.New()
	middleware.Apply(engine, middleware.WithCookieDeleter(middleware.CookieDeleter(testCookie, false)))
	engine.Use(middleware.JWTUser(middleware.JWTConfig{
		Tokens:     e.tokens,
		Revoker:    e.revoker,
		CookieName: testCookie,
		Optional:   true,
	}))

	ph := NewProfileHandler(e.profiles)
	ph.now = func() time.Time { return e.now }
	ah := NewAuthHandler(e.profiles, e.tokens, e.revoker, testCookie, false)
	sh := NewSystemHandler("stuffkit", "test", e.db, redisClient, e.profiles)

	user := middleware.RequireUser()
	admin := middleware.EnsureValidRoles("admin")

	api := engine.Group("/api/v1")
	profiles := api.Group("/profiles", user)
	profiles.GET("", ph.List)
	profiles.GET("/:ref", ph.Get)
	profiles.POST("", admin, ph.Create)
	profiles.PATCH("/:ref", admin, ph.Update)
	profiles.PUT("/:ref/roles", admin, ph.SetRoles)
	profiles.DELETE("/:ref", admin, ph.Delete)
	api.GET("/me", user, ph.Me)
	api.GET("/auth/telegram", middleware.TelegramAuth(testBotToken), ah.TelegramLogin)
	api.POST("/auth/logout", user, ah.Logout)
	api.GET("/system/health", sh.Health)
	api.GET("/system/info", sh.Info)
	return engine
}

// login creates a profile and returns a bearer token for it.
func (e *testEnv) login(handle string, roles ...string) string {
	e.t.Helper()
	p, err := e.profiles.Create(context.Background(), profile.CreateInput{
		Handle:      handle,
		DisplayName: handle,
		Roles:       roles,
	})
	require.NoError(e.t, err)
	token, _, err := e.tokens.Issue(strconv.FormatUint(uint64(p.ID), 10), p.Handle, p.RoleNames())
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, target, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.Nil(t, env.Error, w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Payload, &out))
	return out
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorSO {
	t.Helper()
	var env dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.NotNil(t, env.Error, w.Body.String())
	assert.Nil(t, env.Payload)
	return *env.Error
}

func TestProfileHandler_CRUD(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("root", "admin")

	w := env.do(http.MethodPost, "/api/v1/profiles", admin, gin.H{
		"handle":      "Ann",
		"displayName": "Ann Smith",
		"email":       "ann@example.com",
		"settings":    gin.H{"timezone": "Europe/Berlin", "locale": "de-DE"},
		"roles":       []string{"editor"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[ProfileResponse](t, w)
	assert.Equal(t, "ann", created.Handle)
	assert.Equal(t, []string{"editor"}, created.Roles)
	assert.True(t, created.IsActive)
	assert.Equal(t, "Europe/Berlin", created.Settings.Timezone)

	w = env.do(http.MethodGet, "/api/v1/profiles/"+strconv.FormatUint(uint64(created.ID), 10), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ann@example.com", *decode[ProfileResponse](t, w).Email)

	t.Run("update reports changed fields", func(t *testing.T) {
		w := env.do(http.MethodPatch, "/api/v1/profiles/ann", admin, gin.H{
			"displayName": "Annie",
			"email":       "ann@example.com",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decode[UpdateProfileResponse](t, w)
		assert.Equal(t, []string{"DisplayName"}, got.Modified)
		assert.Equal(t, "Annie", got.Profile.DisplayName)
	})

	t.Run("set roles", func(t *testing.T) {
		w := env.do(http.MethodPut, "/api/v1/profiles/ann/roles", admin, gin.H{"roles": []string{"admin", "editor"}})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.ElementsMatch(t, []string{"admin", "editor"}, decode[ProfileResponse](t, w).Roles)
	})

	t.Run("list pages", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/profiles?size=1&page=1", admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		page := decode[dto.ListSO[ProfileResponse]](t, w)
		assert.Equal(t, int64(2), page.Total)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 1, page.Size)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "ann", page.Items[0].Handle)
	})

	t.Run("delete", func(t *testing.T) {
		w := env.do(http.MethodDelete, "/api/v1/profiles/ann", admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(http.MethodGet, "/api/v1/profiles/ann", admin, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		so := decodeError(t, w)
		assert.Equal(t, dto.SpecNotFound, so.Spec)
		assert.Equal(t, "Profile not found", *so.Detail)
		assert.Equal(t, "NOT_FOUND", so.Context["code"])
	})
}

func TestProfileHandler_Errors(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("root", "admin")
	editor := env.login("ed", "editor")

	tests := []struct {
		name   string
		method string
		target string
		token  string
		body   any
		status int
		spec   dto.Spec
	}{
		{"anonymous", http.MethodGet, "/api/v1/profiles", "", nil, http.StatusUnauthorized, dto.SpecUnauthorized},
		{"missing role", http.MethodPost, "/api/v1/profiles", editor, gin.H{"handle": "x1", "displayName": "X"}, http.StatusForbidden, dto.SpecInsufficientPermissions},
		{"bad email", http.MethodPost, "/api/v1/profiles", admin, gin.H{"handle": "x1", "displayName": "X", "email": "nope"}, http.StatusUnprocessableEntity, dto.SpecValidationError},
		{"missing display name", http.MethodPost, "/api/v1/profiles", admin, gin.H{"handle": "x1"}, http.StatusUnprocessableEntity, dto.SpecValidationError},
		{"taken handle", http.MethodPost, "/api/v1/profiles", admin, gin.H{"handle": "ED", "displayName": "Ed"}, http.StatusConflict, dto.SpecDatabaseError},
		{"unknown role", http.MethodPut, "/api/v1/profiles/ed/roles", admin, gin.H{"roles": []string{"owner"}}, http.StatusUnprocessableEntity, dto.SpecValidationError},
		{"unknown time zone", http.MethodPatch, "/api/v1/profiles/ed", admin, gin.H{"settings": gin.H{"timezone": "Mars/Olympus"}}, http.StatusUnprocessableEntity, dto.SpecValidationError},
		{"bad page size", http.MethodGet, "/api/v1/profiles?size=1000", admin, nil, http.StatusUnprocessableEntity, dto.SpecValidationError},
		{"missing profile", http.MethodDelete, "/api/v1/profiles/404", admin, nil, http.StatusNotFound, dto.SpecNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.method, tt.target, tt.token, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.spec, decodeError(t, w).Spec)
		})
	}
}

func TestProfileHandler_Me(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("ann", "editor")
	_, _, err := env.profiles.Update(context.Background(), "ann", profile.UpdateInput{
		Settings: &models.ProfileSettings{Timezone: "Asia/Tokyo"},
	})
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decode[map[string]any](t, w)
	assert.Equal(t, "ann", me["handle"])
	assert.Equal(t, "2026-03-01T21:00:00+09:00", me["localTime"])
	assert.Equal(t, true, me["isActive"])
	assert.Contains(t, me, "createdAt")
	assert.Greater(t, me["tokenExpiresIn"], float64(0))

	t.Run("deactivated", func(t *testing.T) {
		_, _, err := env.profiles.Update(context.Background(), "ann", profile.UpdateInput{IsActive: new(bool)})
		require.NoError(t, err)

		w := env.do(http.MethodGet, "/api/v1/me", token, nil)
		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Equal(t, dto.SpecBanned, decodeError(t, w).Spec)
	})
}

func signTelegram(values url.Values, token string) string {
	lines := make([]string, 0, len(values))
	for k := range values {
		lines = append(lines, k+"="+values.Get(k))
	}
	sort.Strings(lines)
	secret := sha256.Sum256([]byte(token))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func TestAuthHandler_TelegramLoginAndLogout(t *testing.T) {
	env := newTestEnv(t)
	query := signTelegram(url.Values{
		"id":         {"4242"},
		"username":   {"Ann"},
		"first_name": {"Ann"},
		"auth_date":  {"1767225600"},
	}, testBotToken)

	w := env.do(http.MethodGet, "/api/v1/auth/telegram?"+query, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[TokenResponse](t, w)
	assert.True(t, login.Created)
	assert.Equal(t, "Bearer", login.TokenType)
	assert.Equal(t, "ann", login.Profile.Handle)
	require.NotNil(t, login.Profile.TelegramID)
	assert.Equal(t, int64(4242), *login.Profile.TelegramID)
	assert.Contains(t, w.Header().Get("Set-Cookie"), testCookie+"="+login.AccessToken)

	claims, err := env.tokens.Validate(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(uint64(login.Profile.ID), 10), claims.Subject)

	w = env.do(http.MethodGet, "/api/v1/auth/telegram?"+query, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[TokenResponse](t, w).Created, "second sign-in reuses the profile")

	t.Run("tampered signature", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/auth/telegram?"+strings.Replace(query, "4242", "4243", 1), "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/v1/auth/logout", login.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

		revoked, err := env.revoker.IsRevoked(context.Background(), claims.ID)
		require.NoError(t, err)
		assert.True(t, revoked)

		w = env.do(http.MethodGet, "/api/v1/me", login.AccessToken, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.SpecSessionExpired, decodeError(t, w).Spec)
	})
}

func TestSystemHandler(t *testing.T) {
	env := newTestEnv(t)

	t.Run("healthy without redis", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/system/health", "", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		health := decode[HealthResponse](t, w)
		assert.Equal(t, "healthy", health.Status)
		assert.Equal(t, StatusOK, health.Database)
		assert.Equal(t, StatusDisabled, health.Redis)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		env.engine = env.mount(func() (*redis.Client, error) {
			return nil, errors.New("dial tcp: connection refused")
		})
		w := env.do(http.MethodGet, "/api/v1/system/health", "", nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		health := decode[HealthResponse](t, w)
		assert.Equal(t, "unhealthy", health.Status)
		assert.Equal(t, StatusError, health.Redis)
	})

	t.Run("info", func(t *testing.T) {
		_, err := env.profiles.LocalTime(&models.Profile{
			Settings: persistence.NewJSON(models.ProfileSettings{Timezone: "Europe/Paris"}),
		}, env.now)
		require.NoError(t, err)

		w := env.do(http.MethodGet, "/api/v1/system/info", "", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		info := decode[SystemInfoResponse](t, w)
		assert.Equal(t, "stuffkit", info.Name)
		assert.Equal(t, 64, info.TimezoneCache.Capacity)
		assert.Equal(t, 1, info.TimezoneCache.Size)
		assert.Equal(t, 1, info.Database.MaxOpenConnections)
	})
}
