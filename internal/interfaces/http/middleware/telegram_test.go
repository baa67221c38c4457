package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:test-bot-token"

// signed builds a login payload the way Telegram signs it.
func signed(token string, fields map[string]string) url.Values {
	secret := sha256.Sum256([]byte(token))
	mac := hmac.New(sha256.New, secret[:])
	// keys in alphabetical order
	mac.Write([]byte("auth_date=1700000000\nfirst_name=Ann\nid=42\nusername=ann"))

	q := url.Values{}
	for k, v := range fields {
		q.Set(k, v)
	}
	q.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return q
}

func loginFields() map[string]string {
	return map[string]string{
		"id":         "42",
		"first_name": "Ann",
		"username":   "ann",
		"auth_date":  "1700000000",
	}
}

func TestCheckTelegramHash(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, CheckTelegramHash(signed(testBotToken, loginFields()), testBotToken))
	})

	t.Run("empty token", func(t *testing.T) {
		assert.ErrorIs(t, CheckTelegramHash(signed(testBotToken, loginFields()), ""), ErrTelegramToken)
	})

	t.Run("other token", func(t *testing.T) {
		assert.ErrorIs(t, CheckTelegramHash(signed(testBotToken, loginFields()), "654321:other"), ErrTelegramHash)
	})

	t.Run("tampered field", func(t *testing.T) {
		q := signed(testBotToken, loginFields())
		q.Set("id", "43")
		assert.ErrorIs(t, CheckTelegramHash(q, testBotToken), ErrTelegramHash)
	})

	t.Run("repeated hash uses the last value", func(t *testing.T) {
		q := signed(testBotToken, loginFields())
		valid := q.Get("hash")
		q.Set("hash", "00")
		q.Add("hash", valid)
		assert.NoError(t, CheckTelegramHash(q, testBotToken))

		q.Add("hash", "00")
		assert.ErrorIs(t, CheckTelegramHash(q, testBotToken), ErrTelegramHash)
	})

	t.Run("repeated field uses the last value", func(t *testing.T) {
		q := signed(testBotToken, loginFields())
		q.Set("id", "7")
		q.Add("id", "42")
		assert.NoError(t, CheckTelegramHash(q, testBotToken))
	})

	t.Run("missing hash", func(t *testing.T) {
		q := signed(testBotToken, loginFields())
		q.Del("hash")
		assert.ErrorIs(t, CheckTelegramHash(q, testBotToken), ErrTelegramHash)
	})
}

func TestTelegramAuth(t *testing.T) {
	engine := newEngine()
	engine.GET("/login", TelegramAuth(testBotToken), func(c *gin.Context) {
		id, ok := TelegramID(c)
		require.True(t, ok)
		OK(c, id)
	})

	t.Run("valid", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login?"+signed(testBotToken, loginFields()).Encode(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"payload":42,"error":null}`, w.Body.String())
	})

	t.Run("stores the signed id when id repeats", func(t *testing.T) {
		signedQuery := signed(testBotToken, loginFields()).Encode()
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login?id=7&"+signedQuery, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"payload":42,"error":null}`, w.Body.String())
	})

	t.Run("invalid", func(t *testing.T) {
		q := signed(testBotToken, loginFields())
		q.Set("username", "mallory")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login?"+q.Encode(), nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
