package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
)

// TelegramIDKey holds the verified Telegram user id set by TelegramAuth.
const TelegramIDKey = "telegram_id"

var (
	ErrTelegramToken = errors.New("telegram bot token is empty")
	ErrTelegramHash  = errors.New("invalid telegram hash")
)

// CheckTelegramHash verifies a Telegram login widget payload. The
// data-check string is every parameter except hash as sorted "k=v" lines,
// signed with HMAC-SHA256 under sha256(token). A repeated parameter counts
// with its last value, hash included.
func CheckTelegramHash(query map[string][]string, token string) error {
	if token == "" {
		return ErrTelegramToken
	}

	lines := make([]string, 0, len(query))
	for k, vs := range query {
		if k == "hash" || len(vs) == 0 {
			continue
		}
		lines = append(lines, k+"="+lastValue(query, k))
	}
	sort.Strings(lines)

	secret := sha256.Sum256([]byte(token))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(lastValue(query, "hash"))) {
		return ErrTelegramHash
	}
	return nil
}

// TelegramAuth rejects requests whose query does not carry a valid
// Telegram login signature and stores the signed user id.
func TelegramAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		if err := CheckTelegramHash(query, token); err != nil {
			if errors.Is(err, ErrTelegramToken) {
				Abort(c, dto.InternalServer("telegram login is not configured"))
				return
			}
			Abort(c, dto.Unauthorized("Invalid telegram signature"))
			return
		}
		if id, err := strconv.ParseInt(lastValue(query, "id"), 10, 64); err == nil {
			c.Set(TelegramIDKey, id)
		}
		c.Next()
	}
}

// TelegramID returns the id stored by TelegramAuth.
func TelegramID(c *gin.Context) (int64, bool) {
	id, ok := c.Get(TelegramIDKey)
	if !ok {
		return 0, false
	}
	v, ok := id.(int64)
	return v, ok
}

// TelegramField returns a login widget parameter as CheckTelegramHash
// signed it.
func TelegramField(c *gin.Context, key string) string {
	return lastValue(c.Request.URL.Query(), key)
}

func lastValue(query map[string][]string, key string) string {
	vs := query[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}
