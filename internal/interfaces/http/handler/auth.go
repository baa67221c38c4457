package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stuffkit/backend/internal/application/profile"
	"github.com/stuffkit/backend/internal/infrastructure/auth"
	"github.com/stuffkit/backend/internal/infrastructure/logger"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
	"github.com/stuffkit/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// TokenResponse is returned by the login endpoints.
type TokenResponse struct {
	AccessToken string          `json:"accessToken"`
	TokenType   string          `json:"tokenType"`
	ExpiresIn   int64           `json:"expiresIn"`
	Created     bool            `json:"created"`
	Profile     ProfileResponse `json:"profile"`
}

// AuthHandler issues and revokes access tokens.
type AuthHandler struct {
	BaseHandler
	profiles     *profile.Service
	tokens       *auth.TokenService
	revoker      auth.Revoker
	cookieName   string
	secureCookie bool
}

// NewAuthHandler creates a new auth handler. revoker may be nil, in which
// case logout only clears the cookie.
func NewAuthHandler(profiles *profile.Service, tokens *auth.TokenService, revoker auth.Revoker, cookieName string, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		profiles:     profiles,
		tokens:       tokens,
		revoker:      revoker,
		cookieName:   cookieName,
		secureCookie: secureCookie,
	}
}

// TelegramLogin godoc
// @ID           telegramLogin
// @Summary      Sign in with Telegram
// @Description  Redirect target of the Telegram login widget. Creates the profile on first sign-in and sets the auth cookie.
// @Tags         auth
// @Produce      json
// @Param        id         query int    true  "Telegram user id"
// @Param        auth_date  query int    true  "Unix time of the widget authorization"
// @Param        hash       query string true  "HMAC-SHA256 of the data-check string"
// @Param        username   query string false "Telegram username"
// @Param        first_name query string false "First name"
// @Param        last_name  query string false "Last name"
// @Param        photo_url  query string false "Avatar URL"
// @Success      200 {object} dto.ResponseSO[TokenResponse]
// @Failure      401 {object} dto.ErrorResponse
// @Router       /auth/telegram [get]
func (h *AuthHandler) TelegramLogin(c *gin.Context) {
	id, ok := middleware.TelegramID(c)
	if !ok {
		middleware.Abort(c, dto.Unauthorized("Missing telegram user id"))
		return
	}

	p, created, err := h.profiles.SignInTelegram(c.Request.Context(), profile.TelegramUser{
		ID:        id,
		Username:  middleware.TelegramField(c, "username"),
		FirstName: middleware.TelegramField(c, "first_name"),
		LastName:  middleware.TelegramField(c, "last_name"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	token, claims, err := h.tokens.Issue(strconv.FormatUint(uint64(p.ID), 10), p.Handle, p.RoleNames())
	if err != nil {
		h.HandleError(c, fmt.Errorf("issuing token: %w", err))
		return
	}
	expiresIn := int64(claims.ExpiresIn().Seconds())

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(expiresIn), "/", "", h.secureCookie, true)

	logger.GetGinLogger(c).Info("Telegram sign-in",
		zap.Uint("profile_id", p.ID),
		zap.Bool("created", created),
	)

	middleware.OK(c, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		Created:     created,
		Profile:     toProfileResponse(p),
	})
}

// Logout godoc
// @ID           logout
// @Summary      Sign out
// @Description  Revokes the current token for the rest of its lifetime and clears the auth cookie
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.ResponseSO[map[string]bool]
// @Failure      401 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		middleware.Abort(c, dto.Unauthorized("Authentication required"))
		return
	}

	if h.revoker != nil && claims.ID != "" {
		if err := h.revoker.Revoke(c.Request.Context(), claims.ID, claims.ExpiresIn()); err != nil {
			h.HandleError(c, fmt.Errorf("revoking token: %w", err))
			return
		}
	}

	middleware.CookieDeleter(h.cookieName, h.secureCookie)(c)
	middleware.OK(c, gin.H{"loggedOut": true})
}
