package middleware

import (
	"errors"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stuffkit/backend/internal/infrastructure/auth"
	"github.com/stuffkit/backend/internal/infrastructure/logger"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	CurrentUserKey = "current_user"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// JWTConfig holds configuration for JWT middleware
type JWTConfig struct {
	// Tokens is required for token validation
	Tokens *auth.TokenService
	// Revoker is optional for checking revoked tokens
	Revoker auth.Revoker
	// CookieName is read when the Authorization header is absent
	CookieName string
	// Optional marks a route group where anonymous requests pass through
	Optional bool
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// JWTUser authenticates the bearer token, from the Authorization header
// or the auth cookie, and stores its claims as the current user.
func JWTUser(cfg JWTConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		token, err := extractToken(c, cfg.CookieName)
		if err != nil {
			if cfg.Optional {
				c.Next()
				return
			}
			rejectToken(c, log, err)
			return
		}

		claims, err := cfg.Tokens.Validate(token)
		if err != nil {
			rejectToken(c, log, err)
			return
		}

		if cfg.Revoker != nil && claims.ID != "" {
			revoked, err := cfg.Revoker.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// fail open: the token itself is valid
				log.Error("Failed to check token revocation", zap.String("jti", claims.ID), zap.Error(err))
			} else if revoked {
				rejectToken(c, log, auth.ErrTokenRevoked)
				return
			}
		}

		c.Set(CurrentUserKey, claims)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.Subject))
		log.Debug("JWT authentication successful",
			zap.String("subject", claims.Subject),
			zap.Strings("roles", claims.Roles),
		)
		c.Next()
	}
}

var errMissingToken = errors.New("missing bearer token")

func extractToken(c *gin.Context, cookieName string) (string, error) {
	if header := c.GetHeader(AuthHeaderKey); header != "" {
		token, ok := strings.CutPrefix(header, BearerPrefix)
		if !ok || token == "" {
			return "", errMissingToken
		}
		return token, nil
	}
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			return token, nil
		}
	}
	return "", errMissingToken
}

func rejectToken(c *gin.Context, log *zap.Logger, err error) {
	log.Warn("JWT authentication failed", zap.Error(err), zap.String("path", c.Request.URL.Path))

	apiErr := dto.Unauthorized("Authentication required")
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		apiErr = dto.NewAPIError(dto.SpecSessionExpired, "Token has expired")
	case errors.Is(err, auth.ErrTokenRevoked):
		apiErr = dto.NewAPIError(dto.SpecSessionExpired, "Token has been revoked")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingSubject):
		apiErr = dto.Unauthorized("Invalid token")
	case errors.Is(err, auth.ErrTokenNotYetValid):
		apiErr = dto.Unauthorized("Token is not yet valid")
	}
	Abort(c, apiErr)
}

// CurrentUser returns the claims stored by JWTUser, or nil.
func CurrentUser(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(CurrentUserKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// RequireUser rejects requests that reached it without a current user,
// for groups mounted behind an optional JWTUser.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			Abort(c, dto.Unauthorized("Authentication required"))
			return
		}
		c.Next()
	}
}
