package router

import (
	"github.com/gin-gonic/gin"
	"github.com/stuffkit/backend/internal/interfaces/http/handler"
	"github.com/stuffkit/backend/internal/interfaces/http/middleware"
)

// Handlers are the endpoint implementations mounted by API.
type Handlers struct {
	Profiles *handler.ProfileHandler
	Auth     *handler.AuthHandler
	System   *handler.SystemHandler
	// Docs serves the API documentation; nil leaves it unmounted.
	Docs gin.HandlerFunc
}

// Access holds the guards applied per route.
type Access struct {
	// Authenticated rejects requests without a current user.
	Authenticated gin.HandlerFunc
	// Telegram verifies the login widget signature.
	Telegram gin.HandlerFunc
	// Roles configures the role check; zero value uses the defaults.
	Roles *middleware.RolesConfig
	// AdminRoles are required for profile writes and system info.
	AdminRoles []string
	// Docs guards the documentation routes.
	Docs gin.HandlerFunc
}

func (a Access) requireRoles(roles ...string) gin.HandlerFunc {
	if a.Roles != nil {
		return middleware.EnsureValidRolesWithConfig(*a.Roles, roles...)
	}
	return middleware.EnsureValidRoles(roles...)
}

// API builds the domain groups of the stuffkit API.
func API(h Handlers, a Access) []RouteRegistrar {
	admin := a.requireRoles(a.AdminRoles...)

	profiles := NewDomainGroup("profiles", "/profiles").Use(a.Authenticated)
	profiles.GET("", h.Profiles.List)
	profiles.GET("/:ref", h.Profiles.Get)
	profiles.POST("", admin, h.Profiles.Create)
	profiles.PATCH("/:ref", admin, h.Profiles.Update)
	profiles.PUT("/:ref/roles", admin, h.Profiles.SetRoles)
	profiles.DELETE("/:ref", admin, h.Profiles.Delete)

	me := NewDomainGroup("me", "/me").Use(a.Authenticated)
	me.GET("", h.Profiles.Me)

	authRoutes := NewDomainGroup("auth", "/auth")
	authRoutes.GET("/telegram", a.Telegram, h.Auth.TelegramLogin)
	authRoutes.POST("/logout", a.Authenticated, h.Auth.Logout)

	system := NewDomainGroup("system", "/system")
	system.GET("/ping", h.System.Ping)
	system.GET("/health", h.System.Health)
	system.Group("system-admin", "").
		Use(a.Authenticated, admin).
		GET("/info", h.System.Info)

	registrars := []RouteRegistrar{profiles, me, authRoutes, system}
	if h.Docs != nil {
		docs := NewDomainGroup("docs", "/docs").Use(a.Docs).GET("/*any", h.Docs)
		registrars = append(registrars, docs)
	}
	return registrars
}
