package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stuffkit/backend/internal/application/profile"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
	"github.com/stuffkit/backend/internal/interfaces/http/middleware"
)

// ProfileHandler serves the profile endpoints.
type ProfileHandler struct {
	BaseHandler
	profiles *profile.Service
	now      func() time.Time
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *profile.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, now: time.Now}
}

// List godoc
// @ID           listProfiles
// @Summary      List profiles
// @Description  Paged profile list, filterable by active flag and settings key
// @Tags         profiles
// @Produce      json
// @Param        page     query int    false "0-based page"
// @Param        size     query int    false "Page size (1-100, default 20)"
// @Param        active   query bool   false "Filter by active flag"
// @Param        setting  query string false "Only profiles whose settings contain this key"
// @Param        sort     query string false "Sort field: id, handle, displayName, createdAt, updatedAt"
// @Param        order    query string false "asc or desc"
// @Success      200 {object} dto.ResponseSO[dto.ListSO[ProfileResponse]]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /profiles [get]
func (h *ProfileHandler) List(c *gin.Context) {
	var q ListProfilesQuery
	if !h.BindQuery(c, &q) {
		return
	}

	size := q.SizeOrDefault()
	result, err := h.profiles.List(c.Request.Context(), profile.ListInput{
		Page:       q.Page,
		Size:       size,
		Active:     q.Active,
		SettingKey: q.Setting,
		Sort:       q.Sort,
		Order:      q.Order,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	middleware.OK(c, dto.ListSO[ProfileResponse]{
		Items: toProfileResponses(result.Items),
		Total: result.Total,
		Page:  q.Page,
		Size:  size,
	})
}

// Get godoc
// @ID           getProfile
// @Summary      Get a profile
// @Description  Looks a profile up by numeric id or handle
// @Tags         profiles
// @Produce      json
// @Param        ref path string true "Profile id or handle"
// @Success      200 {object} dto.ResponseSO[ProfileResponse]
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /profiles/{ref} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	middleware.OK(c, toProfileResponse(p))
}

// Me godoc
// @ID           getMe
// @Summary      Current profile
// @Description  The authenticated profile with its local time and the remaining token lifetime in seconds
// @Tags         profiles
// @Produce      json
// @Success      200 {object} dto.ResponseSO[map[string]any]
// @Failure      401 {object} dto.ErrorResponse
// @Failure      418 {object} dto.ErrorResponse "Profile is deactivated"
// @Security     BearerAuth
// @Router       /me [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		middleware.Abort(c, dto.Unauthorized("Authentication required"))
		return
	}

	p, err := h.profiles.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !p.IsActive {
		middleware.Abort(c, dto.Banned("Profile is deactivated"))
		return
	}
	local, err := h.profiles.LocalTime(p, h.now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	middleware.OK(c, dto.MappingFields(p.BaseMapping, map[string]any{
		"id":             p.ID,
		"handle":         p.Handle,
		"displayName":    p.DisplayName,
		"roles":          p.RoleNames(),
		"localTime":      local.Format(time.RFC3339),
		"tokenExpiresIn": int64(claims.ExpiresIn().Seconds()),
	}))
}

// Create godoc
// @ID           createProfile
// @Summary      Create a profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        request body CreateProfileRequest true "Profile to create"
// @Success      201 {object} dto.ResponseSO[ProfileResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /profiles [post]
func (h *ProfileHandler) Create(c *gin.Context) {
	var req CreateProfileRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.profiles.Create(c.Request.Context(), profile.CreateInput{
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Settings:    req.Settings,
		Roles:       req.Roles,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	middleware.Created(c, toProfileResponse(p))
}

// Update godoc
// @ID           updateProfile
// @Summary      Update a profile
// @Description  Applies the present fields and reports which ones changed
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        ref     path string               true "Profile id or handle"
// @Param        request body UpdateProfileRequest true "Fields to change"
// @Success      200 {object} dto.ResponseSO[UpdateProfileResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /profiles/{ref} [patch]
func (h *ProfileHandler) Update(c *gin.Context) {
	var req UpdateProfileRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, modified, err := h.profiles.Update(c.Request.Context(), c.Param("ref"), profile.UpdateInput{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Settings:    req.Settings,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if modified == nil {
		modified = []string{}
	}
	middleware.OK(c, UpdateProfileResponse{Profile: toProfileResponse(p), Modified: modified})
}

// SetRoles godoc
// @ID           setProfileRoles
// @Summary      Replace profile roles
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        ref     path string          true "Profile id or handle"
// @Param        request body SetRolesRequest true "Role names"
// @Success      200 {object} dto.ResponseSO[ProfileResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /profiles/{ref}/roles [put]
func (h *ProfileHandler) SetRoles(c *gin.Context) {
	var req SetRolesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.profiles.SetRoles(c.Request.Context(), c.Param("ref"), req.Roles)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	middleware.OK(c, toProfileResponse(p))
}

// Delete godoc
// @ID           deleteProfile
// @Summary      Delete a profile
// @Tags         profiles
// @Produce      json
// @Param        ref path string true "Profile id or handle"
// @Success      200 {object} dto.ResponseSO[map[string]bool]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /profiles/{ref} [delete]
func (h *ProfileHandler) Delete(c *gin.Context) {
	if err := h.profiles.Delete(c.Request.Context(), c.Param("ref")); err != nil {
		h.HandleError(c, err)
		return
	}
	middleware.OK(c, gin.H{"deleted": true})
}
