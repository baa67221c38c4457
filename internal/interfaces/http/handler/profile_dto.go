package handler

import (
	"github.com/stuffkit/backend/internal/infrastructure/persistence/models"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
)

// CreateProfileRequest is the body of POST /profiles.
type CreateProfileRequest struct {
	Handle      string                  `json:"handle" binding:"required,min=2,max=64,excludesall= /"`
	DisplayName string                  `json:"displayName" binding:"required,max=128"`
	Email       *string                 `json:"email" binding:"omitempty,email,max=255"`
	Settings    *models.ProfileSettings `json:"settings"`
	Roles       []string                `json:"roles" binding:"omitempty,dive,min=1,max=64"`
}

// UpdateProfileRequest is the body of PATCH /profiles/:ref. Absent
// fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName *string                 `json:"displayName" binding:"omitempty,min=1,max=128"`
	Email       *string                 `json:"email" binding:"omitempty,email,max=255"`
	Settings    *models.ProfileSettings `json:"settings"`
	IsActive    *bool                   `json:"isActive"`
}

// SetRolesRequest is the body of PUT /profiles/:ref/roles.
type SetRolesRequest struct {
	Roles []string `json:"roles" binding:"required,dive,min=1,max=64"`
}

// ListProfilesQuery binds GET /profiles.
type ListProfilesQuery struct {
	dto.PageQuery
	Active  *bool  `form:"active"`
	Setting string `form:"setting" binding:"omitempty,max=64"`
	Sort    string `form:"sort" binding:"omitempty,max=32"`
	Order   string `form:"order" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// ProfileResponse is the public shape of a profile.
type ProfileResponse struct {
	ID          uint                   `json:"id"`
	Handle      string                 `json:"handle"`
	DisplayName string                 `json:"displayName"`
	Email       *string                `json:"email"`
	TelegramID  *int64                 `json:"telegramId"`
	Settings    models.ProfileSettings `json:"settings"`
	Roles       []string               `json:"roles"`
	dto.MappingSO
}

// UpdateProfileResponse reports the stored profile and what changed.
type UpdateProfileResponse struct {
	Profile  ProfileResponse `json:"profile"`
	Modified []string        `json:"modified"`
}

func toProfileResponse(p *models.Profile) ProfileResponse {
	return ProfileResponse{
		ID:          p.ID,
		Handle:      p.Handle,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		TelegramID:  p.TelegramID,
		Settings:    p.Settings.V,
		Roles:       p.RoleNames(),
		MappingSO:   dto.NewMappingSO(p.BaseMapping),
	}
}

func toProfileResponses(items []models.Profile) []ProfileResponse {
	out := make([]ProfileResponse, len(items))
	for i := range items {
		out[i] = toProfileResponse(&items[i])
	}
	return out
}
