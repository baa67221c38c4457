package models

import (
	"github.com/stuffkit/backend/internal/infrastructure/persistence"
)

// ProfileSettings is the per-profile preference document kept in a JSON column.
type ProfileSettings struct {
	Locale        string   `json:"locale" validate:"omitempty,bcp47_language_tag"`
	Timezone      string   `json:"timezone" validate:"omitempty,timezone"`
	Notifications bool     `json:"notifications"`
	Channels      []string `json:"channels,omitempty" validate:"omitempty,dive,oneof=email telegram push"`
}

// Profile is a user profile addressed by numeric id or by handle.
type Profile struct {
	ID          uint                              `gorm:"primaryKey" json:"id"`
	Handle      string                            `gorm:"size:64;not null;uniqueIndex" json:"handle"`
	DisplayName string                            `gorm:"size:128;not null" json:"displayName"`
	Email       *string                           `gorm:"size:255" json:"email,omitempty"`
	TelegramID  *int64                            `gorm:"uniqueIndex" json:"telegramId,omitempty"`
	Settings    persistence.JSON[ProfileSettings] `json:"settings"`
	Roles       []Role                            `gorm:"many2many:profile_roles" json:"roles,omitempty"`
	persistence.BaseMapping
}

// TableName returns the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// Role is a named permission set assigned to profiles.
type Role struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;not null;uniqueIndex" json:"name"`
}

// TableName returns the table name for Role
func (Role) TableName() string {
	return "roles"
}

// RoleNames flattens the loaded roles.
func (p *Profile) RoleNames() []string {
	names := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		names = append(names, r.Name)
	}
	return names
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{&Role{}, &Profile{}}
}
