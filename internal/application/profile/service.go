// Package profile implements the profile use cases served by the HTTP
// layer: lookup by id or handle, paging, creation, partial updates with
// change hooks, role assignment and Telegram sign-in.
package profile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/stuffkit/backend/internal/domain/shared"
	"github.com/stuffkit/backend/internal/infrastructure/cache"
	"github.com/stuffkit/backend/internal/infrastructure/persistence"
	"github.com/stuffkit/backend/internal/infrastructure/persistence/models"
	"github.com/stuffkit/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Errors returned by the service.
var (
	ErrProfileNotFound = shared.NewDomainError(shared.CodeNotFound, "Profile not found")
	ErrHandleTaken     = shared.NewDomainError(shared.CodeAlreadyExists, "Handle is already taken")
	ErrUnknownRole     = shared.NewDomainError(shared.CodeInvalidInput, "Unknown role")
	ErrUnknownTimezone = shared.NewDomainError(shared.CodeInvalidInput, "Unknown time zone")
	ErrProfileInactive = shared.NewDomainError(shared.CodeBanned, "Profile is deactivated")
)

// DefaultPageSize applies when ListInput.Size is not positive.
const DefaultPageSize = 20

// Service handles profile operations
type Service struct {
	db        *gorm.DB
	profiles  *persistence.Repository[models.Profile]
	roles     *persistence.Repository[models.Role]
	locations *cache.InstanceCache[string, *time.Location]
	logger    *zap.Logger
}

// NewService creates a profile service on db. Cache options configure the
// time zone cache.
func NewService(db *gorm.DB, logger *zap.Logger, cacheOpts ...cache.Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheOpts = append([]cache.Option{cache.WithName("timezones"), cache.WithLogger(logger)}, cacheOpts...)
	return &Service{
		db:        db,
		profiles:  persistence.NewRepository[models.Profile](db),
		roles:     persistence.NewRepository[models.Role](db),
		locations: cache.NewInstanceCache(64, time.LoadLocation, cacheOpts...),
		logger:    logger,
	}
}

// CreateInput contains input for creating a profile
type CreateInput struct {
	Handle      string
	DisplayName string
	Email       *string
	TelegramID  *int64
	Settings    *models.ProfileSettings
	Roles       []string
}

// UpdateInput holds the fields to change; nil fields are left alone.
type UpdateInput struct {
	DisplayName *string
	Email       *string
	Settings    *models.ProfileSettings
	IsActive    *bool
}

// ListInput filters and pages List. Sort falls back to id when it is not
// one of SortFields; Order is desc for descending, anything else ascends.
type ListInput struct {
	Page       int
	Size       int
	Active     *bool
	SettingKey string
	Sort       string
	Order      string
}

// SortFields are the columns List can order by.
var SortFields = map[string]bool{
	"id":           true,
	"handle":       true,
	"display_name": true,
	"created_at":   true,
	"updated_at":   true,
}

// ListResult is one page of profiles.
type ListResult struct {
	Items []models.Profile
	Total int64
}

// List returns one page of profiles. Without a sort field the page is
// ordered by ascending id.
func (s *Service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	var filters []persistence.QueryOption
	if in.Active != nil {
		filters = append(filters, persistence.Where("is_active", *in.Active))
	}
	if in.SettingKey != "" {
		filters = append(filters, persistence.Scope(persistence.JSONHasKey("settings", in.SettingKey)))
	}

	total, err := s.profiles.Count(ctx, filters...)
	if err != nil {
		return nil, fmt.Errorf("count profiles: %w", err)
	}
	size := in.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	order := persistence.OrderBy("id", "asc")
	if in.Sort != "" {
		order = persistence.OrderBy(persistence.ValidateSortField(in.Sort, SortFields, "id"), in.Order)
	}
	opts := slices.Concat(filters, []persistence.QueryOption{
		order,
		persistence.Page(in.Page, size),
		persistence.Scope(func(db *gorm.DB) *gorm.DB { return db.Preload("Roles") }),
	})
	items, err := s.profiles.List(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return &ListResult{Items: items, Total: total}, nil
}

// Get resolves ref as a numeric id or, failing that, as a handle.
func (s *Service) Get(ctx context.Context, ref string) (*models.Profile, error) {
	var (
		p   *models.Profile
		err error
	)
	if id, perr := strconv.ParseUint(ref, 10, 64); perr == nil {
		p, err = s.profiles.GetByPK(ctx, uint(id), persistence.WithPreload("Roles"))
	} else {
		p, err = s.profiles.GetByPK(ctx, strings.ToLower(ref), persistence.WithKey("handle"), persistence.WithPreload("Roles"))
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %q: %w", ref, err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// FindByTelegramID returns the profile linked to a Telegram account, or
// ErrProfileNotFound.
func (s *Service) FindByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error) {
	p, err := s.profiles.GetByPK(ctx, telegramID, persistence.WithKey("telegram_id"), persistence.WithPreload("Roles"))
	if err != nil {
		return nil, fmt.Errorf("find profile by telegram id: %w", err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// Create creates a new profile
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Profile, error) {
	handle := strings.ToLower(strings.TrimSpace(in.Handle))
	taken, err := s.profiles.Count(ctx, persistence.Where("handle", handle))
	if err != nil {
		return nil, fmt.Errorf("check handle: %w", err)
	}
	if taken > 0 {
		return nil, ErrHandleTaken
	}

	settings := models.ProfileSettings{}
	if in.Settings != nil {
		settings = *in.Settings
	}
	if _, err := s.Location(settings.Timezone); err != nil {
		return nil, err
	}
	var roles []models.Role
	if len(in.Roles) > 0 {
		if roles, err = s.lookupRoles(ctx, in.Roles); err != nil {
			return nil, err
		}
	}

	fields := map[string]any{
		"handle":       handle,
		"display_name": in.DisplayName,
		"settings":     persistence.NewJSON(settings),
	}
	if in.Email != nil {
		fields["email"] = in.Email
	}
	if in.TelegramID != nil {
		fields["telegram_id"] = in.TelegramID
	}

	p, err := s.profiles.Create(ctx, fields)
	if err != nil {
		return nil, translate(err)
	}
	if len(roles) > 0 {
		if err := s.replaceRoles(ctx, p, roles); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Profile created", zap.Uint("profile_id", p.ID), zap.String("handle", p.Handle))
	return p, nil
}

// Update applies the non-nil fields of in and returns the profile and the
// names of the fields that actually changed. Settings are checked for a
// loadable time zone before they are stored.
func (s *Service) Update(ctx context.Context, ref string, in UpdateInput) (*models.Profile, []string, error) {
	p, err := s.Get(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, "profile.update",
		telemetry.WithAttribute(telemetry.SpanAttrProfileID, strconv.FormatUint(uint64(p.ID), 10)))
	defer span.End()

	data := map[string]any{}
	if in.DisplayName != nil {
		data["DisplayName"] = *in.DisplayName
	}
	if in.Email != nil {
		data["Email"] = in.Email
	}
	if in.Settings != nil {
		data["Settings"] = persistence.NewJSON(*in.Settings)
	}
	if in.IsActive != nil {
		data["IsActive"] = *in.IsActive
	}

	acc, err := persistence.StructAccessor(ctx, s.db, p)
	if err != nil {
		return nil, nil, err
	}
	modified, err := persistence.UpdateWithCallback(ctx, acc, data, s.hooks(p))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, nil, err
	}
	if err := s.profiles.UpdateFields(ctx, p, modified...); err != nil {
		telemetry.RecordError(span, err)
		return nil, nil, translate(err)
	}

	s.logger.Info("Profile updated",
		zap.Uint("profile_id", p.ID),
		zap.Strings("fields", modified),
	)
	return p, modified, nil
}

func (s *Service) hooks(p *models.Profile) map[string]persistence.Callback {
	return map[string]persistence.Callback{
		"Settings": {
			PassValue: true,
			Fn: func(_ context.Context, value any) error {
				settings, _ := value.(persistence.JSON[models.ProfileSettings])
				_, err := s.Location(settings.V.Timezone)
				return err
			},
		},
		"IsActive": {
			Fn: func(context.Context, any) error {
				s.logger.Info("Profile activation changed",
					zap.Uint("profile_id", p.ID),
					zap.Bool("active", p.IsActive),
				)
				return nil
			},
		},
	}
}

// SetRoles replaces the roles of the profile named by ref.
func (s *Service) SetRoles(ctx context.Context, ref string, names []string) (*models.Profile, error) {
	p, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	roles, err := s.lookupRoles(ctx, names)
	if err != nil {
		return nil, err
	}
	if err := s.replaceRoles(ctx, p, roles); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) lookupRoles(ctx context.Context, names []string) ([]models.Role, error) {
	roles, err := s.roles.List(ctx, persistence.Scope(func(db *gorm.DB) *gorm.DB {
		return db.Where("name IN ?", names)
	}))
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	if len(roles) != len(uniq(names)) {
		return nil, ErrUnknownRole.WithCause(fmt.Errorf("want %v", names))
	}
	return roles, nil
}

func (s *Service) replaceRoles(ctx context.Context, p *models.Profile, roles []models.Role) error {
	if err := s.db.WithContext(ctx).Model(p).Association("Roles").Replace(roles); err != nil {
		return fmt.Errorf("replace roles: %w", err)
	}
	p.Roles = roles
	return nil
}

// Delete removes the profile named by ref together with its role links.
func (s *Service) Delete(ctx context.Context, ref string) error {
	p, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(p).Association("Roles").Clear(); err != nil {
			return fmt.Errorf("clear roles: %w", err)
		}
		deleted, err := persistence.NewRepository[models.Profile](tx).DeleteByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrProfileNotFound
		}
		s.logger.Info("Profile deleted", zap.Uint("profile_id", p.ID))
		return nil
	})
}

// TelegramUser is the signed identity from a Telegram login.
type TelegramUser struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// SignInTelegram returns the profile linked to u, creating one on first
// sign-in. Deactivated profiles are refused.
func (s *Service) SignInTelegram(ctx context.Context, u TelegramUser) (*models.Profile, bool, error) {
	p, err := s.FindByTelegramID(ctx, u.ID)
	switch {
	case err == nil:
		if !p.IsActive {
			return nil, false, ErrProfileInactive
		}
		return p, false, nil
	case !errors.Is(err, ErrProfileNotFound):
		return nil, false, err
	}

	handle := u.Username
	if handle == "" {
		handle = "tg" + strconv.FormatInt(u.ID, 10)
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = handle
	}
	id := u.ID
	p, err = s.Create(ctx, CreateInput{Handle: handle, DisplayName: name, TelegramID: &id})
	if errors.Is(err, ErrHandleTaken) {
		p, err = s.Create(ctx, CreateInput{
			Handle:      handle + "_" + strconv.FormatInt(u.ID, 10),
			DisplayName: name,
			TelegramID:  &id,
		})
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Location returns the cached location for a time zone name. An empty
// name is UTC.
func (s *Service) Location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := s.locations.Get(name)
	if err != nil {
		return nil, ErrUnknownTimezone.WithCause(err)
	}
	return loc, nil
}

// LocalTime converts t to the profile's configured time zone.
func (s *Service) LocalTime(p *models.Profile, t time.Time) (time.Time, error) {
	loc, err := s.Location(p.Settings.V.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// CacheStats reports the time zone cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.locations.Stats()
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrHandleTaken.WithCause(err)
	}
	var missing *persistence.MissingFieldsError
	if errors.As(err, &missing) {
		return shared.ErrInvalidInput.WithCause(err)
	}
	return err
}

func uniq(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
