package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
)

// RolesConfig configures EnsureValidRolesWithConfig.
type RolesConfig struct {
	// GetUser returns the authenticated user. The default reads the
	// claims stored by JWTUser.
	GetUser func(c *gin.Context) (any, error)
	// RolesAttr names the user's roles field or map key.
	RolesAttr string
	// Deny builds the error for a failed check.
	Deny func(reason string) error
}

// DefaultRolesConfig reads CurrentUser and its "roles" attribute and
// rejects with insufficient_permissions.
func DefaultRolesConfig() RolesConfig {
	return RolesConfig{
		GetUser:   currentUserOrUnauthorized,
		RolesAttr: "roles",
		Deny:      func(reason string) error { return dto.Forbidden(reason) },
	}
}

func currentUserOrUnauthorized(c *gin.Context) (any, error) {
	if claims := CurrentUser(c); claims != nil {
		return claims, nil
	}
	return nil, dto.Unauthorized("Authentication required")
}

// EnsureValidRoles passes only users holding every one of roles.
func EnsureValidRoles(roles ...string) gin.HandlerFunc {
	return EnsureValidRolesWithConfig(DefaultRolesConfig(), roles...)
}

// EnsureValidRolesWithConfig is EnsureValidRoles with a custom user source.
func EnsureValidRolesWithConfig(cfg RolesConfig, roles ...string) gin.HandlerFunc {
	defaults := DefaultRolesConfig()
	if cfg.GetUser == nil {
		cfg.GetUser = defaults.GetUser
	}
	if cfg.RolesAttr == "" {
		cfg.RolesAttr = defaults.RolesAttr
	}
	if cfg.Deny == nil {
		cfg.Deny = defaults.Deny
	}
	required := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		required[r] = struct{}{}
	}

	return func(c *gin.Context) {
		user, err := cfg.GetUser(c)
		if err != nil {
			Abort(c, err)
			return
		}
		held, err := rolesOf(user, cfg.RolesAttr)
		if err != nil {
			Abort(c, cfg.Deny(err.Error()))
			return
		}
		for r := range required {
			if _, ok := held[r]; !ok {
				Abort(c, cfg.Deny("user does not have required roles"))
				return
			}
		}
		c.Next()
	}
}

var errNotIterable = errors.New("attribute is not iterable")

// rolesOf reads attr from a struct (by json name or field name) or a
// string keyed map, and returns it as a set. A plain string is rejected.
func rolesOf(user any, attr string) (map[string]struct{}, error) {
	v, ok := lookupAttr(reflect.ValueOf(user), attr)
	if !ok || v.Kind() == reflect.String {
		return nil, fmt.Errorf("user object does not have a valid iterable %q attribute", attr)
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("user %q %w", attr, errNotIterable)
	}

	set := make(map[string]struct{}, v.Len())
	for i := range v.Len() {
		elem := indirect(v.Index(i))
		if elem.Kind() != reflect.String {
			return nil, fmt.Errorf("user %q holds a non-string role", attr)
		}
		set[elem.String()] = struct{}{}
	}
	return set, nil
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func lookupAttr(v reflect.Value, attr string) (reflect.Value, bool) {
	v = indirect(v)
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		found := indirect(v.MapIndex(reflect.ValueOf(attr).Convert(v.Type().Key())))
		return found, found.IsValid()
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			jsonName, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if jsonName == attr || strings.EqualFold(f.Name, attr) {
				found := indirect(v.Field(i))
				return found, found.IsValid()
			}
		}
	}
	return reflect.Value{}, false
}
