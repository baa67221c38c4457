package persistence

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// BaseMapping carries the bookkeeping columns shared by every entity.
// Embed it in a model struct.
type BaseMapping struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
}

// SoftDelete marks the row inactive; persist it with an update.
func (m *BaseMapping) SoftDelete() { m.IsActive = false }

// Activate marks the row active.
func (m *BaseMapping) Activate() { m.IsActive = true }

// parseSchema resolves the gorm schema of model through db's cache.
func parseSchema(db *gorm.DB, model any) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return stmt.Schema, nil
}

func modelValue(model any) (reflect.Value, error) {
	rv := reflect.ValueOf(model)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("persistence: nil model")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("persistence: model must be a struct, got %s", rv.Kind())
	}
	return rv, nil
}

// ToMap returns every column of model keyed by column name, with extra
// merged over it.
func ToMap(db *gorm.DB, model any, extra map[string]any) (map[string]any, error) {
	s, err := parseSchema(db, model)
	if err != nil {
		return nil, err
	}
	rv, err := modelValue(model)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(s.DBNames)+len(extra))
	for _, name := range s.DBNames {
		v, _ := s.FieldsByDBName[name].ValueOf(context.Background(), rv)
		out[name] = v
	}
	maps.Copy(out, extra)
	return out, nil
}

// IsLoaded reports whether key holds data. Columns are always loaded;
// relationships count as loaded once preloaded (non-nil). Unknown keys
// yield an UnknownFieldError listing the valid ones.
func IsLoaded(db *gorm.DB, model any, key string) (bool, error) {
	s, err := parseSchema(db, model)
	if err != nil {
		return false, err
	}
	rv, err := modelValue(model)
	if err != nil {
		return false, err
	}

	if rel, ok := s.Relationships.Relations[key]; ok {
		v := rel.Field.ReflectValueOf(context.Background(), rv)
		switch v.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			return !v.IsNil(), nil
		default:
			return !v.IsZero(), nil
		}
	}
	if f := s.LookUpField(key); f != nil && f.DBName != "" {
		return true, nil
	}
	return false, &UnknownFieldError{Model: s.Name, Field: key, Available: availableKeys(s)}
}

// Describe renders model as "Name: map[...]".
func Describe(db *gorm.DB, model any) string {
	m, err := ToMap(db, model, nil)
	if err != nil {
		return fmt.Sprintf("%T: <%v>", model, err)
	}
	rv, _ := modelValue(model)
	return fmt.Sprintf("%s: %v", rv.Type().Name(), m)
}

func availableKeys(s *schema.Schema) []string {
	keys := slices.Clone(s.DBNames)
	for name := range s.Relationships.Relations {
		keys = append(keys, name)
	}
	slices.Sort(keys)
	return keys
}
