package persistence

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var jsonValidator = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

// JSON stores a typed value in a JSON column. Struct values are checked
// with their `validate` tags both before writing and after reading. On
// postgres the column is JSONB unless the field is tagged `gorm:"jsonb:false"`.
type JSON[T any] struct {
	V     T
	Valid bool
}

// NewJSON wraps v as a non-null column value.
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{V: v, Valid: true}
}

// Value implements driver.Valuer.
func (j JSON[T]) Value() (driver.Value, error) {
	if !j.Valid {
		return nil, nil
	}
	if err := validateJSON(j.V); err != nil {
		return nil, err
	}
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, fmt.Errorf("json column: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (j *JSON[T]) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*j = JSON[T]{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("json column: cannot scan %T", src)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		*j = JSON[T]{}
		return nil
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("json column: %w", err)
	}
	if err := validateJSON(out); err != nil {
		return err
	}
	*j = JSON[T]{V: out, Valid: true}
	return nil
}

// MarshalJSON encodes the wrapped value, or null.
func (j JSON[T]) MarshalJSON() ([]byte, error) {
	if !j.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(j.V)
}

// UnmarshalJSON decodes into the wrapped value; null clears it.
func (j *JSON[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*j = JSON[T]{}
		return nil
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*j = JSON[T]{V: out, Valid: true}
	return nil
}

// GormDataType implements schema.GormDataTypeInterface.
func (JSON[T]) GormDataType() string {
	return "json"
}

// GormDBDataType implements migrator.GormDataTypeInterface.
func (JSON[T]) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		if field != nil && field.TagSettings["JSONB"] == "false" {
			return "JSON"
		}
		return "JSONB"
	default:
		return "JSON"
	}
}

// JSONPlain is JSON that always uses the plain JSON column type, also on
// postgres.
type JSONPlain[T any] struct {
	JSON[T]
}

// NewJSONDisableJSONB wraps v as a non-null JSONPlain value.
func NewJSONDisableJSONB[T any](v T) JSONPlain[T] {
	return JSONPlain[T]{JSON: NewJSON(v)}
}

// GormDBDataType implements migrator.GormDataTypeInterface.
func (JSONPlain[T]) GormDBDataType(*gorm.DB, *schema.Field) string {
	return "JSON"
}

func validateJSON(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	if err := jsonValidator().Struct(rv.Interface()); err != nil {
		return fmt.Errorf("json column: %w", err)
	}
	return nil
}

// JSONHasKey filters rows whose JSON column contains the key path.
func JSONHasKey(column string, keys ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(datatypes.JSONQuery(column).HasKey(keys...))
	}
}

// JSONEquals filters rows whose JSON column has value at the key path.
func JSONEquals(column string, value any, keys ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(datatypes.JSONQuery(column).Equals(value, keys...))
	}
}
