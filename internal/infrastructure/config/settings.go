package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// ErrInvalidTarget is returned when LoadSettings is not given a non-nil
// pointer to a struct.
var ErrInvalidTarget = errors.New("settings: target must be a non-nil pointer to a struct")

var (
	upperSnake   = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	durationType = reflect.TypeOf(time.Duration(0))
)

// MissingError reports a required setting absent from the environment.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("required setting %s was not found in the environment", e.Name)
}

// TypeError reports a settings field of an unsupported type.
type TypeError struct {
	Field string
	Type  reflect.Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("setting %s has unsupported type %s", e.Field, e.Type)
}

// NameError reports an environment variable name that is not UPPER_SNAKE_CASE
// while explicit formatting is enforced.
type NameError struct {
	Field string
	Name  string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("setting %s: variable name %q must be upper snake case", e.Field, e.Name)
}

// ParseError reports a value that could not be coerced to the field type.
type ParseError struct {
	Name  string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("setting %s: cannot parse %q: %v", e.Name, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FactoryError reports a factory that is missing, malformed or failed.
type FactoryError struct {
	Field   string
	Factory string
	Reason  string
	Err     error
}

func (e *FactoryError) Error() string {
	msg := fmt.Sprintf("setting %s: factory %s %s", e.Field, e.Factory, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FactoryError) Unwrap() error { return e.Err }

// SettingsOption configures LoadSettings.
type SettingsOption func(*settingsLoader)

// WithDotenv loads the given files before reading fields. Variables already
// present in the environment win. Missing files are ignored.
func WithDotenv(paths ...string) SettingsOption {
	return func(l *settingsLoader) {
		l.dotenv = paths
	}
}

// WithExplicitFormat toggles the UPPER_SNAKE_CASE requirement for names
// given through env tags. Enabled by default.
func WithExplicitFormat(enabled bool) SettingsOption {
	return func(l *settingsLoader) {
		l.explicitFormat = enabled
	}
}

// WithSettingsLogger logs each evaluated field.
func WithSettingsLogger(logger *zap.Logger) SettingsOption {
	return func(l *settingsLoader) {
		l.logger = logger
	}
}

// WithLookup replaces os.LookupEnv, mostly for tests.
func WithLookup(lookup func(string) (string, bool)) SettingsOption {
	return func(l *settingsLoader) {
		l.lookup = lookup
	}
}

// WithFactory registers a callable producing the value of field (Go field
// name) when its variable is unset and it has no default.
func WithFactory(field string, fn func() (any, error)) SettingsOption {
	return func(l *settingsLoader) {
		l.factories[field] = fn
	}
}

type settingsLoader struct {
	dotenv         []string
	explicitFormat bool
	logger         *zap.Logger
	lookup         func(string) (string, bool)
	factories      map[string]func() (any, error)
}

type deferredField struct {
	field  reflect.Value
	name   string
	method string
}

// LoadSettings populates the struct pointed to by dst from the environment.
//
// Each exported field maps to one variable, named by its `env` tag or by
// the field name converted to UPPER_SNAKE_CASE. Unset variables fall back,
// in order, to the `default` tag, the method named by the `factory` tag
// (evaluated after every other field is set), a WithFactory callable, and
// finally the zero value unless the field is tagged `nullable:"false"`.
// Embedded structs are flattened. Fields tagged `validate` are checked with
// go-playground/validator once everything is resolved.
func LoadSettings(dst any, opts ...SettingsOption) error {
	l := &settingsLoader{
		dotenv:         []string{".env"},
		explicitFormat: true,
		logger:         zap.NewNop(),
		lookup:         os.LookupEnv,
		factories:      make(map[string]func() (any, error)),
	}
	for _, opt := range opts {
		opt(l)
	}

	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}

	for _, path := range l.dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	var deferred []deferredField
	if err := l.loadStruct(rv.Elem(), &deferred); err != nil {
		return err
	}

	for _, d := range deferred {
		if err := l.runMethodFactory(rv, d); err != nil {
			return err
		}
	}

	if hasValidateTags(rv.Elem().Type()) {
		if err := validator.New().Struct(dst); err != nil {
			return fmt.Errorf("settings validation failed: %w", err)
		}
	}
	return nil
}

func (l *settingsLoader) loadStruct(sv reflect.Value, deferred *[]deferredField) error {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		fv := sv.Field(i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			if err := l.loadStruct(fv, deferred); err != nil {
				return err
			}
			continue
		}
		if !sf.IsExported() || sf.Tag.Get("env") == "-" {
			continue
		}

		name, err := l.variableName(sf)
		if err != nil {
			return err
		}
		if !supportedType(sf.Type) {
			return &TypeError{Field: sf.Name, Type: sf.Type}
		}

		if raw, ok := l.lookup(name); ok {
			if err := assignString(fv, name, raw); err != nil {
				return err
			}
			l.evaluated(name, "env")
			continue
		}
		if def, ok := sf.Tag.Lookup("default"); ok {
			if err := assignString(fv, name, def); err != nil {
				return err
			}
			l.evaluated(name, "default")
			continue
		}
		if method := sf.Tag.Get("factory"); method != "" {
			*deferred = append(*deferred, deferredField{field: fv, name: name, method: method})
			continue
		}
		if fn, ok := l.factories[sf.Name]; ok {
			v, err := fn()
			if err != nil {
				return &FactoryError{Field: sf.Name, Factory: "func", Reason: "failed", Err: err}
			}
			if err := assignValue(fv, sf.Name, reflect.ValueOf(v)); err != nil {
				return err
			}
			l.evaluated(name, "factory")
			continue
		}
		if sf.Tag.Get("nullable") != "false" {
			fv.Set(reflect.Zero(sf.Type))
			l.evaluated(name, "null")
			continue
		}
		return &MissingError{Name: name}
	}
	return nil
}

func (l *settingsLoader) variableName(sf reflect.StructField) (string, error) {
	name, ok := sf.Tag.Lookup("env")
	if !ok || name == "" {
		name = toUpperSnake(sf.Name)
	}
	if l.explicitFormat && !upperSnake.MatchString(name) {
		return "", &NameError{Field: sf.Name, Name: name}
	}
	return name, nil
}

func (l *settingsLoader) runMethodFactory(rv reflect.Value, d deferredField) error {
	m := rv.MethodByName(d.method)
	if !m.IsValid() {
		return &FactoryError{Field: d.name, Factory: d.method, Reason: "is not a method of the settings type"}
	}
	mt := m.Type()
	errType := reflect.TypeOf((*error)(nil)).Elem()
	validShape := mt.NumIn() == 0 &&
		(mt.NumOut() == 1 || (mt.NumOut() == 2 && mt.Out(1) == errType))
	if !validShape {
		return &FactoryError{Field: d.name, Factory: d.method, Reason: "must take no arguments and return a value and optional error"}
	}

	out := m.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return &FactoryError{Field: d.name, Factory: d.method, Reason: "failed", Err: out[1].Interface().(error)}
	}
	if err := assignValue(d.field, d.name, out[0]); err != nil {
		return err
	}
	l.evaluated(d.name, "method")
	return nil
}

func (l *settingsLoader) evaluated(name, source string) {
	l.logger.Info("setting evaluated", zap.String("name", name), zap.String("source", source))
}

func supportedType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}

func assignString(fv reflect.Value, name, raw string) error {
	target := fv
	if fv.Kind() == reflect.Pointer {
		target = reflect.New(fv.Type().Elem()).Elem()
	}

	if err := parseInto(target, raw); err != nil {
		return &ParseError{Name: name, Value: raw, Err: err}
	}

	if fv.Kind() == reflect.Pointer {
		fv.Set(target.Addr())
	}
	return nil
}

func parseInto(v reflect.Value, raw string) error {
	if v.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		v.SetInt(int64(d))
		return nil
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		v.SetBool(strings.Contains(strings.ToLower(raw), "true"))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case reflect.Complex64, reflect.Complex128:
		c, err := strconv.ParseComplex(strings.TrimSpace(raw), v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetComplex(c)
	default:
		return fmt.Errorf("unsupported kind %s", v.Kind())
	}
	return nil
}

func assignValue(fv reflect.Value, name string, v reflect.Value) error {
	if !v.IsValid() {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	switch {
	case v.Type().AssignableTo(fv.Type()):
		fv.Set(v)
	case fv.Kind() == reflect.Pointer && v.Type().ConvertibleTo(fv.Type().Elem()):
		p := reflect.New(fv.Type().Elem())
		p.Elem().Set(v.Convert(fv.Type().Elem()))
		fv.Set(p)
	case v.Type().ConvertibleTo(fv.Type()) && v.Kind() != reflect.String:
		fv.Set(v.Convert(fv.Type()))
	default:
		return &TypeError{Field: name, Type: v.Type()}
	}
	return nil
}

func hasValidateTags(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if _, ok := sf.Tag.Lookup("validate"); ok {
			return true
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && hasValidateTags(sf.Type) {
			return true
		}
	}
	return false
}

// toUpperSnake converts a Go identifier such as DatabaseURL to DATABASE_URL.
func toUpperSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
