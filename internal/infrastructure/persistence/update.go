package persistence

import (
	"context"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Accessor reads and writes named attributes of an object.
type Accessor interface {
	Get(name string) (any, error)
	Set(name string, value any) error
}

// MapAccessor exposes a plain map as an Accessor. Missing keys read as nil.
type MapAccessor map[string]any

func (m MapAccessor) Get(name string) (any, error) { return m[name], nil }

func (m MapAccessor) Set(name string, value any) error {
	m[name] = value
	return nil
}

type structAccessor struct {
	ctx    context.Context
	schema *schema.Schema
	rv     reflect.Value
}

// StructAccessor exposes the columns of a model pointer. Names may be
// column names or Go field names.
func StructAccessor(ctx context.Context, db *gorm.DB, ptr any) (Accessor, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("persistence: accessor needs a non-nil pointer, got %T", ptr)
	}
	s, err := parseSchema(db, ptr)
	if err != nil {
		return nil, err
	}
	return &structAccessor{ctx: ctx, schema: s, rv: rv.Elem()}, nil
}

func (a *structAccessor) field(name string) (*schema.Field, error) {
	f := a.schema.LookUpField(name)
	if f == nil {
		return nil, &UnknownFieldError{Model: a.schema.Name, Field: name, Available: availableKeys(a.schema)}
	}
	return f, nil
}

func (a *structAccessor) Get(name string) (any, error) {
	f, err := a.field(name)
	if err != nil {
		return nil, err
	}
	v, _ := f.ValueOf(a.ctx, a.rv)
	return v, nil
}

func (a *structAccessor) Set(name string, value any) error {
	f, err := a.field(name)
	if err != nil {
		return err
	}
	return f.Set(a.ctx, a.rv, value)
}

// Callback runs after an attribute changes. With PassValue the new value
// is handed to Fn; otherwise Fn receives nil.
type Callback struct {
	Fn        func(ctx context.Context, value any) error
	PassValue bool
}

func (c Callback) call(ctx context.Context, value any) error {
	if c.Fn == nil {
		return nil
	}
	if !c.PassValue {
		value = nil
	}
	return c.Fn(ctx, value)
}

// UpdateWithCallback assigns every value of data that differs from the
// current one, in key order, and fires the matching callback right after
// each assignment. It returns the names that changed. The first failing
// assignment or callback stops the update.
func UpdateWithCallback(ctx context.Context, obj Accessor, data map[string]any, onUpdate map[string]Callback) ([]string, error) {
	var modified []string
	for _, name := range slices.Sorted(maps.Keys(data)) {
		changed, err := assign(obj, name, data[name])
		if err != nil {
			return modified, err
		}
		if !changed {
			continue
		}
		modified = append(modified, name)
		if cb, ok := onUpdate[name]; ok {
			if err := cb.call(ctx, data[name]); err != nil {
				return modified, fmt.Errorf("on update %s: %w", name, err)
			}
		}
	}
	return modified, nil
}

// UpdateWithCallbackAsync assigns like UpdateWithCallback, then runs the
// callbacks of the changed names concurrently. The first callback error
// cancels the context handed to the others.
func UpdateWithCallbackAsync(ctx context.Context, obj Accessor, data map[string]any, onUpdate map[string]Callback) ([]string, error) {
	var modified []string
	for _, name := range slices.Sorted(maps.Keys(data)) {
		changed, err := assign(obj, name, data[name])
		if err != nil {
			return modified, err
		}
		if changed {
			modified = append(modified, name)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range modified {
		cb, ok := onUpdate[name]
		if !ok {
			continue
		}
		value := data[name]
		g.Go(func() error {
			if err := cb.call(gctx, value); err != nil {
				return fmt.Errorf("on update %s: %w", name, err)
			}
			return nil
		})
	}
	return modified, g.Wait()
}

func assign(obj Accessor, name string, value any) (bool, error) {
	current, err := obj.Get(name)
	if err != nil {
		return false, err
	}
	if sameValue(current, value) {
		return false, nil
	}
	if err := obj.Set(name, value); err != nil {
		return false, fmt.Errorf("set %s: %w", name, err)
	}
	return true, nil
}

// sameValue compares deeply, but treats scalars of different Go types
// as equal when they hold the same value, so 3 and int64(3) match.
func sameValue(current, value any) bool {
	if reflect.DeepEqual(current, value) {
		return true
	}
	if current == nil || value == nil {
		return false
	}
	cv, vv := reflect.ValueOf(current), reflect.ValueOf(value)
	switch {
	case isNumber(cv.Kind()) && isNumber(vv.Kind()):
		return sameNumber(cv, vv)
	case cv.Kind() == reflect.String && vv.Kind() == reflect.String:
		return cv.String() == vv.String()
	case cv.Kind() == reflect.Bool && vv.Kind() == reflect.Bool:
		return cv.Bool() == vv.Bool()
	}
	return false
}

// sameNumber compares integers as integers so values above 2^53 stay
// distinct; a float matches an integer only when it holds exactly that
// integer.
func sameNumber(a, b reflect.Value) bool {
	switch {
	case a.CanInt() && b.CanInt():
		return a.Int() == b.Int()
	case a.CanUint() && b.CanUint():
		return a.Uint() == b.Uint()
	case a.CanInt() && b.CanUint():
		return a.Int() >= 0 && uint64(a.Int()) == b.Uint()
	case a.CanUint() && b.CanInt():
		return b.Int() >= 0 && a.Uint() == uint64(b.Int())
	case a.CanFloat() && b.CanFloat():
		return a.Float() == b.Float()
	case a.CanFloat():
		return floatHoldsInteger(a.Float(), b)
	default:
		return floatHoldsInteger(b.Float(), a)
	}
}

func floatHoldsInteger(f float64, v reflect.Value) bool {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return false
	}
	if v.CanInt() {
		return f >= math.MinInt64 && f < math.MaxInt64 && int64(f) == v.Int()
	}
	return f >= 0 && f < math.MaxUint64 && uint64(f) == v.Uint()
}
