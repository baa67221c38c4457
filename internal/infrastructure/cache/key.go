package cache

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// KeySeparator joins the serialized arguments of a key.
const KeySeparator = "::"

var stringerType = reflect.TypeFor[fmt.Stringer]()

// Key serializes args into a deterministic string. Strings are quoted so
// that 1 and "1" differ; maps are rendered with sorted keys; struct fields
// are included whether exported or not. Pointers are followed unless they
// point at a struct with unexported state and no value String method, such
// as *time.Location; those, functions and channels are keyed by address.
func Key(args ...any) string {
	s := keySerializer{seen: map[uintptr]bool{}}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = s.serialize(reflect.ValueOf(a))
	}
	return strings.Join(parts, KeySeparator)
}

type keySerializer struct {
	seen map[uintptr]bool
}

func (s keySerializer) serialize(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return "nil"
		}
		return s.serialize(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			return "nil"
		}
		if opaque(v.Type().Elem()) {
			return address(v)
		}
		p := v.Pointer()
		if s.seen[p] {
			return "cycle:" + address(v)
		}
		s.seen[p] = true
		defer delete(s.seen, p)
		return s.serialize(v.Elem())
	case reflect.String:
		return strconv.Quote(v.String())
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits())
	case reflect.Complex64, reflect.Complex128:
		return strconv.FormatComplex(v.Complex(), 'g', -1, v.Type().Bits())
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("%s:%#x", v.Kind(), v.Pointer())
	case reflect.Slice:
		if v.IsNil() {
			return "slice:nil"
		}
		return "slice" + s.elems(v)
	case reflect.Map:
		if v.IsNil() {
			return "map:nil"
		}
		pairs := make([]string, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			pairs = append(pairs, s.serialize(iter.Key())+"="+s.serialize(iter.Value()))
		}
		slices.Sort(pairs)
		return fmt.Sprintf("map[%d]{%s}", len(pairs), strings.Join(pairs, ","))
	}

	// values such as time.Time or uuid.UUID key by their text form
	if v.CanInterface() && v.Type().Implements(stringerType) {
		return v.Type().String() + ":" + v.Interface().(fmt.Stringer).String()
	}
	if v.Kind() == reflect.Array {
		return "array" + s.elems(v)
	}
	return s.structFields(v)
}

func (s keySerializer) elems(v reflect.Value) string {
	parts := make([]string, v.Len())
	for i := range v.Len() {
		parts[i] = s.serialize(v.Index(i))
	}
	return fmt.Sprintf("[%d]{%s}", len(parts), strings.Join(parts, ","))
}

func (s keySerializer) structFields(v reflect.Value) string {
	t := v.Type()
	parts := make([]string, t.NumField())
	for i := range t.NumField() {
		parts[i] = t.Field(i).Name + ":" + s.serialize(v.Field(i))
	}
	return t.String() + "{" + strings.Join(parts, ",") + "}"
}

// opaque reports whether t is a struct whose state is not fully visible
// through exported fields and which has no value String method.
func opaque(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t.Implements(stringerType) {
		return false
	}
	for i := range t.NumField() {
		if !t.Field(i).IsExported() {
			return true
		}
	}
	return false
}

func address(v reflect.Value) string {
	return fmt.Sprintf("%s:%#x", v.Type(), v.Pointer())
}
