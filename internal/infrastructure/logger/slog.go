package logger

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"go.uber.org/zap"
)

type slogHandler struct {
	bridge *Bridge
	name   string
	min    Level
	fields []zap.Field
	group  string
}

// Handler returns a slog.Handler that forwards records at or above min to
// the logger registered for name.
func (b *Bridge) Handler(name string, min Level) slog.Handler {
	return &slogHandler{bridge: b, name: name, min: min}
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return LevelFromSlog(level) >= h.min
}

func (h *slogHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := slices.Clone(h.fields)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.group, a)
		return true
	})
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	h.bridge.Emit(r.PC, h.name, LevelFromSlog(r.Level), r.Message, fields...)
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = slices.Clone(h.fields)
	for _, a := range attrs {
		next.fields = appendAttr(next.fields, h.group, a)
	}
	return &next
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = joinKey(h.group, name)
	return &next
}

func appendAttr(fields []zap.Field, group string, a slog.Attr) []zap.Field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}
	if a.Value.Kind() == slog.KindGroup {
		prefix := joinKey(group, a.Key)
		for _, ga := range a.Value.Group() {
			fields = appendAttr(fields, prefix, ga)
		}
		return fields
	}

	key := joinKey(group, a.Key)
	v := a.Value
	switch v.Kind() {
	case slog.KindString:
		return append(fields, zap.String(key, v.String()))
	case slog.KindInt64:
		return append(fields, zap.Int64(key, v.Int64()))
	case slog.KindUint64:
		return append(fields, zap.Uint64(key, v.Uint64()))
	case slog.KindFloat64:
		return append(fields, zap.Float64(key, v.Float64()))
	case slog.KindBool:
		return append(fields, zap.Bool(key, v.Bool()))
	case slog.KindDuration:
		return append(fields, zap.Duration(key, v.Duration()))
	case slog.KindTime:
		return append(fields, zap.Time(key, v.Time()))
	default:
		if err, ok := v.Any().(error); ok {
			return append(fields, zap.NamedError(key, err))
		}
		return append(fields, zap.Any(key, v.Any()))
	}
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	return strings.Join([]string{group, key}, ".")
}
