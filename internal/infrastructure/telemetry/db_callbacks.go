package telemetry

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type gormRegisterer interface {
	Register(name string, fn func(*gorm.DB)) error
}

// registerAround installs before and after callbacks named prefix:before_op
// and prefix:after_op around every gorm processor. after receives the
// operation name.
func registerAround(db *gorm.DB, prefix string, before func(*gorm.DB), after func(*gorm.DB, string)) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before gormRegisterer
		after  gormRegisterer
	}{
		{"INSERT", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"SELECT", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"UPDATE", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"DELETE", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"ROW", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row")},
		{"RAW", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
	for _, h := range hooks {
		op := h.op
		if err := h.before.Register(prefix+":before_"+op, before); err != nil {
			return err
		}
		if err := h.after.Register(prefix+":after_"+op, func(db *gorm.DB) { after(db, op) }); err != nil {
			return err
		}
	}
	return nil
}

type startTimeKey struct{ name string }

func markStart(key startTimeKey) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
}

func elapsedSince(ctx context.Context, key startTimeKey) (time.Duration, bool) {
	if ctx == nil {
		return 0, false
	}
	start, ok := ctx.Value(key).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}
