package logger

import (
	"context"
	"log"
	"log/slog"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedBridge(level zapcore.Level) (*Bridge, *observer.ObservedLogs) {
	core, recorded := observer.New(level)
	return NewBridge(zap.New(core)), recorded
}

func TestFormatName(t *testing.T) {
	assert.Equal(t, " app ", FormatName("app"))
	assert.Equal(t, " app -> db -> pool ", FormatName("app.db.pool"))
}

func TestFactory_CachesByName(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	f := NewFactory(zap.New(core))

	a := f.Get("svc.worker")
	assert.Same(t, a, f.Get("svc.worker"))
	assert.Same(t, f.Root(), f.Get(""))

	a.Info("tick")
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, " svc -> worker ", recorded.All()[0].ContextMap()[NameField])
}

func TestBridge_SlogHandlerForwardsLevelAndMessage(t *testing.T) {
	b, recorded := newObservedBridge(zapcore.DebugLevel)
	l := slog.New(b.Handler("payments.gateway", LevelNotSet))

	l.Warn("card declined", "attempt", 3, slog.Group("card", "brand", "visa"))

	require.Equal(t, 1, recorded.Len())
	entry := recorded.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "card declined", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, " payments -> gateway ", ctx[NameField])
	assert.Equal(t, int64(3), ctx["attempt"])
	assert.Equal(t, "visa", ctx["card.brand"])
	assert.True(t, entry.Caller.Defined)
	assert.Contains(t, entry.Caller.File, "bridge_test.go")
}

func TestBridge_SlogHandlerWithAttrsAndGroup(t *testing.T) {
	b, recorded := newObservedBridge(zapcore.DebugLevel)
	l := slog.New(b.Handler("svc", LevelNotSet)).With("tenant", "acme").WithGroup("req")

	l.Info("done", "status", 200)

	require.Equal(t, 1, recorded.Len())
	ctx := recorded.All()[0].ContextMap()
	assert.Equal(t, "acme", ctx["tenant"])
	assert.Equal(t, int64(200), ctx["req.status"])
}

func TestBridge_SlogHandlerRespectsMinimum(t *testing.T) {
	b, recorded := newObservedBridge(zapcore.DebugLevel)
	l := slog.New(b.Handler("noisy", LevelWarning))

	l.Debug("skip")
	l.Info("skip")
	l.Error("keep")

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "keep", recorded.All()[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, recorded.All()[0].Level)
}

func TestBridge_SlogRequestID(t *testing.T) {
	b, recorded := newObservedBridge(zapcore.DebugLevel)
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-9")

	slog.New(b.Handler("svc", LevelNotSet)).InfoContext(ctx, "with id")

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "req-9", recorded.All()[0].ContextMap()["request_id"])
}

func TestBridge_StdLoggerTrimsNewline(t *testing.T) {
	b, recorded := newObservedBridge(zapcore.DebugLevel)
	std := b.StdLogger("legacy", LevelError)

	std.Println("disk full")
	std.Printf("two\nlines\n")

	require.Equal(t, 3, recorded.Len())
	all := recorded.All()
	assert.Equal(t, "disk full", all[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, all[0].Level)
	assert.Equal(t, " legacy ", all[0].ContextMap()[NameField])
	assert.Equal(t, "two", all[1].Message)
	assert.Equal(t, "lines", all[2].Message)
}

func TestBridge_CriticalIsTagged(t *testing.T) {
	b, recorded := newObservedBridge(zapcore.DebugLevel)

	b.Emit(0, "core", LevelCritical, "meltdown")

	require.Equal(t, 1, recorded.Len())
	entry := recorded.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, true, entry.ContextMap()["critical"])
}

func TestBridge_SetLoggerFactory(t *testing.T) {
	b, _ := newObservedBridge(zapcore.DebugLevel)
	assert.ErrorIs(t, b.SetLoggerFactory(nil), ErrNilFactory)

	core, recorded := observer.New(zapcore.DebugLevel)
	custom := zap.New(core)
	var asked []string
	require.NoError(t, b.SetLoggerFactory(func(name string) *zap.Logger {
		asked = append(asked, name)
		return custom.With(zap.String("origin", name))
	}))

	b.Emit(0, "custom.source", LevelInfo, "routed")

	assert.Equal(t, []string{"custom.source"}, asked)
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "custom.source", recorded.All()[0].ContextMap()["origin"])
}

func TestBridge_RedisAndMigrateAdapters(t *testing.T) {
	b, recorded := newObservedBridge(zapcore.DebugLevel)

	b.Redis().Printf(context.Background(), "redis: dial %s failed\n", "localhost:6379")
	b.Migrate(true).Printf("1/u create_profiles (%dms)\n", 12)

	require.Equal(t, 2, recorded.Len())
	all := recorded.All()
	assert.Equal(t, "redis: dial localhost:6379 failed", all[0].Message)
	assert.Equal(t, zapcore.WarnLevel, all[0].Level)
	assert.Equal(t, " redis ", all[0].ContextMap()[NameField])
	assert.Equal(t, "1/u create_profiles (12ms)", all[1].Message)
	assert.Equal(t, " migrate ", all[1].ContextMap()[NameField])
	assert.True(t, b.Migrate(true).Verbose())

	b.SetLevel("migrate", LevelInfo)
	assert.False(t, b.Migrate(true).Verbose())
}

func TestBridge_Setup(t *testing.T) {
	b, recorded := newObservedBridge(zapcore.DebugLevel)

	restore := b.Setup(map[Preset]Level{
		PresetGin:    LevelInfo,
		PresetStdlib: LevelNotSet,
		PresetGorm:   LevelWarning,
		"billing":    LevelError,
	})
	defer restore()

	slog.Info("through slog")
	log.Print("through log")
	_, _ = gin.DefaultWriter.Write([]byte("[GIN-debug] route\n"))
	_, _ = gin.DefaultErrorWriter.Write([]byte("[GIN] broken pipe\n"))

	all := recorded.All()
	require.Len(t, all, 3)
	assert.Equal(t, "through slog", all[0].Message)
	assert.Equal(t, " root ", all[0].ContextMap()[NameField])
	assert.Equal(t, "through log", all[1].Message)
	assert.Equal(t, " log ", all[1].ContextMap()[NameField])
	assert.Equal(t, "[GIN] broken pipe", all[2].Message)
	assert.Equal(t, " gin -> error ", all[2].ContextMap()[NameField])

	assert.Equal(t, LevelWarning, b.LevelFor("gorm"))
	assert.Equal(t, LevelError, b.LevelFor("billing"))
	assert.Equal(t, LevelInfo, b.LevelFor("gin.error"))
}

func TestPreset_Sources(t *testing.T) {
	assert.Equal(t, []string{"gin", "gin.error"}, PresetGin.Sources())
	assert.Equal(t, []string{"my.module"}, Preset("my.module").Sources())
}
