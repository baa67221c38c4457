package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// stdlibCallerSkip walks from Write back past log.(*Logger).output and the
// Print/Printf wrapper to the user frame.
const stdlibCallerSkip = 3

// lineWriter turns writes from line-oriented loggers into records. Each
// non-empty line becomes one record with trailing newlines trimmed.
type lineWriter struct {
	bridge *Bridge
	name   string
	level  Level
	min    Level
	skip   int
}

func (w *lineWriter) Write(p []byte) (int, error) {
	if w.level < w.min {
		return len(p), nil
	}
	pc := uintptr(0)
	if w.skip > 0 {
		pc = callerPC(w.skip)
	}
	for _, line := range bytes.Split(bytes.TrimRight(p, "\r\n"), []byte{'\n'}) {
		msg := strings.TrimRight(string(line), "\r")
		if msg == "" {
			continue
		}
		w.bridge.Emit(pc, w.name, w.level, msg)
	}
	return len(p), nil
}

// Writer returns an io.Writer that emits every written line at level under
// name, honouring the minimum level configured for the source.
func (b *Bridge) Writer(name string, level Level) io.Writer {
	return b.writer(name, level)
}

func (b *Bridge) writer(name string, level Level) *lineWriter {
	return &lineWriter{bridge: b, name: name, level: level, min: b.LevelFor(name)}
}

// StdLogger returns a *log.Logger whose output is forwarded at level.
func (b *Bridge) StdLogger(name string, level Level) *log.Logger {
	w := b.writer(name, level)
	w.skip = stdlibCallerSkip
	return log.New(w, "", 0)
}

// HTTPServerErrorLog returns a logger suitable for http.Server.ErrorLog.
func (b *Bridge) HTTPServerErrorLog() *log.Logger {
	return b.StdLogger(sourceHTTPServer, LevelError)
}

// Gorm returns a gorm logger whose verbosity follows the minimum level set
// for the gorm source.
func (b *Bridge) Gorm(opts ...GormLoggerOption) gormlogger.Interface {
	return NewGormLogger(b.Logger(sourceGorm), b.LevelFor(sourceGorm).gormLevel(), opts...)
}

// RedisLogger satisfies go-redis' internal logging interface.
type RedisLogger struct {
	bridge *Bridge
	min    Level
}

func (l *RedisLogger) Printf(ctx context.Context, format string, v ...any) {
	if LevelWarning < l.min {
		return
	}
	var fields []zap.Field
	if ctx != nil {
		if id := GetRequestID(ctx); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
	}
	msg := strings.TrimRight(fmt.Sprintf(format, v...), "\n")
	l.bridge.Emit(callerPC(1), sourceRedis, LevelWarning, msg, fields...)
}

// Redis returns the adapter installed with redis.SetLogger.
func (b *Bridge) Redis() *RedisLogger {
	return &RedisLogger{bridge: b, min: b.LevelFor(sourceRedis)}
}

// MigrateLogger satisfies migrate.Logger.
type MigrateLogger struct {
	bridge  *Bridge
	min     Level
	verbose bool
}

func (l *MigrateLogger) Printf(format string, v ...any) {
	if LevelInfo < l.min {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, v...), "\n")
	l.bridge.Emit(callerPC(1), sourceMigrate, LevelInfo, msg)
}

func (l *MigrateLogger) Verbose() bool {
	return l.verbose && l.min <= LevelDebug
}

// Migrate returns a logger for migrate.Migrate.Log.
func (b *Bridge) Migrate(verbose bool) *MigrateLogger {
	return &MigrateLogger{bridge: b, min: b.LevelFor(sourceMigrate), verbose: verbose}
}
