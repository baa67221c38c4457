package logger

import (
	"errors"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrNilFactory is returned when a nil logger factory is installed.
var ErrNilFactory = errors.New("logger: factory must not be nil")

// LoggerFactory resolves the zap logger used for records of a named source.
type LoggerFactory func(name string) *zap.Logger

// Bridge forwards records from foreign log sources into zap. Each record
// keeps its level and message; the source name travels as logger_name.
type Bridge struct {
	mu      sync.RWMutex
	factory LoggerFactory
	levels  map[string]Level
}

// NewBridge creates a bridge whose loggers derive from root through a
// cached Factory.
func NewBridge(root *zap.Logger) *Bridge {
	return &Bridge{
		factory: NewFactory(root).Get,
		levels:  make(map[string]Level),
	}
}

// SetLoggerFactory replaces the factory used to resolve source loggers.
func (b *Bridge) SetLoggerFactory(f LoggerFactory) error {
	if f == nil {
		return ErrNilFactory
	}
	b.mu.Lock()
	b.factory = f
	b.mu.Unlock()
	return nil
}

// SetLevel sets the minimum level accepted from a source.
func (b *Bridge) SetLevel(source string, min Level) {
	b.mu.Lock()
	b.levels[source] = min
	b.mu.Unlock()
}

// LevelFor reports the minimum level configured for a source, LevelNotSet if none.
func (b *Bridge) LevelFor(source string) Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.levels[source]
}

// Logger resolves the zap logger for a source name.
func (b *Bridge) Logger(name string) *zap.Logger {
	b.mu.RLock()
	f := b.factory
	b.mu.RUnlock()
	return f(name)
}

// Emit writes one record. pc, when non-zero, is reported as the caller
// instead of the bridge's own frame.
func (b *Bridge) Emit(pc uintptr, name string, level Level, msg string, fields ...zap.Field) {
	ce := b.Logger(name).Check(level.Zap(), msg)
	if ce == nil {
		return
	}
	if pc != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
		ce.Caller = zapcore.EntryCaller{
			Defined:  true,
			PC:       frame.PC,
			File:     frame.File,
			Line:     frame.Line,
			Function: frame.Function,
		}
	}
	if level >= LevelCritical {
		fields = append(fields, zap.Bool("critical", true))
	}
	ce.Write(fields...)
}

// callerPC returns the program counter skip frames above its caller.
func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	if runtime.Callers(skip+2, pcs[:]) == 0 {
		return 0
	}
	return pcs[0]
}
