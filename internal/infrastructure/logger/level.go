package logger

import (
	"log/slog"
	"strconv"

	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// Level is a severity on the conventional 0..50 scale used by most logging
// facilities. Sources are filtered against a minimum Level before their
// records reach zap.
type Level int

const (
	LevelNotSet   Level = 0
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelWarning  Level = 30
	LevelWarn           = LevelWarning
	LevelError    Level = 40
	LevelCritical Level = 50
	LevelFatal          = LevelCritical
)

// Zap maps the level onto zap. Nothing maps to FatalLevel or above since zap
// exits or panics on those; critical records are written at error level and
// tagged instead.
func (l Level) Zap() zapcore.Level {
	switch {
	case l >= LevelError:
		return zapcore.ErrorLevel
	case l >= LevelWarning:
		return zapcore.WarnLevel
	case l >= LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func (l Level) String() string {
	switch l {
	case LevelNotSet:
		return "NOTSET"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "Level " + strconv.Itoa(int(l))
	}
}

// LevelFromSlog converts a slog level. The standard slog levels land exactly
// on their named counterparts; custom levels are scaled linearly in between.
func LevelFromSlog(l slog.Level) Level {
	return LevelInfo + Level(int(l)*5/2)
}

// LevelFromName parses a level name; unknown names yield LevelNotSet and false.
func LevelFromName(name string) (Level, bool) {
	switch name {
	case "CRITICAL", "critical", "FATAL", "fatal":
		return LevelCritical, true
	case "ERROR", "error":
		return LevelError, true
	case "WARNING", "warning", "WARN", "warn":
		return LevelWarning, true
	case "INFO", "info":
		return LevelInfo, true
	case "DEBUG", "debug":
		return LevelDebug, true
	case "NOTSET", "notset":
		return LevelNotSet, true
	}
	return LevelNotSet, false
}

// gormLevel picks the most verbose gorm log level that still respects min.
func (l Level) gormLevel() gormlogger.LogLevel {
	switch {
	case l <= LevelInfo:
		return gormlogger.Info
	case l <= LevelWarning:
		return gormlogger.Warn
	case l <= LevelError:
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}
