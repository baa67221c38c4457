package logger

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Preset names a group of third-party log sources. Any string that is not a
// known preset is treated as a single custom source name.
type Preset string

const (
	PresetGorm       Preset = "gorm"
	PresetGin        Preset = "gin"
	PresetHTTPServer Preset = "net/http"
	PresetRedis      Preset = "redis"
	PresetMigrate    Preset = "migrate"
	PresetStdlib     Preset = "log"
	PresetSlog       Preset = "slog"
)

const (
	sourceRoot       = "root"
	sourceGorm       = "gorm"
	sourceGin        = "gin"
	sourceGinError   = "gin.error"
	sourceHTTPServer = "net.http"
	sourceRedis      = "redis"
	sourceMigrate    = "migrate"
	sourceStdlib     = "log"
	sourceSlog       = "slog"
)

var presetSources = map[Preset][]string{
	PresetGorm:       {sourceGorm},
	PresetGin:        {sourceGin, sourceGinError},
	PresetHTTPServer: {sourceHTTPServer},
	PresetRedis:      {sourceRedis},
	PresetMigrate:    {sourceMigrate},
	PresetStdlib:     {sourceStdlib},
	PresetSlog:       {sourceSlog},
}

// Sources lists the source names a preset covers.
func (p Preset) Sources() []string {
	if s, ok := presetSources[p]; ok {
		return s
	}
	return []string{string(p)}
}

// Setup routes the process-wide slog and log defaults through the bridge
// with no level filter, then applies each preset's minimum level and
// installs its global hooks. Sources that need an instance (gorm,
// http.Server, migrate) pick their level up when requested afterwards.
//
// The returned func restores the globals Setup replaced.
func (b *Bridge) Setup(modules map[Preset]Level) (restore func()) {
	prevSlog := slog.Default()
	prevLogOut, prevLogFlags, prevLogPrefix := log.Writer(), log.Flags(), log.Prefix()
	prevGinOut, prevGinErr := gin.DefaultWriter, gin.DefaultErrorWriter

	slog.SetDefault(slog.New(b.Handler(sourceRoot, LevelNotSet)))
	b.redirectStdlib(sourceRoot)

	presets := make([]Preset, 0, len(modules))
	for p := range modules {
		presets = append(presets, p)
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i] < presets[j] })

	redisInstalled := false
	for _, p := range presets {
		lvl := modules[p]
		for _, src := range p.Sources() {
			b.SetLevel(src, lvl)
		}

		switch p {
		case PresetSlog:
			slog.SetDefault(slog.New(b.Handler(sourceSlog, lvl)))
			// slog.SetDefault re-points the log package at slog.
			b.redirectStdlib(sourceRoot)
		case PresetGin:
			gin.DefaultWriter = b.writer(sourceGin, LevelDebug)
			gin.DefaultErrorWriter = b.writer(sourceGinError, LevelError)
		case PresetRedis:
			redis.SetLogger(b.Redis())
			redisInstalled = true
		}
	}

	b.mu.RLock()
	_, stdlibPreset := b.levels[sourceStdlib]
	b.mu.RUnlock()
	if stdlibPreset {
		b.redirectStdlib(sourceStdlib)
	}

	return func() {
		slog.SetDefault(prevSlog)
		log.SetOutput(prevLogOut)
		log.SetFlags(prevLogFlags)
		log.SetPrefix(prevLogPrefix)
		gin.DefaultWriter, gin.DefaultErrorWriter = prevGinOut, prevGinErr
		if redisInstalled {
			redis.SetLogger(stderrRedisLogger{log.New(os.Stderr, "redis: ", log.LstdFlags|log.Lshortfile)})
		}
	}
}

func (b *Bridge) redirectStdlib(name string) {
	w := b.writer(name, LevelInfo)
	w.skip = stdlibCallerSkip
	log.SetOutput(w)
	log.SetFlags(0)
	log.SetPrefix("")
}

// stderrRedisLogger mirrors go-redis' default logger.
type stderrRedisLogger struct {
	*log.Logger
}

func (l stderrRedisLogger) Printf(_ context.Context, format string, v ...any) {
	_ = l.Output(2, fmt.Sprintf(format, v...))
}
