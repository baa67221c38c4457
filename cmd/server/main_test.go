package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stuffkit/backend/internal/infrastructure/config"
	"github.com/stuffkit/backend/internal/infrastructure/logger"
	"github.com/stuffkit/backend/internal/infrastructure/persistence"
	"github.com/stuffkit/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
)

func TestInterceptLevels(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := &config.Config{
		Database: config.DatabaseConfig{LogLevel: "silent"},
		Redis:    config.RedisConfig{Enabled: true},
		Log: config.LogConfig{Intercept: map[string]string{
			"gin":    "error",
			"stripe": "debug",
			"slog":   "loud",
		}},
	}

	levels := interceptLevels(cfg, zap.New(core))

	assert.Equal(t, logger.LevelError, levels[logger.PresetGin])
	assert.Equal(t, logger.LevelDebug, levels[logger.Preset("stripe")])
	assert.Equal(t, logger.LevelInfo, levels[logger.PresetSlog], "unknown level keeps the default")
	assert.Equal(t, logger.LevelCritical, levels[logger.PresetGorm])
	assert.Equal(t, logger.LevelWarning, levels[logger.PresetRedis])
	assert.Equal(t, 1, logs.FilterMessage("Ignoring unknown intercept level").Len())

	cfg.Database.LogLevel = "info"
	cfg.Redis.Enabled = false
	levels = interceptLevels(cfg, zap.NewNop())
	assert.Equal(t, logger.LevelInfo, levels[logger.PresetGorm])
	assert.NotContains(t, levels, logger.PresetRedis)
}

func TestBootstrapSQLite(t *testing.T) {
	db, err := persistence.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, bootstrapSQLite(context.Background(), db.DB))
	require.NoError(t, bootstrapSQLite(context.Background(), db.DB), "seeding twice is a no-op")

	var names []string
	require.NoError(t, db.DB.Model(&models.Role{}).Order("name").Pluck("name", &names).Error)
	assert.Equal(t, []string{"admin", "editor"}, names)
}

func TestFetchHealth(t *testing.T) {
	rc := config.RetryConfig{MaxRetries: 1, Delay: time.Millisecond, BackoffFactor: 1}

	t.Run("healthy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, healthPath, r.URL.Path)
			_, _ = w.Write([]byte(`{"payload":{"status":"healthy","database":"ok","redis":"disabled"},"error":null}`))
		}))
		defer srv.Close()

		health, err := fetchHealth(context.Background(), srv.URL+healthPath, time.Second, rc, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "healthy", health.Status)
		assert.Equal(t, "disabled", health.Redis)
	})

	t.Run("unhealthy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"payload":{"status":"unhealthy","database":"error","redis":"ok"},"error":null}`))
		}))
		defer srv.Close()

		_, err := fetchHealth(context.Background(), srv.URL, time.Second, rc, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database=error")
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := fetchHealth(context.Background(), url, 100*time.Millisecond, rc, zap.NewNop())
		assert.ErrorContains(t, err, "health request failed")
	})
}
