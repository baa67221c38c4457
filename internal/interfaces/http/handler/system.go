package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stuffkit/backend/internal/application/profile"
	"github.com/stuffkit/backend/internal/infrastructure/cache"
	"github.com/stuffkit/backend/internal/infrastructure/logger"
	"github.com/stuffkit/backend/internal/infrastructure/persistence"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
	"github.com/stuffkit/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Component states reported by the health endpoint.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusDisabled = "disabled"
)

// HealthResponse is the payload of the health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// SystemInfoResponse is the payload of the system info endpoint.
type SystemInfoResponse struct {
	Name          string                      `json:"name"`
	Env           string                      `json:"env"`
	GoVersion     string                      `json:"goVersion"`
	Uptime        string                      `json:"uptime"`
	NumGoroutine  int                         `json:"numGoroutine"`
	Database      persistence.ConnectionStats `json:"database"`
	TimezoneCache cache.Stats                 `json:"timezoneCache"`
}

// SystemHandler serves health and runtime information.
type SystemHandler struct {
	BaseHandler
	name     string
	env      string
	db       *persistence.Database
	redis    func() (*redis.Client, error)
	profiles *profile.Service
	started  time.Time
}

// NewSystemHandler creates a new system handler. redisClient is the lazily
// connecting client getter; nil reports Redis as disabled.
func NewSystemHandler(name, env string, db *persistence.Database, redisClient func() (*redis.Client, error), profiles *profile.Service) *SystemHandler {
	return &SystemHandler{
		name:     name,
		env:      env,
		db:       db,
		redis:    redisClient,
		profiles: profiles,
		started:  time.Now(),
	}
}

// Health godoc
// @ID           health
// @Summary      Health check
// @Description  Pings the database and, when enabled, Redis
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.ResponseSO[HealthResponse]
// @Failure      503 {object} dto.ResponseSO[HealthResponse]
// @Router       /system/health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	log := logger.GetGinLogger(c)
	resp := HealthResponse{
		Status:   "healthy",
		Time:     time.Now().Format(time.RFC3339),
		Database: StatusOK,
		Redis:    StatusDisabled,
	}

	if err := h.db.Ping(ctx); err != nil {
		log.Warn("Health check failed", zap.String("component", "database"), zap.Error(err))
		resp.Database = StatusError
	}
	if h.redis != nil {
		resp.Redis = StatusOK
		if err := h.pingRedis(ctx); err != nil {
			log.Warn("Health check failed", zap.String("component", "redis"), zap.Error(err))
			resp.Redis = StatusError
		}
	}

	if resp.Database == StatusError || resp.Redis == StatusError {
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, dto.NewResponse(resp))
		return
	}
	middleware.OK(c, resp)
}

func (h *SystemHandler) pingRedis(ctx context.Context) error {
	client, err := h.redis()
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

// Info godoc
// @ID           systemInfo
// @Summary      Runtime information
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.ResponseSO[SystemInfoResponse]
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /system/info [get]
func (h *SystemHandler) Info(c *gin.Context) {
	stats, err := h.db.Stats()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	middleware.OK(c, SystemInfoResponse{
		Name:          h.name,
		Env:           h.env,
		GoVersion:     runtime.Version(),
		Uptime:        time.Since(h.started).Round(time.Second).String(),
		NumGoroutine:  runtime.NumGoroutine(),
		Database:      stats,
		TimezoneCache: h.profiles.CacheStats(),
	})
}

// Ping godoc
// @ID           ping
// @Summary      Liveness check
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.ResponseSO[map[string]string]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	middleware.OK(c, gin.H{"message": "pong"})
}
