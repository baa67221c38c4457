// Command server runs the stuffkit HTTP API.
//
//	@title						Stuffkit API
//	@version					1.0
//	@description				Profile management and Telegram login for stuffkit.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token, e.g. "Bearer {token}". The access_token cookie is accepted too.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	_ "github.com/stuffkit/backend/docs"
	"github.com/stuffkit/backend/internal/application/profile"
	"github.com/stuffkit/backend/internal/infrastructure/auth"
	"github.com/stuffkit/backend/internal/infrastructure/cache"
	"github.com/stuffkit/backend/internal/infrastructure/config"
	"github.com/stuffkit/backend/internal/infrastructure/logger"
	"github.com/stuffkit/backend/internal/infrastructure/persistence"
	"github.com/stuffkit/backend/internal/infrastructure/persistence/models"
	"github.com/stuffkit/backend/internal/infrastructure/retry"
	"github.com/stuffkit/backend/internal/infrastructure/telemetry"
	"github.com/stuffkit/backend/internal/interfaces/http/handler"
	"github.com/stuffkit/backend/internal/interfaces/http/middleware"
	"github.com/stuffkit/backend/internal/interfaces/http/router"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxBodyBytes = 1 << 20

// defaultRoles exist on every fresh sqlite database.
var defaultRoles = []string{"admin", "editor"}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configDir string
	root := &cobra.Command{
		Use:          "server",
		Short:        "Run the stuffkit API server",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&configDir, "config", "", "Directory containing config.toml (default: . and /app)")
	root.AddCommand(newHealthcheckCommand(&configDir))
	return root
}

func loadConfig(dir string) (*config.Config, error) {
	var paths []string
	if dir != "" {
		paths = append(paths, dir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func logConfig(cfg *config.Config) *logger.Config {
	lc := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	if cfg.App.Env == "production" {
		lc.Format = "json"
	}
	return lc
}

// interceptLevels maps the configured intercept table onto bridge
// presets. The gorm source follows the database log level unless the
// table names it.
func interceptLevels(cfg *config.Config, log *zap.Logger) map[logger.Preset]logger.Level {
	levels := map[logger.Preset]logger.Level{
		logger.PresetGin:        logger.LevelInfo,
		logger.PresetHTTPServer: logger.LevelWarning,
		logger.PresetStdlib:     logger.LevelInfo,
		logger.PresetSlog:       logger.LevelInfo,
		logger.PresetGorm:       logger.LevelWarning,
	}
	if cfg.Redis.Enabled {
		levels[logger.PresetRedis] = logger.LevelWarning
	}
	switch cfg.Database.LogLevel {
	case "silent":
		levels[logger.PresetGorm] = logger.LevelCritical
	default:
		if lvl, ok := logger.LevelFromName(cfg.Database.LogLevel); ok {
			levels[logger.PresetGorm] = lvl
		}
	}
	for source, name := range cfg.Log.Intercept {
		lvl, ok := logger.LevelFromName(name)
		if !ok {
			log.Warn("Ignoring unknown intercept level", zap.String("source", source), zap.String("level", name))
			continue
		}
		levels[logger.Preset(source)] = lvl
	}
	return levels
}

func run(ctx context.Context, cfg *config.Config) error {
	boot, err := logger.New(logConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, boot)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			boot.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	log, err := logger.New(logConfig(cfg),
		telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, providers.Logs, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync(log) }()

	bridge := logger.NewBridge(log)
	restore := bridge.Setup(interceptLevels(cfg, log))
	defer restore()

	log.Info("Starting stuffkit",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	db, closeDB, err := openDatabase(ctx, cfg, log, bridge, providers.Meter)
	if err != nil {
		return err
	}
	defer closeDB()

	var redisClient func() (*redis.Client, error)
	var revoker auth.Revoker = auth.NewMemoryRevoker()
	if cfg.Redis.Enabled {
		redisClient = cache.Once(func() (*redis.Client, error) {
			return retry.DoValue(ctx, func(ctx context.Context) (*redis.Client, error) {
				return cache.NewRedisClient(ctx, cfg.Redis)
			}, retry.FromConfig(cfg.Retry, log.Named("redis")))
		})
		client, err := redisClient()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		revoker = auth.NewRedisRevoker(client)
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	profiles := profile.NewService(db.DB, log.Named("profile"),
		cache.WithMeter(providers.Meter.Meter("stuffkit/cache")))

	engine, err := newEngine(cfg, log, providers, tokens, revoker)
	if err != nil {
		return err
	}
	secure := cfg.App.Env == "production"
	roles := middleware.DefaultRolesConfig()
	roles.RolesAttr = cfg.Auth.RolesClaim
	handlers := router.Handlers{
		Profiles: handler.NewProfileHandler(profiles),
		Auth:     handler.NewAuthHandler(profiles, tokens, revoker, cfg.Auth.CookieName, secure),
		System:   handler.NewSystemHandler(cfg.App.Name, cfg.App.Env, db, redisClient, profiles),
	}
	if cfg.Swagger.Enabled {
		handlers.Docs = ginSwagger.WrapHandler(swaggerFiles.Handler)
	}
	routes := router.NewRouter(engine).Register(router.API(handlers, router.Access{
		Authenticated: middleware.RequireUser(),
		Telegram:      middleware.TelegramAuth(cfg.Auth.TelegramToken),
		Roles:         &roles,
		AdminRoles:    []string{"admin"},
		Docs: middleware.DocsGuard(middleware.DocsAccess{
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, middleware.RequireUser()),
	})...).Setup()
	for _, r := range routes {
		log.Debug("Route", zap.String("method", r.Method), zap.String("path", r.Path), zap.String("group", r.Group))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
		ErrorLog:       bridge.HTTPServerErrorLog(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.Int("routes", len(routes)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("Failed to start server", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

func newEngine(cfg *config.Config, log *zap.Logger, providers *telemetry.Providers, tokens *auth.TokenService, revoker auth.Revoker) (*gin.Engine, error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	middleware.SetupValidator()
	middleware.Apply(engine, middleware.WithCookieDeleter(
		middleware.CookieDeleter(cfg.Auth.CookieName, cfg.App.Env == "production")))

	metrics, err := middleware.MetricsFromProvider(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize HTTP metrics: %w", err)
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		metrics,
	)
	if providers.Tracer.IsEnabled() {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName))
	}
	engine.Use(
		middleware.JWTUser(middleware.JWTConfig{
			Tokens:     tokens,
			Revoker:    revoker,
			CookieName: cfg.Auth.CookieName,
			Optional:   true,
			Logger:     log.Named("jwt"),
		}),
		middleware.SpanEnricher(),
		middleware.BodyLimit(maxBodyBytes),
	)
	return engine, nil
}

// openDatabase connects with retries and registers the tracing and metrics
// plugins. sqlite databases are migrated in place; postgres is migrated
// by cmd/migrate.
func openDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger, bridge *logger.Bridge, mp *telemetry.MeterProvider) (*persistence.Database, func(), error) {
	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	opts := []persistence.Option{
		persistence.WithGormLogger(bridge.Gorm(logger.WithSlowThreshold(cfg.Database.SlowThreshold))),
		persistence.WithSetup(func(db *gorm.DB) error {
			return db.Use(telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
				Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
				SlowQueryThresh: cfg.Database.SlowThreshold,
				DBSystem:        dbSystem,
			}, log))
		}),
	}

	var dbMetrics *telemetry.DBMetrics
	if mp.IsEnabled() {
		var err error
		dbMetrics, err = telemetry.NewDBMetrics(mp.Meter("stuffkit/db"),
			telemetry.DBMetricsConfig{SlowQueryThreshold: cfg.Database.SlowThreshold}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database metrics: %w", err)
		}
		opts = append(opts, persistence.WithSetup(func(db *gorm.DB) error { return db.Use(dbMetrics) }))
	}

	connector := persistence.NewConnector(&cfg.Database, log.Named("db"), opts...)
	db, err := retry.DoValue(ctx, connector.Database, retry.FromConfig(cfg.Retry, log.Named("db")))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeDB := func() {
		if dbMetrics != nil {
			dbMetrics.Stop()
		}
		if err := connector.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}

	if db.Driver() == "sqlite" {
		if err := bootstrapSQLite(ctx, db.DB); err != nil {
			closeDB()
			return nil, nil, err
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver()))
	return db, closeDB, nil
}

func bootstrapSQLite(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	roles := make([]models.Role, len(defaultRoles))
	for i, name := range defaultRoles {
		roles[i] = models.Role{Name: name}
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error; err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}
	return nil
}
