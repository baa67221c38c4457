// Command migrate applies, rolls back and scaffolds SQL migrations.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/stuffkit/backend/internal/infrastructure/config"
	"github.com/stuffkit/backend/internal/infrastructure/logger"
	"github.com/stuffkit/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

type cli struct {
	migrationsPath string
	logLevel       string
	verbose        bool

	log     *zap.Logger
	bridge  *logger.Bridge
	restore func()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Database migration tool",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.restore != nil {
				c.restore()
			}
			if c.log != nil {
				_ = logger.Sync(c.log)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.migrationsPath, "path", "", "Path to migrations directory (default: ./migrations)")
	flags.StringVar(&c.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Show golang-migrate verbose output")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  c.withMigrator(func(m *migration.Migrator, _ []string) error { return m.Up() }),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE:  c.withMigrator(func(m *migration.Migrator, _ []string) error { return m.Down() }),
		},
		&cobra.Command{
			Use:   "step <n>",
			Short: "Apply n migrations (positive=up, negative=down)",
			Args:  cobra.ExactArgs(1),
			RunE: c.withMigrator(func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "goto <version>",
			Short: "Migrate to a specific version",
			Args:  cobra.ExactArgs(1),
			RunE: c.withMigrator(func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(v))
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Force set migration version (use with caution)",
			Args:  cobra.ExactArgs(1),
			RunE: c.withMigrator(func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show current migration version",
			Args:  cobra.NoArgs,
			RunE: c.withMigrator(func(m *migration.Migrator, _ []string) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if version == 0 {
					c.log.Info("No migrations applied")
					return nil
				}
				c.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "create <name> [description]",
			Short: "Create a new migration file pair",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				description := ""
				if len(args) > 1 {
					description = args[1]
				}
				mf, err := migration.CreateMigration(c.migrationsPath, args[0], description)
				if err != nil {
					return err
				}
				c.log.Info("Migration created",
					zap.String("version", mf.Version),
					zap.String("up_file", mf.UpPath),
					zap.String("down_file", mf.DownPath),
				)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List available migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				migrations, err := migration.ListMigrations(c.migrationsPath)
				if err != nil {
					return err
				}
				if len(migrations) == 0 {
					c.log.Info("No migrations found")
					return nil
				}
				for _, m := range migrations {
					fmt.Fprintln(cmd.OutOrStdout(), "  -", m)
				}
				return nil
			},
		},
	)
	return root
}

func (c *cli) setup() error {
	log, err := logger.New(&logger.Config{
		Level:      c.logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.log = log
	c.bridge = logger.NewBridge(log)
	migrateLevel := logger.LevelInfo
	if c.verbose {
		migrateLevel = logger.LevelDebug
	}
	c.restore = c.bridge.Setup(map[logger.Preset]logger.Level{
		logger.PresetMigrate: migrateLevel,
		logger.PresetStdlib:  logger.LevelInfo,
	})

	path, err := resolveMigrationsPath(c.migrationsPath)
	if err != nil {
		return err
	}
	c.migrationsPath = path
	return nil
}

func (c *cli) withMigrator(run func(*migration.Migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("migrations require the postgres driver, configured %q", cfg.Database.Driver)
		}

		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(cmd.Context()); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}

		m, err := migration.New(db, c.migrationsPath, c.log,
			migration.WithMigrateLogger(c.bridge.Migrate(c.verbose)))
		if err != nil {
			return err
		}
		defer m.Close()

		c.log.Info("Migration CLI started",
			zap.String("command", cmd.Name()),
			zap.String("migrations_path", c.migrationsPath),
		)
		return run(m, args)
	}
}

// resolveMigrationsPath prefers an explicit path, then ./migrations, then
// the directory two levels above the executable.
func resolveMigrationsPath(path string) (string, error) {
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if exe, err := os.Executable(); err == nil {
				candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsPath)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return abs, nil
}
