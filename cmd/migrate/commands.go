package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"

	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/infrastructure/migration"
	"github.com/erp/storesync/migrations"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

// sqlDrivers are the databases that carry SQL migrations
var sqlDrivers = []string{config.DriverPostgres, config.DriverMySQL}

type rootOptions struct {
	migrationsPath string
	logLevel       string

	log *zap.Logger
	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage storesync database migrations",
		Long: `migrate applies the SQL migrations embedded in the binary to the database
configured through STORESYNC_DATABASE_* variables or config.yaml.

sqlite databases have no SQL migrations; the server creates their schema
from the models on start.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(&logger.Config{
				Level:      opts.logLevel,
				Format:     "console",
				Output:     "stdout",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.migrationsPath, "path", defaultMigrationsPath, "migrations source directory, used by create")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newUpCommand(opts),
		newDownCommand(opts),
		newVersionCommand(opts),
		newForceCommand(opts),
		newCreateCommand(opts),
		newListCommand(opts),
	)
	return cmd
}

func newUpCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up [n]",
		Short: "Apply all pending migrations, or the next n",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withMigrator(func(m *migration.Migrator) error {
				if len(args) == 0 {
					return m.Up()
				}
				n, err := parseCount(args[0])
				if err != nil {
					return err
				}
				return m.Steps(n)
			})
		},
	}
}

func newDownCommand(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "down [n]",
		Short: "Roll back the last n migrations, or every migration with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("pass either a migration count or --all")
			}
			return opts.withMigrator(func(m *migration.Migrator) error {
				if all {
					return m.Down()
				}
				n, err := parseCount(args[0])
				if err != nil {
					return err
				}
				return m.Steps(-n)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "roll back every applied migration")
	return cmd
}

func newVersionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withMigrator(func(m *migration.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if version == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	}
}

func newForceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Set the migration version without running migrations",
		Long:  "force repairs a dirty database after a failed migration. Fix the schema by hand first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return opts.withMigrator(func(m *migration.Migrator) error {
				return m.Force(version)
			})
		},
	}
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create an up/down migration pair for every SQL driver",
		Example: `  migrate create add_sync_state_index "Index sync states by status"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := ""
			if len(args) == 2 {
				description = args[1]
			}
			// every driver gets the same version so the directories stay aligned
			for _, d := range sqlDrivers {
				dir, err := filepath.Abs(filepath.Join(opts.migrationsPath, d))
				if err != nil {
					return fmt.Errorf("resolve migrations path: %w", err)
				}
				mf, err := migration.CreateMigration(dir, args[0], description)
				if err != nil {
					return fmt.Errorf("create %s migration: %w", d, err)
				}
				opts.log.Info("Migration created",
					zap.String("driver", d),
					zap.String("version", mf.Version),
					zap.String("up_file", mf.UpPath),
					zap.String("down_file", mf.DownPath),
				)
			}
			return nil
		},
	}
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the migrations embedded for the configured driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, err := opts.sqlDriver()
			if err != nil {
				return err
			}
			sub, err := fs.Sub(migrations.FS, driver)
			if err != nil {
				return fmt.Errorf("open embedded migrations: %w", err)
			}
			names, err := migration.ListMigrations(sub)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// sqlDriver loads the configuration and returns its database driver
func (o *rootOptions) sqlDriver() (string, error) {
	if o.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return "", fmt.Errorf("load configuration: %w", err)
		}
		o.cfg = cfg
	}
	if o.cfg.Database.Driver == config.DriverSQLite {
		return "", errors.New("sqlite has no SQL migrations; the server creates its schema from the models")
	}
	return o.cfg.Database.Driver, nil
}

// withMigrator opens the configured database and runs fn with a migrator
// over it. The migrator owns the connection and closes it.
func (o *rootOptions) withMigrator(fn func(m *migration.Migrator) error) error {
	driver, err := o.sqlDriver()
	if err != nil {
		return err
	}

	db, err := sql.Open(driver, migrationDSN(&o.cfg.Database))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	o.log.Info("Connected", zap.String("driver", driver), zap.String("database", o.cfg.Database.DBName))
	m, err := migration.New(db, driver, o.log)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			o.log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return fn(m)
}

// migrationDSN is the database/sql DSN. MySQL needs multiStatements for
// migration files holding several statements.
func migrationDSN(cfg *config.DatabaseConfig) string {
	if cfg.Driver == config.DriverMySQL {
		return cfg.DSN() + "&multiStatements=true"
	}
	return cfg.PostgresURL()
}

func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("migration count must be a positive integer, got %q", raw)
	}
	return n, nil
}
