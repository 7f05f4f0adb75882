package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/phrazzld/lexi-api/internal/config"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/platform/sqlstore"
	"github.com/spf13/cobra"
)

// cli carries the state shared by every subcommand once the root command
// has loaded configuration.
type cli struct {
	configDir string
	envFile   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "lexi",
		Short:         "Spaced-repetition vocabulary trainer",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.PersistentFlags().StringVar(&c.configDir, "config-dir", ".", "directory searched for config.yaml")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file read before configuration")

	root.AddCommand(
		newServeCommand(c),
		newMigrateCommand(c),
		newHashKeyCommand(),
		newExportCommand(c),
		newImportCommand(c),
		newBackfillCommand(c),
		newSeedCommand(c),
		newWipeCommand(c),
	)
	return root
}

// load reads the dotenv file, then configuration, then sets up logging.
// Variables already present in the environment win over the dotenv file.
func (c *cli) load() error {
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", c.envFile, err)
	}

	cfg, err := config.LoadFrom(c.configDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Debug("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.Bool("auth_configured", cfg.Auth.RequireServing() == nil))

	c.cfg = cfg
	c.logger = l
	return nil
}

// openDB connects to the configured database. With migrate set, pending
// migrations are applied before returning.
func (c *cli) openDB(ctx context.Context, migrate bool) (*sql.DB, error) {
	db, err := sqlstore.Open(ctx, c.cfg.Database, c.logger)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := sqlstore.Migrate(ctx, db, sqlstore.Dialect(c.cfg.Database.Driver), "up", c.logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// withApp opens and migrates the database, builds the application and runs
// fn, closing everything afterwards.
func (c *cli) withApp(ctx context.Context, fn func(app *application) error) error {
	db, err := c.openDB(ctx, true)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, c.cfg, c.logger, db)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer app.cleanup()

	return fn(app)
}
