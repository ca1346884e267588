package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"

	"github.com/robalyx/sentinel/cmd/db/commands"
	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/migrations"
	"github.com/robalyx/sentinel/internal/export"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
)

// DBLogDir specifies where database tool log files are stored.
const DBLogDir = "logs/db_logs"

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Setup dependencies
	deps, err := setupDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	defer deps.DB.Close()

	app := &cli.Command{
		Name:  "db",
		Usage: "Database management tool",
		Commands: slices.Concat(
			commands.MigrationCommands(deps),
			commands.RetentionCommands(deps),
			commands.DataCommands(deps),
		),
	}

	return app.Run(ctx, os.Args)
}

// setupDependencies opens the database without applying migrations and
// builds the shared command dependencies.
func setupDependencies(ctx context.Context) (*commands.CLIDependencies, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, dbLogger, err := telemetry.NewManager(telemetry.ServiceCLI, DBLogDir, &cfg.Common.Debug).GetLoggers()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewConnection(ctx, &cfg.Common.SQLite, dbLogger, false)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &commands.CLIDependencies{
		DB:        db,
		Migrator:  migrate.NewMigrator(db.DB(), migrations.Migrations),
		Exporter:  export.New(db, logger),
		Retention: &cfg.Bot.Retention,
		Logger:    logger,
	}, nil
}
