package commands

import (
	"context"

	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// MigrationCommands returns the schema migration commands. The database is
// opened without applying migrations so that these commands see the real state.
func MigrationCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "init",
			Usage:  "Create the migration bookkeeping tables",
			Action: handleInit(deps),
		},
		{
			Name:   "migrate",
			Usage:  "Apply pending schema migrations",
			Action: handleMigrate(deps),
		},
		{
			Name:  "rollback",
			Usage: "Roll back the last migration group",
			Description: `Undo the most recently applied group of migrations.
Rolling back the initial schema drops every tracking table, so the command
only lists the affected migrations unless --yes is given.

Examples:
  db rollback         # Show what would be rolled back
  db rollback --yes   # Roll back the last group`,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "yes",
					Usage:   "Confirm the rollback",
					Aliases: []string{"y"},
				},
			},
			Action: handleRollback(deps),
		},
		{
			Name:   "status",
			Usage:  "Show applied and pending migrations and the tracked data volume",
			Action: handleStatus(deps),
		},
		{
			Name:      "create",
			Usage:     "Create a new Go migration file",
			ArgsUsage: "NAME",
			Action:    handleCreate(deps),
		},
	}
}

// handleInit handles the 'init' command.
func handleInit(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Init(ctx); err != nil {
			return err
		}
		deps.Logger.Info("Migration tables ready")
		return nil
	}
}

// handleMigrate handles the 'migrate' command.
func handleMigrate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Init(ctx); err != nil {
			return err
		}
		if err := deps.Migrator.Lock(ctx); err != nil {
			return err
		}
		defer deps.Migrator.Unlock(ctx) //nolint:errcheck // -

		ms, err := deps.Migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		for _, m := range ms.Unapplied() {
			deps.Logger.Info("Pending migration", zap.String("name", m.Name))
		}

		group, err := deps.Migrator.Migrate(ctx)
		if err != nil {
			return err
		}

		if group.IsZero() {
			deps.Logger.Info("Schema is up to date")
		} else {
			deps.Logger.Info("Applied migrations",
				zap.String("group", group.String()),
				zap.Int("migrations", len(group.Migrations)))
		}

		logTrackedData(ctx, deps)
		return nil
	}
}

// handleRollback handles the 'rollback' command.
func handleRollback(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		ms, err := deps.Migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}

		last := ms.LastGroup()
		if last.IsZero() {
			deps.Logger.Info("Nothing to roll back")
			return nil
		}

		if !c.Bool("yes") {
			logGroup(deps, "Would roll back", last)
			return ErrNotConfirmed
		}

		if err := deps.Migrator.Lock(ctx); err != nil {
			return err
		}
		defer deps.Migrator.Unlock(ctx) //nolint:errcheck // -

		group, err := deps.Migrator.Rollback(ctx)
		if err != nil {
			return err
		}

		logGroup(deps, "Rolled back", group)
		return nil
	}
}

// handleStatus handles the 'status' command.
func handleStatus(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		ms, err := deps.Migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}

		for _, m := range ms {
			deps.Logger.Info("Migration",
				zap.String("name", m.Name),
				zap.Bool("applied", m.IsApplied()),
				zap.Int64("group", m.GroupID))
		}

		pending := len(ms.Unapplied())
		deps.Logger.Info("Migration status",
			zap.Int("total", len(ms)),
			zap.Int("pending", pending),
			zap.String("lastGroup", ms.LastGroup().String()))

		// The tracking tables only exist once everything is applied
		if pending == 0 {
			logTrackedData(ctx, deps)
		}
		return nil
	}
}

// handleCreate handles the 'create' command.
func handleCreate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrNameRequired
		}

		mf, err := deps.Migrator.CreateGoMigration(ctx, c.Args().First())
		if err != nil {
			return err
		}

		deps.Logger.Info("Created Go migration",
			zap.String("name", mf.Name),
			zap.String("path", mf.Path))
		return nil
	}
}

func logGroup(deps *CLIDependencies, msg string, group *migrate.MigrationGroup) {
	names := make([]string, 0, len(group.Migrations))
	for _, m := range group.Migrations {
		names = append(names, m.Name)
	}

	deps.Logger.Info(msg,
		zap.String("group", group.String()),
		zap.Strings("migrations", names))
}

// logTrackedData reports how much history the schema currently holds.
func logTrackedData(ctx context.Context, deps *CLIDependencies) {
	stats, err := deps.DB.Model().Stats().DatabaseStats(ctx)
	if err != nil {
		deps.Logger.Warn("Failed to count tracked data", zap.Error(err))
		return
	}

	deps.Logger.Info("Tracked data",
		zap.Int("users", stats.UserCount),
		zap.Int("usernameChanges", stats.UsernameChanges),
		zap.Int("nicknameChanges", stats.NicknameChanges),
		zap.Int("roleChanges", stats.RoleChanges),
		zap.Int("joinLeaveEvents", stats.JoinLeaveEvents))
}
