package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// RetentionCommands returns the audit data maintenance commands.
func RetentionCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "cleanup",
			Usage: "Delete audit rows older than the retention period",
			Description: `Delete username, nickname, role and join/leave history older than --days.
The period may not be shorter than the configured minimum.

Examples:
  db cleanup             # Use the configured default period
  db cleanup --days 30   # Keep the last 30 days`,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "days",
					Usage:   "Days of history to keep (defaults to the configured period)",
					Aliases: []string{"d"},
				},
			},
			Action: handleCleanup(deps),
		},
		{
			Name:   "cleanup-duplicate-roles",
			Usage:  "Collapse duplicate initial role records, keeping the oldest",
			Action: handleCleanupDuplicateRoles(deps),
		},
		{
			Name:   "fix-missing-users",
			Usage:  "Create placeholder users for memberships without a user record",
			Action: handleFixMissingUsers(deps),
		},
	}
}

// handleCleanup handles the 'cleanup' command.
func handleCleanup(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		days := int(c.Int("days"))
		if days == 0 {
			days = deps.Retention.DefaultDays
		}
		if days < deps.Retention.MinimumDays {
			return fmt.Errorf("%w: %d < %d days", ErrRetentionTooShort, days, deps.Retention.MinimumDays)
		}

		cutoff := time.Now().UTC().AddDate(0, 0, -days)

		deleted, err := deps.DB.Model().Tracking().Cleanup(ctx, cutoff)
		if err != nil {
			return err
		}

		deps.Logger.Info("Cleaned up old audit data",
			zap.Int("days", days),
			zap.Time("cutoff", cutoff),
			zap.Int("deleted", deleted))

		return nil
	}
}

// handleCleanupDuplicateRoles handles the 'cleanup-duplicate-roles' command.
func handleCleanupDuplicateRoles(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		removed, err := deps.DB.Model().Tracking().CleanupDuplicateInitialRoles(ctx)
		if err != nil {
			return err
		}

		deps.Logger.Info("Removed duplicate initial role records", zap.Int("removed", removed))
		return nil
	}
}

// handleFixMissingUsers handles the 'fix-missing-users' command.
func handleFixMissingUsers(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		fixed, err := deps.DB.Model().User().FixMissingUsers(ctx)
		if err != nil {
			return err
		}

		deps.Logger.Info("Created placeholder users", zap.Int("created", fixed))
		return nil
	}
}
