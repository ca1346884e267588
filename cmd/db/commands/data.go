package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/robalyx/sentinel/internal/export"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// DataCommands returns the user data export and import commands.
func DataCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:      "export",
			Usage:     "Export the tracked history of a user",
			ArgsUsage: "USER_ID",
			Description: `Write a portable SQLite file and a JSON summary with every username,
nickname, role and join/leave record of the user.

Examples:
  db export 123456789012345678
  db export 123456789012345678 --output ./exports`,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Usage:   "Directory for the export files (defaults to the configured export directory)",
					Aliases: []string{"o"},
				},
			},
			Action: handleExport(deps),
		},
		{
			Name:      "import",
			Usage:     "Import a user export file",
			ArgsUsage: "FILE",
			Description: `Re-insert the audit rows of an export produced by 'db export'.
Row IDs are regenerated, so importing the same file twice duplicates its change
rows. Initial role rows are only written when the role has none yet.`,
			Action: handleImport(deps),
		},
	}
}

// handleExport handles the 'export' command.
func handleExport(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrUserIDRequired
		}

		userID, err := strconv.ParseUint(c.Args().First(), 10, 64)
		if err != nil {
			return ErrInvalidUserID
		}

		dir := c.String("output")
		if dir == "" {
			dir = deps.Retention.ExportDir
		}

		result, err := deps.Exporter.ExportUser(ctx, userID, dir)
		if err != nil {
			return err
		}

		deps.Logger.Info("Exported user data",
			zap.Uint64("userID", userID),
			zap.Int("rows", result.Summary.Total),
			zap.String("data", result.DataPath),
			zap.String("summary", result.SummaryPath))

		return nil
	}
}

// handleImport handles the 'import' command.
func handleImport(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrFileRequired
		}

		data, err := export.ReadUserExport(c.Args().First())
		if err != nil {
			return err
		}

		imported, err := deps.DB.Model().Tracking().ImportUserData(ctx, data)
		if err != nil {
			return fmt.Errorf("failed to import user %d: %w", data.UserID, err)
		}

		deps.Logger.Info("Imported user data",
			zap.Uint64("userID", data.UserID),
			zap.Int("rows", imported))

		return nil
	}
}
