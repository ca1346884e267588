package models

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// auditTables lists each audit table with its timestamp column.
var auditTables = []struct {
	name   string
	column string
}{
	{"username_changes", "changed_at"},
	{"nickname_changes", "changed_at"},
	{"role_changes", "changed_at"},
	{"join_leave_events", "timestamp"},
}

// Cleanup deletes audit rows older than the cutoff and returns how many were removed.
func (m *TrackingModel) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	var total int

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		total = 0

		for _, table := range auditTables {
			result, err := tx.NewDelete().
				TableExpr(table.name).
				Where("? < ?", bun.Ident(table.column), cutoff.UTC()).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to clean up %s: %w", table.name, err)
			}

			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get affected rows: %w", err)
			}

			total += int(affected)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	m.logger.Info("Cleaned up old audit data",
		zap.Time("cutoff", cutoff),
		zap.Int("deleted", total))

	return total, nil
}

// ExportUserData returns every audit row recorded for a user, oldest first.
func (m *TrackingModel) ExportUserData(ctx context.Context, userID uint64) (*types.UserExport, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.UserExport, error) {
		export := &types.UserExport{UserID: userID}

		err := m.db.NewSelect().
			Model(&export.UsernameChanges).
			Where("user_id = ?", userID).
			Order("changed_at ASC", "id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to export username changes: %w", err)
		}

		err = m.db.NewSelect().
			Model(&export.NicknameChanges).
			Where("user_id = ?", userID).
			Order("changed_at ASC", "id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to export nickname changes: %w", err)
		}

		err = m.db.NewSelect().
			Model(&export.RoleChanges).
			Where("user_id = ?", userID).
			Order("changed_at ASC", "id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to export role changes: %w", err)
		}

		err = m.db.NewSelect().
			Model(&export.JoinLeaveEvents).
			Where("user_id = ?", userID).
			Order("timestamp ASC", "id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to export join/leave events: %w", err)
		}

		return export, nil
	})
}

// ImportUserData re-inserts exported audit rows and returns how many were
// written. Row IDs are regenerated and roles that are no longer known get
// placeholder definitions. Initial role rows are skipped when the (user, guild,
// role) triple already has one, so each triple keeps a single initial row.
func (m *TrackingModel) ImportUserData(ctx context.Context, export *types.UserExport) (int, error) {
	var imported int

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		imported = 0
		now := nowUTC()

		if len(export.UsernameChanges) > 0 {
			rows := make([]*types.UsernameChange, 0, len(export.UsernameChanges))
			for _, c := range export.UsernameChanges {
				row := *c
				row.ID = 0
				rows = append(rows, &row)
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("failed to import username changes: %w", err)
			}
			imported += len(rows)
		}

		if len(export.NicknameChanges) > 0 {
			rows := make([]*types.NicknameChange, 0, len(export.NicknameChanges))
			for _, c := range export.NicknameChanges {
				row := *c
				row.ID = 0
				rows = append(rows, &row)
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("failed to import nickname changes: %w", err)
			}
			imported += len(rows)
		}

		if len(export.RoleChanges) > 0 {
			rows := make([]*types.RoleChange, 0, len(export.RoleChanges))
			for _, c := range export.RoleChanges {
				if err := ensureRoles(ctx, tx, c.GuildID, []uint64{c.RoleID}, now); err != nil {
					return err
				}
				if c.Action == types.RoleActionInitial {
					inserted, err := importInitialRole(ctx, tx, c)
					if err != nil {
						return err
					}
					imported += inserted
					continue
				}
				row := *c
				row.ID = 0
				rows = append(rows, &row)
			}
			if len(rows) > 0 {
				if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
					return fmt.Errorf("failed to import role changes: %w", err)
				}
				imported += len(rows)
			}
		}

		if len(export.JoinLeaveEvents) > 0 {
			rows := make([]*types.JoinLeaveEvent, 0, len(export.JoinLeaveEvents))
			for _, e := range export.JoinLeaveEvents {
				row := *e
				row.ID = 0
				rows = append(rows, &row)
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("failed to import join/leave events: %w", err)
			}
			imported += len(rows)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	m.logger.Info("Imported user data",
		zap.Uint64("userID", export.UserID),
		zap.Int("rows", imported),
		zap.Int("skipped", export.Total()-imported))

	return imported, nil
}

// importInitialRole writes an initial row unless the triple already has one.
func importInitialRole(ctx context.Context, tx bun.Tx, c *types.RoleChange) (int, error) {
	result, err := tx.NewRaw(`
		INSERT INTO role_changes (guild_id, user_id, role_id, action, changed_at)
		SELECT ?0, ?1, ?2, ?3, ?4
		WHERE NOT EXISTS (
			SELECT 1 FROM role_changes
			WHERE guild_id = ?0 AND user_id = ?1 AND role_id = ?2 AND action = ?3
		)
	`, c.GuildID, c.UserID, c.RoleID, types.RoleActionInitial, c.ChangedAt.UTC()).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to import initial role %d: %w", c.RoleID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(affected), nil
}
