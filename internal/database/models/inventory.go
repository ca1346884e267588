package models

import (
	"context"
	"fmt"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// LogInitialRoles seeds role history for a member found during the startup
// inventory. An initial row is only written when no change row exists yet for
// the (user, guild, role) triple, so repeated runs are idempotent.
func (m *TrackingModel) LogInitialRoles(
	ctx context.Context, guildID, userID uint64, roles []types.RoleSnapshot,
) (int, error) {
	if len(roles) == 0 {
		return 0, nil
	}

	var inserted int

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		inserted = 0
		now := nowUTC()

		if err := upsertRoles(ctx, tx, roles, now); err != nil {
			return err
		}

		for _, role := range roles {
			result, err := tx.NewRaw(`
				INSERT INTO role_changes (guild_id, user_id, role_id, action, changed_at)
				SELECT ?0, ?1, ?2, ?3, ?4
				WHERE NOT EXISTS (
					SELECT 1 FROM role_changes
					WHERE guild_id = ?0 AND user_id = ?1 AND role_id = ?2
				)
			`, guildID, userID, role.ID, types.RoleActionInitial, now).Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to insert initial role %d: %w", role.ID, err)
			}

			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get affected rows: %w", err)
			}
			inserted += int(affected)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// CleanupDuplicateInitialRoles removes every initial row that is not the
// oldest one of its (user, guild, role) triple.
func (m *TrackingModel) CleanupDuplicateInitialRoles(ctx context.Context) (int, error) {
	var removed int

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := m.db.NewRaw(`
			DELETE FROM role_changes
			WHERE action = ?0
			AND id NOT IN (
				SELECT id FROM (
					SELECT id, ROW_NUMBER() OVER (
						PARTITION BY guild_id, user_id, role_id
						ORDER BY changed_at ASC, id ASC
					) AS rn
					FROM role_changes
					WHERE action = ?0
				)
				WHERE rn = 1
			)
		`, types.RoleActionInitial).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove duplicate initial roles: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}

		removed = int(affected)

		return nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		m.logger.Info("Removed duplicate initial roles", zap.Int("count", removed))
	}

	return removed, nil
}
