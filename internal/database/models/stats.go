package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// StatsModel runs the read-only aggregations over the audit log.
type StatsModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewStats creates a new stats model instance.
func NewStats(db *bun.DB, logger *zap.Logger) *StatsModel {
	return &StatsModel{
		db:     db,
		logger: logger.Named("db_stats"),
	}
}

// UserStats counts the recorded changes of a user. Users only known through a
// membership get a placeholder name; unknown users return ErrUserNotFound.
func (m *StatsModel) UserStats(ctx context.Context, userID uint64) (*types.UserStats, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.UserStats, error) {
		var stats types.UserStats

		err := m.db.NewRaw(`
			SELECT
				?0 AS user_id,
				COALESCE(
					u.username,
					(SELECT NULLIF(MAX(nickname), '') FROM guild_members WHERE user_id = ?0),
					'User_' || ?0
				) AS username,
				COALESCE(u.display_name, '') AS display_name,
				COALESCE(u.avatar_url, '') AS avatar_url,
				(SELECT COUNT(*) FROM username_changes WHERE user_id = ?0) AS username_changes,
				(SELECT COUNT(*) FROM nickname_changes WHERE user_id = ?0) AS nickname_changes,
				(SELECT COUNT(*) FROM role_changes WHERE user_id = ?0 AND action != ?1) AS role_changes,
				COALESCE(u.last_seen, (SELECT MAX(joined_at) FROM guild_members WHERE user_id = ?0)) AS last_activity
			FROM (SELECT 1) AS one
			LEFT JOIN users u ON u.user_id = ?0
			WHERE u.user_id IS NOT NULL
			OR EXISTS (SELECT 1 FROM guild_members WHERE user_id = ?0)
		`, userID, types.RoleActionInitial).Scan(ctx, &stats)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to get user stats: %w", err)
		}

		return &stats, nil
	})
}

// ServerStats aggregates the recorded history of a guild.
func (m *StatsModel) ServerStats(ctx context.Context, guildID uint64, now time.Time) (*types.ServerStats, error) {
	since := now.UTC().Add(-24 * time.Hour)

	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ServerStats, error) {
		stats := types.ServerStats{GuildID: guildID}

		err := m.db.NewRaw(`
			SELECT
				(SELECT COUNT(DISTINCT user_id) FROM guild_members WHERE guild_id = ?0) AS total_users,
				(SELECT COUNT(*) FROM username_changes uc
					JOIN guild_members gm ON gm.user_id = uc.user_id AND gm.guild_id = ?0) AS total_username_changes,
				(SELECT COUNT(*) FROM nickname_changes WHERE guild_id = ?0) AS total_nickname_changes,
				(SELECT COUNT(*) FROM role_changes WHERE guild_id = ?0 AND action != ?2) AS total_role_changes,
				(SELECT COUNT(*) FROM join_leave_events
					WHERE guild_id = ?0 AND event_type = ?3 AND timestamp >= ?1) AS new_members_24h,
				(SELECT COUNT(*) FROM join_leave_events
					WHERE guild_id = ?0 AND event_type = ?4 AND timestamp >= ?1) AS left_members_24h,
				(SELECT COUNT(*) FROM nickname_changes WHERE guild_id = ?0 AND changed_at >= ?1) AS name_changes_24h
		`, guildID, since, types.RoleActionInitial, types.JoinLeaveTypeJoin, types.JoinLeaveTypeLeave).
			Scan(ctx, &stats)
		if err != nil {
			return nil, fmt.Errorf("failed to get server stats: %w", err)
		}

		return &stats, nil
	})
}

// RecentChanges returns the newest username, nickname and role changes of a
// guild as one feed. Initial inventory rows are never included.
func (m *StatsModel) RecentChanges(ctx context.Context, guildID uint64, limit int) ([]*types.ChangeEntry, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ChangeEntry, error) {
		var entries []*types.ChangeEntry

		err := m.db.NewRaw(`
			SELECT * FROM (
				SELECT 'username' AS change_type, uc.user_id,
					COALESCE(u.username, '') AS username, COALESCE(u.display_name, '') AS display_name,
					uc.old_username AS old_value, uc.new_username AS new_value,
					0 AS role_id, '' AS role_name, 0 AS role_color, '' AS action, uc.changed_at
				FROM username_changes uc
				LEFT JOIN users u ON u.user_id = uc.user_id
				WHERE uc.user_id IN (SELECT user_id FROM guild_members WHERE guild_id = ?0)

				UNION ALL

				SELECT 'nickname', nc.user_id,
					COALESCE(u.username, ''), COALESCE(u.display_name, ''),
					nc.old_nickname, nc.new_nickname,
					0, '', 0, '', nc.changed_at
				FROM nickname_changes nc
				LEFT JOIN users u ON u.user_id = nc.user_id
				WHERE nc.guild_id = ?0

				UNION ALL

				SELECT 'role', rc.user_id,
					COALESCE(u.username, ''), COALESCE(u.display_name, ''),
					'', '',
					rc.role_id, COALESCE(r.name, ''), COALESCE(r.color, 0), rc.action, rc.changed_at
				FROM role_changes rc
				LEFT JOIN users u ON u.user_id = rc.user_id
				LEFT JOIN roles r ON r.role_id = rc.role_id
				WHERE rc.guild_id = ?0 AND rc.action != ?1
			)
			ORDER BY changed_at DESC
			LIMIT ?2
		`, guildID, types.RoleActionInitial, limit).Scan(ctx, &entries)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get recent changes: %w", err)
		}

		return entries, nil
	})
}

// RoleHistory returns the real role changes of a user, newest first.
// A zero guildID covers every guild.
func (m *StatsModel) RoleHistory(ctx context.Context, userID, guildID uint64) ([]*types.RoleHistoryEntry, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.RoleHistoryEntry, error) {
		var entries []*types.RoleHistoryEntry

		err := m.db.NewRaw(`
			SELECT rc.role_id, COALESCE(r.name, 'Unknown Role') AS role_name,
				COALESCE(r.color, 0) AS role_color, rc.action, rc.changed_at
			FROM role_changes rc
			LEFT JOIN roles r ON r.role_id = rc.role_id
			WHERE rc.user_id = ?0 AND (?1 = 0 OR rc.guild_id = ?1) AND rc.action != ?2
			ORDER BY rc.changed_at DESC, rc.id DESC
		`, userID, guildID, types.RoleActionInitial).Scan(ctx, &entries)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get role history: %w", err)
		}

		return entries, nil
	})
}

// WeeklyActivity buckets the last seven days of changes by day of week.
// The result always holds seven entries, Sunday first.
func (m *StatsModel) WeeklyActivity(ctx context.Context, guildID uint64, now time.Time) ([]types.DayActivity, error) {
	since := now.UTC().Add(-7 * 24 * time.Hour)

	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.DayActivity, error) {
		var rows []struct {
			Day     int `bun:"day"`
			Changes int `bun:"changes"`
		}

		err := m.db.NewRaw(`
			SELECT CAST(strftime('%w', changed_at) AS INTEGER) AS day, COUNT(*) AS changes
			FROM (
				SELECT changed_at FROM username_changes
				WHERE changed_at >= ?1
				AND user_id IN (SELECT user_id FROM guild_members WHERE guild_id = ?0)
				UNION ALL
				SELECT changed_at FROM nickname_changes
				WHERE guild_id = ?0 AND changed_at >= ?1
				UNION ALL
				SELECT changed_at FROM role_changes
				WHERE guild_id = ?0 AND action != ?2 AND changed_at >= ?1
			)
			GROUP BY day
		`, guildID, since, types.RoleActionInitial).Scan(ctx, &rows)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get weekly activity: %w", err)
		}

		counts := make(map[int]int, len(rows))
		for _, row := range rows {
			counts[row.Day] = row.Changes
		}

		return FillWeek(counts), nil
	})
}

// FillWeek expands sparse day-of-week counts into exactly seven entries.
func FillWeek(counts map[int]int) []types.DayActivity {
	days := make([]types.DayActivity, 0, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		days = append(days, types.DayActivity{
			Day:     day,
			Name:    day.String(),
			Changes: counts[int(day)],
		})
	}
	return days
}

// DatabaseStats counts the rows of the main tables.
func (m *StatsModel) DatabaseStats(ctx context.Context) (*types.DatabaseStats, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.DatabaseStats, error) {
		var stats types.DatabaseStats

		err := m.db.NewRaw(`
			SELECT
				(SELECT COUNT(*) FROM users) AS user_count,
				(SELECT COUNT(*) FROM username_changes) AS username_changes,
				(SELECT COUNT(*) FROM nickname_changes) AS nickname_changes,
				(SELECT COUNT(*) FROM role_changes WHERE action != ?) AS role_changes,
				(SELECT COUNT(*) FROM join_leave_events) AS join_leave_events
		`, types.RoleActionInitial).Scan(ctx, &stats)
		if err != nil {
			return nil, fmt.Errorf("failed to get database stats: %w", err)
		}

		return &stats, nil
	})
}

// CurrentRoles returns the roles a member holds according to the recorded
// history, highest position first.
func (m *StatsModel) CurrentRoles(ctx context.Context, userID, guildID uint64) ([]*types.CurrentRole, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.CurrentRole, error) {
		var roles []*types.CurrentRole

		err := m.db.NewRaw(`
			WITH `+currentRolesCTE+`
			SELECT cr.user_id, cr.role_id, r.name, r.color, r.position
			FROM current_roles cr
			JOIN roles r ON r.role_id = cr.role_id
			WHERE cr.user_id = ?0 AND cr.guild_id = ?1
			ORDER BY r.position DESC, r.role_id
		`, userID, guildID).Scan(ctx, &roles)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get current roles: %w", err)
		}

		return roles, nil
	})
}

// BulkRoles returns the current roles of many users in one query, grouped by user ID.
func (m *StatsModel) BulkRoles(
	ctx context.Context, guildID uint64, userIDs []uint64,
) (map[uint64][]*types.CurrentRole, error) {
	if len(userIDs) > types.MaxBulkUsers {
		return nil, fmt.Errorf("%w: %d > %d", types.ErrTooManyUsers, len(userIDs), types.MaxBulkUsers)
	}

	grouped := make(map[uint64][]*types.CurrentRole, len(userIDs))
	if len(userIDs) == 0 {
		return grouped, nil
	}

	return dbretry.Operation(ctx, func(ctx context.Context) (map[uint64][]*types.CurrentRole, error) {
		var roles []*types.CurrentRole

		err := m.db.NewRaw(`
			WITH `+currentRolesCTE+`
			SELECT cr.user_id, cr.role_id, r.name, r.color, r.position
			FROM current_roles cr
			JOIN roles r ON r.role_id = cr.role_id
			WHERE cr.guild_id = ?0 AND cr.user_id IN (?1)
			ORDER BY cr.user_id, r.position DESC, r.role_id
		`, guildID, bun.In(userIDs)).Scan(ctx, &roles)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get bulk roles: %w", err)
		}

		result := make(map[uint64][]*types.CurrentRole, len(userIDs))
		for _, id := range userIDs {
			result[id] = []*types.CurrentRole{}
		}
		for _, role := range roles {
			result[role.UserID] = append(result[role.UserID], role)
		}

		return result, nil
	})
}

// GuildRoles returns the known roles of a guild, highest position first.
func (m *StatsModel) GuildRoles(ctx context.Context, guildID uint64) ([]*types.Role, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Role, error) {
		var roles []*types.Role

		err := m.db.NewSelect().
			Model(&roles).
			Where("guild_id = ?", guildID).
			Order("position DESC", "role_id").
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get guild roles: %w", err)
		}

		return roles, nil
	})
}
