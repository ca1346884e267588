package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// MinSearchLength is the shortest query accepted by user search.
const MinSearchLength = 2

// UserModel handles database operations for users.
type UserModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewUser creates a new user model instance.
func NewUser(db *bun.DB, logger *zap.Logger) *UserModel {
	return &UserModel{
		db:     db,
		logger: logger.Named("db_user"),
	}
}

// UpsertUser inserts or refreshes a user.
func (m *UserModel) UpsertUser(ctx context.Context, user *types.UserSnapshot) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return upsertUser(ctx, m.db, user, nowUTC())
	})
}

// GetUser retrieves a user by ID.
func (m *UserModel) GetUser(ctx context.Context, userID uint64) (*types.User, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.User, error) {
		var user types.User

		err := m.db.NewSelect().
			Model(&user).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to get user: %w", err)
		}

		return &user, nil
	})
}

// GetMemberState reconstructs the last recorded state of a member.
// Known is false when nothing has been recorded for the pair.
func (m *UserModel) GetMemberState(ctx context.Context, guildID, userID uint64) (*types.MemberState, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.MemberState, error) {
		state := &types.MemberState{}

		var row struct {
			Username string `bun:"username"`
			Nickname string `bun:"nickname"`
		}

		err := m.db.NewRaw(`
			SELECT COALESCE(u.username, '') AS username, gm.nickname
			FROM guild_members gm
			LEFT JOIN users u ON u.user_id = gm.user_id
			WHERE gm.guild_id = ? AND gm.user_id = ?
		`, guildID, userID).Scan(ctx, &row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return state, nil
			}
			return nil, fmt.Errorf("failed to get member state: %w", err)
		}

		state.Known = true
		state.Username = row.Username
		state.Nickname = row.Nickname

		err = m.db.NewRaw(`
			WITH `+currentRolesCTE+`
			SELECT role_id FROM current_roles
			WHERE guild_id = ? AND user_id = ?
			ORDER BY role_id
		`, guildID, userID).Scan(ctx, &state.RoleIDs)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get member roles: %w", err)
		}

		return state, nil
	})
}

// SearchUsers finds users whose username, display name, nickname or any held
// role name contains the query. A zero guildID searches every guild.
func (m *UserModel) SearchUsers(
	ctx context.Context, query string, guildID uint64, roleFilter string, limit int,
) ([]*types.MemberProfile, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return nil, types.ErrQueryTooShort
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.MemberProfile, error) {
		var results []*types.MemberProfile

		q := m.db.NewRaw(`
			WITH `+currentRolesCTE+`
			SELECT gm.guild_id, u.user_id, u.username, u.display_name, u.avatar_url,
				gm.nickname, gm.is_active, gm.joined_at, u.last_seen
			FROM users u
			JOIN guild_members gm ON gm.user_id = u.user_id
			WHERE (?0 = 0 OR gm.guild_id = ?0)
			AND (
				LOWER(u.username) LIKE ?1 ESCAPE '\'
				OR LOWER(u.display_name) LIKE ?1 ESCAPE '\'
				OR LOWER(gm.nickname) LIKE ?1 ESCAPE '\'
				OR EXISTS (
					SELECT 1 FROM current_roles cr
					JOIN roles r ON r.role_id = cr.role_id
					WHERE cr.guild_id = gm.guild_id AND cr.user_id = gm.user_id
					AND LOWER(r.name) LIKE ?1 ESCAPE '\'
				)
			)
			AND (?2 = '' OR EXISTS (
				SELECT 1 FROM current_roles cr
				JOIN roles r ON r.role_id = cr.role_id
				WHERE cr.guild_id = gm.guild_id AND cr.user_id = gm.user_id
				AND LOWER(r.name) = LOWER(?2)
			))
			ORDER BY u.last_seen DESC, u.user_id
			LIMIT ?3
		`, guildID, pattern, roleFilter, limit)

		if err := q.Scan(ctx, &results); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to search users: %w", err)
		}

		return results, nil
	})
}

// GuildUsers lists members of a guild, optionally restricted to active members
// and members holding a role with the given name.
func (m *UserModel) GuildUsers(
	ctx context.Context, guildID uint64, activeOnly bool, roleFilter string,
) ([]*types.MemberProfile, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.MemberProfile, error) {
		var results []*types.MemberProfile

		err := m.db.NewRaw(`
			WITH `+currentRolesCTE+`
			SELECT gm.guild_id, gm.user_id,
				COALESCE(u.username, 'User_' || gm.user_id) AS username,
				COALESCE(u.display_name, '') AS display_name,
				COALESCE(u.avatar_url, '') AS avatar_url,
				gm.nickname, gm.is_active, gm.joined_at,
				COALESCE(u.last_seen, gm.joined_at) AS last_seen
			FROM guild_members gm
			LEFT JOIN users u ON u.user_id = gm.user_id
			WHERE gm.guild_id = ?0
			AND (?1 = 0 OR gm.is_active = 1)
			AND (?2 = '' OR EXISTS (
				SELECT 1 FROM current_roles cr
				JOIN roles r ON r.role_id = cr.role_id
				WHERE cr.guild_id = gm.guild_id AND cr.user_id = gm.user_id
				AND LOWER(r.name) = LOWER(?2)
			))
			ORDER BY LOWER(COALESCE(u.username, '')), gm.user_id
		`, guildID, activeOnly, roleFilter).Scan(ctx, &results)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get guild users: %w", err)
		}

		return results, nil
	})
}

// RecentUsers returns the most recently seen users.
func (m *UserModel) RecentUsers(ctx context.Context, limit int) ([]*types.User, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.User, error) {
		var users []*types.User

		err := m.db.NewSelect().
			Model(&users).
			Order("last_seen DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent users: %w", err)
		}

		return users, nil
	})
}

// MissingUserIDs returns member user IDs that have no users row.
func (m *UserModel) MissingUserIDs(ctx context.Context) ([]uint64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]uint64, error) {
		var ids []uint64

		err := m.db.NewRaw(`
			SELECT DISTINCT gm.user_id
			FROM guild_members gm
			LEFT JOIN users u ON u.user_id = gm.user_id
			WHERE u.user_id IS NULL
			ORDER BY gm.user_id
		`).Scan(ctx, &ids)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get missing users: %w", err)
		}

		return ids, nil
	})
}

// FixMissingUsers creates placeholder users for memberships without a users row.
// The placeholder takes the member's nickname when one is known.
func (m *UserModel) FixMissingUsers(ctx context.Context) (int, error) {
	var fixed int

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		now := nowUTC()

		result, err := m.db.NewRaw(`
			INSERT INTO users (user_id, username, discriminator, display_name, avatar_url, is_bot,
				created_at, first_seen, last_seen)
			SELECT gm.user_id,
				COALESCE(NULLIF(MAX(gm.nickname), ''), 'User_' || gm.user_id),
				'0', '', '', FALSE, ?0, ?0, ?0
			FROM guild_members gm
			LEFT JOIN users u ON u.user_id = gm.user_id
			WHERE u.user_id IS NULL
			GROUP BY gm.user_id
		`, now).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to fix missing users: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}

		fixed = int(affected)

		return nil
	})
	if err != nil {
		return 0, err
	}

	m.logger.Info("Fixed missing users", zap.Int("count", fixed))

	return fixed, nil
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
