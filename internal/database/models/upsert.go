package models

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
)

// currentRolesCTE selects the latest recorded change for every
// (guild, user, role) triple. A role is held when that change is an add or the
// initial inventory entry.
const currentRolesCTE = `
	latest_role_changes AS (
		SELECT guild_id, user_id, role_id, action,
			ROW_NUMBER() OVER (
				PARTITION BY guild_id, user_id, role_id
				ORDER BY changed_at DESC, id DESC
			) AS rn
		FROM role_changes
	),
	current_roles AS (
		SELECT guild_id, user_id, role_id
		FROM latest_role_changes
		WHERE rn = 1 AND action IN ('added', 'initial')
	)`

// upsertUser inserts or refreshes a user row. First-seen and creation
// timestamps keep their original values.
func upsertUser(ctx context.Context, db bun.IDB, user *types.UserSnapshot, now time.Time) error {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	row := &types.User{
		UserID:        user.ID,
		Username:      user.Username,
		Discriminator: user.Discriminator,
		DisplayName:   user.DisplayName,
		AvatarURL:     user.AvatarURL,
		IsBot:         user.IsBot,
		CreatedAt:     createdAt.UTC(),
		FirstSeen:     now,
		LastSeen:      now,
	}

	_, err := db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Set("discriminator = EXCLUDED.discriminator").
		Set("display_name = EXCLUDED.display_name").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("is_bot = EXCLUDED.is_bot").
		Set("last_seen = EXCLUDED.last_seen").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", user.ID, err)
	}

	return nil
}

// upsertMember inserts or reactivates a membership row.
func upsertMember(
	ctx context.Context, db bun.IDB, guildID, userID uint64, nickname string, joinedAt time.Time,
) error {
	member := &types.GuildMember{
		GuildID:  guildID,
		UserID:   userID,
		JoinedAt: joinedAt.UTC(),
		Nickname: nickname,
		IsActive: true,
	}

	_, err := db.NewInsert().
		Model(member).
		On("CONFLICT (guild_id, user_id) DO UPDATE").
		Set("nickname = EXCLUDED.nickname").
		Set("joined_at = EXCLUDED.joined_at").
		Set("is_active = EXCLUDED.is_active").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert member %d in guild %d: %w", userID, guildID, err)
	}

	return nil
}

// upsertRoles inserts or refreshes role definitions.
func upsertRoles(ctx context.Context, db bun.IDB, roles []types.RoleSnapshot, now time.Time) error {
	if len(roles) == 0 {
		return nil
	}

	rows := make([]*types.Role, 0, len(roles))
	for _, role := range roles {
		rows = append(rows, &types.Role{
			RoleID:        role.ID,
			GuildID:       role.GuildID,
			Name:          role.Name,
			Color:         role.Color,
			Position:      role.Position,
			Permissions:   role.Permissions,
			IsHoisted:     role.IsHoisted,
			IsMentionable: role.IsMentionable,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (role_id) DO UPDATE").
		Set("guild_id = EXCLUDED.guild_id").
		Set("name = EXCLUDED.name").
		Set("color = EXCLUDED.color").
		Set("position = EXCLUDED.position").
		Set("permissions = EXCLUDED.permissions").
		Set("is_hoisted = EXCLUDED.is_hoisted").
		Set("is_mentionable = EXCLUDED.is_mentionable").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert %d roles: %w", len(rows), err)
	}

	return nil
}

// ensureRoles creates placeholder rows for role IDs that were never observed,
// keeping role change rows referentially consistent.
func ensureRoles(ctx context.Context, db bun.IDB, guildID uint64, roleIDs []uint64, now time.Time) error {
	for _, roleID := range roleIDs {
		_, err := db.NewInsert().
			Model(&types.Role{
				RoleID:      roleID,
				GuildID:     guildID,
				Name:        fmt.Sprintf("Role_%d", roleID),
				Permissions: "0",
				CreatedAt:   now,
				UpdatedAt:   now,
			}).
			On("CONFLICT (role_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to ensure role %d: %w", roleID, err)
		}
	}
	return nil
}

// nowUTC returns the current instant in UTC.
func nowUTC() time.Time {
	return time.Now().UTC()
}
