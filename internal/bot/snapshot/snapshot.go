// Package snapshot converts gateway objects into the store's snapshot types.
package snapshot

import (
	"slices"
	"strconv"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/database/types"
)

// RoleLookup resolves a role of a guild, usually from the gateway cache.
type RoleLookup func(guildID, roleID snowflake.ID) (discord.Role, bool)

// User converts a Discord user.
func User(user discord.User) types.UserSnapshot {
	return types.UserSnapshot{
		ID:            uint64(user.ID),
		Username:      user.Username,
		Discriminator: user.Discriminator,
		DisplayName:   user.EffectiveName(),
		AvatarURL:     user.EffectiveAvatarURL(),
		IsBot:         user.Bot,
		CreatedAt:     user.ID.Time().UTC(),
	}
}

// Role converts a Discord role.
func Role(role discord.Role) types.RoleSnapshot {
	return types.RoleSnapshot{
		ID:            uint64(role.ID),
		GuildID:       uint64(role.GuildID),
		Name:          role.Name,
		Color:         role.Color,
		Position:      role.Position,
		Permissions:   strconv.FormatInt(int64(role.Permissions), 10),
		IsHoisted:     role.Hoist,
		IsMentionable: role.Mentionable,
	}
}

// Roles converts the roles of a guild, leaving out @everyone.
func Roles(guildID snowflake.ID, roles []discord.Role) []types.RoleSnapshot {
	snapshots := make([]types.RoleSnapshot, 0, len(roles))
	for _, role := range roles {
		if IsEveryone(guildID, role.ID) {
			continue
		}
		if role.GuildID == 0 {
			role.GuildID = guildID
		}
		snapshots = append(snapshots, Role(role))
	}
	return snapshots
}

// Member converts a guild member. Roles missing from lookup keep only their
// ID so that stored definitions are not overwritten.
func Member(guildID snowflake.ID, member discord.Member, lookup RoleLookup) *types.MemberSnapshot {
	snapshot := &types.MemberSnapshot{
		GuildID:  uint64(guildID),
		User:     User(member.User),
		JoinedAt: member.JoinedAt.UTC(),
		Roles:    make([]types.RoleSnapshot, 0, len(member.RoleIDs)),
	}
	if member.Nick != nil {
		snapshot.Nickname = *member.Nick
	}

	for _, roleID := range member.RoleIDs {
		if IsEveryone(guildID, roleID) {
			continue
		}

		if lookup != nil {
			if role, ok := lookup(guildID, roleID); ok {
				if role.GuildID == 0 {
					role.GuildID = guildID
				}
				snapshot.Roles = append(snapshot.Roles, Role(role))
				continue
			}
		}

		snapshot.Roles = append(snapshot.Roles, types.RoleSnapshot{
			ID:      uint64(roleID),
			GuildID: uint64(guildID),
		})
	}

	return snapshot
}

// HasRole reports whether the member holds the role.
func HasRole(member discord.Member, roleID snowflake.ID) bool {
	return slices.Contains(member.RoleIDs, roleID)
}

// IsEveryone reports whether the role is the implicit @everyone role.
func IsEveryone(guildID, roleID snowflake.ID) bool {
	return guildID == roleID
}

// Lookup builds a RoleLookup over a fixed role list.
func Lookup(roles []discord.Role) RoleLookup {
	byID := make(map[snowflake.ID]discord.Role, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
	}

	return func(_, roleID snowflake.ID) (discord.Role, bool) {
		role, ok := byID[roleID]
		return role, ok
	}
}
