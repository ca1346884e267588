package convert

import (
	"strconv"
	"time"

	"github.com/robalyx/sentinel/internal/auth"
	"github.com/robalyx/sentinel/internal/database/types"
	restTypes "github.com/robalyx/sentinel/internal/rest/types"
)

// ID formats a snowflake.
func ID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// UserStats converts database user stats.
func UserStats(stats *types.UserStats) *restTypes.UserStats {
	displayName := stats.DisplayName
	if displayName == "" {
		displayName = stats.Username
	}

	return &restTypes.UserStats{
		UserID:          ID(stats.UserID),
		Username:        stats.Username,
		DisplayName:     displayName,
		AvatarURL:       optional(stats.AvatarURL),
		UsernameChanges: stats.UsernameChanges,
		NicknameChanges: stats.NicknameChanges,
		RoleChanges:     stats.RoleChanges,
		LastActivity:    optionalTime(stats.LastActivity),
	}
}

// ServerStats converts database server stats.
func ServerStats(stats *types.ServerStats) *restTypes.ServerStats {
	return &restTypes.ServerStats{
		TotalUsers:           stats.TotalUsers,
		TotalUsernameChanges: stats.TotalUsernameChanges,
		TotalNicknameChanges: stats.TotalNicknameChanges,
		TotalRoleChanges:     stats.TotalRoleChanges,
		NewMembers24h:        stats.NewMembers24h,
		LeftMembers24h:       stats.LeftMembers24h,
		NameChanges24h:       stats.NameChanges24h,
	}
}

// Changes converts the recent-changes feed. Role fields are only set on role entries.
func Changes(entries []*types.ChangeEntry) []restTypes.ChangeEvent {
	events := make([]restTypes.ChangeEvent, 0, len(entries))
	for _, e := range entries {
		event := restTypes.ChangeEvent{
			Type:        string(e.Type),
			UserID:      ID(e.UserID),
			OldValue:    optional(e.OldValue),
			NewValue:    optional(e.NewValue),
			Timestamp:   e.ChangedAt,
			Username:    optional(e.Username),
			DisplayName: optional(e.DisplayName),
		}

		if e.Type == types.ChangeTypeRole {
			roleID := ID(e.RoleID)
			color := e.RoleColor
			action := string(e.Action)
			event.RoleID = &roleID
			event.RoleName = optional(e.RoleName)
			event.RoleColor = &color
			event.Action = &action
		}

		events = append(events, event)
	}
	return events
}

// RoleHistory converts a user's role history.
func RoleHistory(entries []*types.RoleHistoryEntry) []restTypes.RoleChange {
	changes := make([]restTypes.RoleChange, 0, len(entries))
	for _, e := range entries {
		changes = append(changes, restTypes.RoleChange{
			RoleID:    ID(e.RoleID),
			RoleName:  e.RoleName,
			RoleColor: e.RoleColor,
			Action:    string(e.Action),
			Timestamp: e.ChangedAt,
		})
	}
	return changes
}

// WeeklyActivity converts day buckets.
func WeeklyActivity(days []types.DayActivity) []restTypes.WeeklyActivityDay {
	result := make([]restTypes.WeeklyActivityDay, 0, len(days))
	for _, d := range days {
		result = append(result, restTypes.WeeklyActivityDay{Name: d.Name, Changes: d.Changes})
	}
	return result
}

// DatabaseStats converts table counters.
func DatabaseStats(stats *types.DatabaseStats) *restTypes.DatabaseStats {
	return &restTypes.DatabaseStats{
		UserCount:       stats.UserCount,
		UsernameChanges: stats.UsernameChanges,
		NicknameChanges: stats.NicknameChanges,
		RoleChanges:     stats.RoleChanges,
		JoinLeaveEvents: stats.JoinLeaveEvents,
	}
}

// CurrentRoles converts held roles, formatting colors as hex.
func CurrentRoles(roles []*types.CurrentRole) []restTypes.CurrentRole {
	result := make([]restTypes.CurrentRole, 0, len(roles))
	for _, r := range roles {
		result = append(result, restTypes.CurrentRole{
			RoleID:   ID(r.RoleID),
			RoleName: r.Name,
			Color:    auth.HexColor(r.Color),
			Position: r.Position,
		})
	}
	return result
}

// BulkRoles converts grouped roles, keyed by user ID string.
func BulkRoles(grouped map[uint64][]*types.CurrentRole) map[string][]restTypes.CurrentRole {
	result := make(map[string][]restTypes.CurrentRole, len(grouped))
	for userID, roles := range grouped {
		result[ID(userID)] = CurrentRoles(roles)
	}
	return result
}

// Users converts member profiles.
func Users(profiles []*types.MemberProfile) []restTypes.UserSummary {
	result := make([]restTypes.UserSummary, 0, len(profiles))
	for _, p := range profiles {
		result = append(result, restTypes.UserSummary{
			UserID:      ID(p.UserID),
			Username:    p.Username,
			DisplayName: p.DisplayName,
			AvatarURL:   optional(p.AvatarURL),
			Nickname:    optional(p.Nickname),
			IsActive:    p.IsActive,
			JoinedAt:    optionalTime(p.JoinedAt),
			LastSeen:    optionalTime(p.LastSeen),
		})
	}
	return result
}

// AuthUser converts session claims.
func AuthUser(claims *auth.Claims) *restTypes.AuthUser {
	roles := make([]restTypes.AuthRole, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		roles = append(roles, restTypes.AuthRole{
			RoleID:   r.RoleID,
			RoleName: r.RoleName,
			Color:    r.Color,
			Position: r.Position,
		})
	}

	return &restTypes.AuthUser{
		UserID:           claims.UserID,
		Username:         claims.Username,
		Discriminator:    claims.Discriminator,
		AvatarURL:        optional(claims.AvatarURL),
		Roles:            roles,
		IsAdmin:          claims.IsAdmin,
		IsGuest:          claims.IsGuest,
		HasWebsiteAccess: claims.HasWebsiteAccess,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
