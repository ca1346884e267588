package types

import "time"

// ChangeType identifies which audit table a feed entry came from.
type ChangeType string

const (
	ChangeTypeUsername ChangeType = "username"
	ChangeTypeNickname ChangeType = "nickname"
	ChangeTypeRole     ChangeType = "role"
)

// UserStats summarizes the recorded history of a single user.
type UserStats struct {
	UserID          uint64    `bun:"user_id"          json:"userId"`
	Username        string    `bun:"username"         json:"username"`
	DisplayName     string    `bun:"display_name"     json:"displayName"`
	AvatarURL       string    `bun:"avatar_url"       json:"avatarUrl"`
	UsernameChanges int       `bun:"username_changes" json:"usernameChanges"`
	NicknameChanges int       `bun:"nickname_changes" json:"nicknameChanges"`
	RoleChanges     int       `bun:"role_changes"     json:"roleChanges"`
	LastActivity    time.Time `bun:"last_activity"    json:"lastActivity"`
}

// ServerStats summarizes the recorded history of a guild.
type ServerStats struct {
	GuildID              uint64 `bun:"-"                      json:"guildId"`
	TotalUsers           int    `bun:"total_users"            json:"totalUsers"`
	TotalUsernameChanges int    `bun:"total_username_changes" json:"totalUsernameChanges"`
	TotalNicknameChanges int    `bun:"total_nickname_changes" json:"totalNicknameChanges"`
	TotalRoleChanges     int    `bun:"total_role_changes"     json:"totalRoleChanges"`
	NewMembers24h        int    `bun:"new_members_24h"        json:"newMembers24h"`
	LeftMembers24h       int    `bun:"left_members_24h"       json:"leftMembers24h"`
	NameChanges24h       int    `bun:"name_changes_24h"       json:"nameChanges24h"`
}

// ChangeEntry is one row of the unified recent-changes feed.
type ChangeEntry struct {
	Type        ChangeType `bun:"change_type"  json:"type"`
	UserID      uint64     `bun:"user_id"      json:"userId"`
	Username    string     `bun:"username"     json:"username"`
	DisplayName string     `bun:"display_name" json:"displayName"`
	OldValue    string     `bun:"old_value"    json:"oldValue"`
	NewValue    string     `bun:"new_value"    json:"newValue"`
	RoleID      uint64     `bun:"role_id"      json:"roleId"`
	RoleName    string     `bun:"role_name"    json:"roleName"`
	RoleColor   int        `bun:"role_color"   json:"roleColor"`
	Action      RoleAction `bun:"action"       json:"action"`
	ChangedAt   time.Time  `bun:"changed_at"   json:"changedAt"`
}

// RoleHistoryEntry is a role change joined with the role it refers to.
type RoleHistoryEntry struct {
	RoleID    uint64     `bun:"role_id"    json:"roleId"`
	RoleName  string     `bun:"role_name"  json:"roleName"`
	RoleColor int        `bun:"role_color" json:"roleColor"`
	Action    RoleAction `bun:"action"     json:"action"`
	ChangedAt time.Time  `bun:"changed_at" json:"changedAt"`
}

// DayActivity is the number of changes recorded on one day of the week.
type DayActivity struct {
	Day     time.Weekday `json:"day"`
	Name    string       `json:"name"`
	Changes int          `json:"changes"`
}

// DatabaseStats holds table-level counters for the whole store.
type DatabaseStats struct {
	UserCount       int `bun:"user_count"        json:"userCount"`
	UsernameChanges int `bun:"username_changes"  json:"usernameChanges"`
	NicknameChanges int `bun:"nickname_changes"  json:"nicknameChanges"`
	RoleChanges     int `bun:"role_changes"      json:"roleChanges"`
	JoinLeaveEvents int `bun:"join_leave_events" json:"joinLeaveEvents"`
}

// CurrentRole is a role a member holds according to the recorded history.
type CurrentRole struct {
	UserID   uint64 `bun:"user_id"  json:"userId"`
	RoleID   uint64 `bun:"role_id"  json:"roleId"`
	Name     string `bun:"name"     json:"name"`
	Color    int    `bun:"color"    json:"color"`
	Position int    `bun:"position" json:"position"`
}

// MemberProfile is a user joined with their membership in one guild.
type MemberProfile struct {
	GuildID     uint64    `bun:"guild_id"     json:"guildId"`
	UserID      uint64    `bun:"user_id"      json:"userId"`
	Username    string    `bun:"username"     json:"username"`
	DisplayName string    `bun:"display_name" json:"displayName"`
	AvatarURL   string    `bun:"avatar_url"   json:"avatarUrl"`
	Nickname    string    `bun:"nickname"     json:"nickname"`
	IsActive    bool      `bun:"is_active"    json:"isActive"`
	JoinedAt    time.Time `bun:"joined_at"    json:"joinedAt"`
	LastSeen    time.Time `bun:"last_seen"    json:"lastSeen"`
}

// MemberState is the last recorded state of a member, used when the
// platform cannot supply a previous snapshot.
type MemberState struct {
	Username string
	Nickname string
	RoleIDs  []uint64
	Known    bool
}
