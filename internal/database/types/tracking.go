package types

import "time"

// RoleAction describes what happened to a role on a member.
type RoleAction string

const (
	// RoleActionAdded is recorded when a member gains a role.
	RoleActionAdded RoleAction = "added"
	// RoleActionRemoved is recorded when a member loses a role.
	RoleActionRemoved RoleAction = "removed"
	// RoleActionInitial seeds role history during the startup inventory.
	// Rows with this action never count as a change.
	RoleActionInitial RoleAction = "initial"
)

// JoinLeaveType is the kind of membership transition.
type JoinLeaveType string

const (
	JoinLeaveTypeJoin  JoinLeaveType = "join"
	JoinLeaveTypeLeave JoinLeaveType = "leave"
)

// User is a platform account that has been observed at least once.
type User struct {
	UserID        uint64    `bun:",pk"       json:"userId"`
	Username      string    `bun:",notnull"  json:"username"`
	Discriminator string    `bun:",notnull"  json:"discriminator"`
	DisplayName   string    `bun:",notnull"  json:"displayName"`
	AvatarURL     string    `bun:",notnull"  json:"avatarUrl"`
	IsBot         bool      `bun:",notnull"  json:"isBot"`
	CreatedAt     time.Time `bun:",notnull"  json:"createdAt"`
	FirstSeen     time.Time `bun:",notnull"  json:"firstSeen"`
	LastSeen      time.Time `bun:",notnull"  json:"lastSeen"`
}

// GuildMember is a user's membership in one guild.
type GuildMember struct {
	ID       int64     `bun:",pk,autoincrement" json:"id"`
	GuildID  uint64    `bun:",notnull"          json:"guildId"`
	UserID   uint64    `bun:",notnull"          json:"userId"`
	JoinedAt time.Time `bun:",notnull"          json:"joinedAt"`
	Nickname string    `bun:",notnull"          json:"nickname"`
	IsActive bool      `bun:",notnull"          json:"isActive"`
}

// Role is a guild-defined role as last observed.
type Role struct {
	RoleID        uint64    `bun:",pk"      json:"roleId"`
	GuildID       uint64    `bun:",notnull" json:"guildId"`
	Name          string    `bun:",notnull" json:"name"`
	Color         int       `bun:",notnull" json:"color"`
	Position      int       `bun:",notnull" json:"position"`
	Permissions   string    `bun:",notnull" json:"permissions"`
	IsHoisted     bool      `bun:",notnull" json:"isHoisted"`
	IsMentionable bool      `bun:",notnull" json:"isMentionable"`
	CreatedAt     time.Time `bun:",notnull" json:"createdAt"`
	UpdatedAt     time.Time `bun:",notnull" json:"updatedAt"`
}

// UsernameChange is an audit row for a global username change.
type UsernameChange struct {
	ID          int64     `bun:",pk,autoincrement" json:"id"`
	UserID      uint64    `bun:",notnull"          json:"userId"`
	OldUsername string    `bun:",notnull"          json:"oldUsername"`
	NewUsername string    `bun:",notnull"          json:"newUsername"`
	ChangedAt   time.Time `bun:",notnull"          json:"changedAt"`
}

// NicknameChange is an audit row for a per-guild nickname change.
type NicknameChange struct {
	ID          int64     `bun:",pk,autoincrement" json:"id"`
	GuildID     uint64    `bun:",notnull"          json:"guildId"`
	UserID      uint64    `bun:",notnull"          json:"userId"`
	OldNickname string    `bun:",notnull"          json:"oldNickname"`
	NewNickname string    `bun:",notnull"          json:"newNickname"`
	ChangedAt   time.Time `bun:",notnull"          json:"changedAt"`
}

// RoleChange is an audit row for a role being added to or removed from a member.
type RoleChange struct {
	ID        int64      `bun:",pk,autoincrement" json:"id"`
	GuildID   uint64     `bun:",notnull"          json:"guildId"`
	UserID    uint64     `bun:",notnull"          json:"userId"`
	RoleID    uint64     `bun:",notnull"          json:"roleId"`
	Action    RoleAction `bun:",notnull"          json:"action"`
	ChangedAt time.Time  `bun:",notnull"          json:"changedAt"`
}

// JoinLeaveEvent is an audit row for a membership transition.
type JoinLeaveEvent struct {
	ID        int64         `bun:",pk,autoincrement" json:"id"`
	GuildID   uint64        `bun:",notnull"          json:"guildId"`
	UserID    uint64        `bun:",notnull"          json:"userId"`
	EventType JoinLeaveType `bun:",notnull"          json:"eventType"`
	Timestamp time.Time     `bun:",notnull"          json:"timestamp"`
}

// UserExport holds every audit row recorded for one user.
type UserExport struct {
	UserID          uint64            `json:"userId"`
	UsernameChanges []*UsernameChange `json:"usernameChanges"`
	NicknameChanges []*NicknameChange `json:"nicknameChanges"`
	RoleChanges     []*RoleChange     `json:"roleChanges"`
	JoinLeaveEvents []*JoinLeaveEvent `json:"joinLeaveEvents"`
}

// Total returns the number of audit rows in the export.
func (e *UserExport) Total() int {
	return len(e.UsernameChanges) + len(e.NicknameChanges) + len(e.RoleChanges) + len(e.JoinLeaveEvents)
}
