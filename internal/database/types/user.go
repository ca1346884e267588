package types

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrScheduleNotFound = errors.New("scheduled message not found")
	ErrTooManyUsers     = errors.New("too many user IDs")
	ErrQueryTooShort    = errors.New("search query too short")
)

// MaxBulkUsers caps the number of users accepted by a bulk role lookup.
const MaxBulkUsers = 1000

// UserSnapshot is a platform user as observed at one instant.
type UserSnapshot struct {
	ID            uint64
	Username      string
	Discriminator string
	DisplayName   string
	AvatarURL     string
	IsBot         bool
	CreatedAt     time.Time
}

// RoleSnapshot is a guild role as observed at one instant.
type RoleSnapshot struct {
	ID            uint64
	GuildID       uint64
	Name          string
	Color         int
	Position      int
	Permissions   string
	IsHoisted     bool
	IsMentionable bool
}

// MemberSnapshot is a guild member as observed at one instant.
type MemberSnapshot struct {
	GuildID  uint64
	User     UserSnapshot
	Nickname string
	JoinedAt time.Time
	Roles    []RoleSnapshot
}

// RoleIDs returns the IDs of the snapshot's roles.
func (m *MemberSnapshot) RoleIDs() []uint64 {
	ids := make([]uint64, 0, len(m.Roles))
	for _, role := range m.Roles {
		ids = append(ids, role.ID)
	}
	return ids
}

// RoleChangeResult counts the rows written for one role diff.
type RoleChangeResult struct {
	Added   int
	Removed int
}
