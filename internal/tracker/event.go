package tracker

import "github.com/robalyx/sentinel/internal/database/types"

// EventKind identifies a live membership observation.
type EventKind int

const (
	// EventMemberUpdate carries a member's new state and, when cached, its previous one.
	EventMemberUpdate EventKind = iota
	// EventJoin records a member joining a guild.
	EventJoin
	// EventLeave records a member leaving a guild.
	EventLeave
	// EventRoleUpdate refreshes role definitions.
	EventRoleUpdate
)

// String returns the event kind name used in logs.
func (k EventKind) String() string {
	switch k {
	case EventMemberUpdate:
		return "member_update"
	case EventJoin:
		return "join"
	case EventLeave:
		return "leave"
	case EventRoleUpdate:
		return "role_update"
	default:
		return "unknown"
	}
}

// Event is one live observation waiting to be written.
type Event struct {
	Kind    EventKind
	GuildID uint64
	// Before is the previous member state, nil when the platform did not have it.
	Before *types.MemberSnapshot
	// After is the current member state for updates and joins.
	After *types.MemberSnapshot
	// User identifies the member for leaves.
	User *types.UserSnapshot
	// Roles holds role definitions for role updates.
	Roles []types.RoleSnapshot
}

// userID returns the member the event refers to, or zero.
func (e *Event) userID() uint64 {
	switch {
	case e.After != nil:
		return e.After.User.ID
	case e.User != nil:
		return e.User.ID
	default:
		return 0
	}
}
