package types

import "time"

// Snowflake IDs are serialized as strings so browsers keep full precision.

// UserStats is the response of GET /api/users/:id/stats.
type UserStats struct {
	UserID          string     `json:"user_id"`
	Username        string     `json:"username"`
	DisplayName     string     `json:"display_name"`
	AvatarURL       *string    `json:"avatar_url"`
	UsernameChanges int        `json:"username_changes"`
	NicknameChanges int        `json:"nickname_changes"`
	RoleChanges     int        `json:"role_changes"`
	LastActivity    *time.Time `json:"last_activity"`
}

// ServerStats is the response of GET /api/servers/:id/stats.
type ServerStats struct {
	TotalUsers           int `json:"total_users"`
	TotalUsernameChanges int `json:"total_username_changes"`
	TotalNicknameChanges int `json:"total_nickname_changes"`
	TotalRoleChanges     int `json:"total_role_changes"`
	NewMembers24h        int `json:"new_members_24h"`
	LeftMembers24h       int `json:"left_members_24h"`
	NameChanges24h       int `json:"name_changes_24h"`
}

// ChangeEvent is one entry of the recent-changes feed.
type ChangeEvent struct {
	Type        string    `json:"type"`
	UserID      string    `json:"user_id"`
	OldValue    *string   `json:"old_value"`
	NewValue    *string   `json:"new_value"`
	Timestamp   time.Time `json:"timestamp"`
	Username    *string   `json:"username"`
	DisplayName *string   `json:"display_name"`
	RoleID      *string   `json:"role_id"`
	RoleName    *string   `json:"role_name"`
	RoleColor   *int      `json:"role_color"`
	Action      *string   `json:"action"`
}

// RoleChange is one entry of a user's role history.
type RoleChange struct {
	RoleID    string    `json:"role_id"`
	RoleName  string    `json:"role_name"`
	RoleColor int       `json:"role_color"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// WeeklyActivityDay is the change count of one weekday.
type WeeklyActivityDay struct {
	Name    string `json:"name"`
	Changes int    `json:"changes"`
}

// DatabaseStats is the response of GET /api/admin/database-stats.
type DatabaseStats struct {
	UserCount       int `json:"user_count"`
	UsernameChanges int `json:"username_changes"`
	NicknameChanges int `json:"nickname_changes"`
	RoleChanges     int `json:"role_changes"`
	JoinLeaveEvents int `json:"join_leave_events"`
}

// CurrentRole is a role a member currently holds.
type CurrentRole struct {
	RoleID   string `json:"role_id"`
	RoleName string `json:"role_name"`
	Color    string `json:"color"`
	Position int    `json:"position"`
}

// UserSummary is a user row in search results and guild listings.
type UserSummary struct {
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	AvatarURL   *string    `json:"avatar_url"`
	Nickname    *string    `json:"nickname"`
	IsActive    bool       `json:"is_active"`
	JoinedAt    *time.Time `json:"joined_at"`
	LastSeen    *time.Time `json:"last_seen"`
}

// RoleFilter is an option of the dashboard role filter.
type RoleFilter struct {
	RoleID    string `json:"role_id"`
	RoleName  string `json:"role_name"`
	RoleColor string `json:"role_color"`
}

// RoleFilters is the response of GET /api/servers/:id/role-filters.
type RoleFilters struct {
	Filters       []RoleFilter `json:"filters"`
	DefaultFilter string       `json:"default_filter"`
}

// DebugUser is a row of the users table.
type DebugUser struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// DebugUsers is the response of GET /api/debug/users.
type DebugUsers struct {
	UsersTable       []DebugUser `json:"users_table"`
	MissingFromUsers []string    `json:"missing_from_users"`
}

// FixMissingUsers is the response of POST /api/debug/fix-missing-users.
type FixMissingUsers struct {
	FixedUsers   int      `json:"fixed_users"`
	MissingUsers []string `json:"missing_users"`
}

// AuthCallbackRequest is the body of POST /api/auth/discord/callback.
type AuthCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// AuthRole is a role carried by a session.
type AuthRole struct {
	RoleID   string `json:"role_id"`
	RoleName string `json:"role_name"`
	Color    string `json:"color"`
	Position int    `json:"position"`
}

// AuthUser is the authenticated user as seen by the dashboard.
type AuthUser struct {
	UserID           string     `json:"user_id"`
	Username         string     `json:"username"`
	Discriminator    string     `json:"discriminator"`
	AvatarURL        *string    `json:"avatar_url"`
	Roles            []AuthRole `json:"roles"`
	IsAdmin          bool       `json:"is_admin"`
	IsGuest          bool       `json:"is_guest"`
	HasWebsiteAccess bool       `json:"has_website_access"`
}

// AuthCallbackResponse is returned after a successful login.
type AuthCallbackResponse struct {
	Token string    `json:"token"`
	User  *AuthUser `json:"user"`
}

// Health is the response of GET /health.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Index is the response of GET /.
type Index struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}
