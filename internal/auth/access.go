package auth

import (
	"slices"

	"github.com/robalyx/sentinel/internal/setup/config"
)

// Access is what a user may do on the dashboard.
type Access struct {
	IsAdmin          bool
	IsGuest          bool
	HasWebsiteAccess bool
}

// Policy decides access from configured user and role lists.
type Policy struct {
	adminUsers   []uint64
	adminRoles   []uint64
	guestUsers   []uint64
	allowedRoles []uint64
}

// NewPolicy creates a policy from the API auth configuration.
func NewPolicy(cfg *config.Auth) *Policy {
	return &Policy{
		adminUsers:   cfg.AdminUserIDs,
		adminRoles:   cfg.AdminRoleIDs,
		guestUsers:   cfg.GuestUserIDs,
		allowedRoles: cfg.AllowedRoleIDs,
	}
}

// IsPrivileged reports whether the user is an admin or guest by user ID.
// Privileged users skip the guild membership check.
func (p *Policy) IsPrivileged(userID uint64) bool {
	return slices.Contains(p.adminUsers, userID) || slices.Contains(p.guestUsers, userID)
}

// Evaluate computes the access of a user holding the given roles. Admins and
// guests always get website access. Others need an allowed role, or any role
// at all when no allowed roles are configured.
func (p *Policy) Evaluate(userID uint64, roleIDs []uint64) Access {
	access := Access{
		IsAdmin: slices.Contains(p.adminUsers, userID) || containsAny(p.adminRoles, roleIDs),
		IsGuest: slices.Contains(p.guestUsers, userID),
	}

	switch {
	case access.IsAdmin || access.IsGuest:
		access.HasWebsiteAccess = true
	case len(p.allowedRoles) > 0:
		access.HasWebsiteAccess = containsAny(p.allowedRoles, roleIDs)
	default:
		access.HasWebsiteAccess = len(roleIDs) > 0
	}

	return access
}

func containsAny(set, ids []uint64) bool {
	for _, id := range ids {
		if slices.Contains(set, id) {
			return true
		}
	}
	return false
}
