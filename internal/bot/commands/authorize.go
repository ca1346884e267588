package commands

import (
	"slices"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/sentinel/internal/setup/config"
)

// Authorizer decides who may run administrative commands.
type Authorizer struct {
	users []uint64
	roles []uint64
}

// NewAuthorizer creates an authorizer from the access configuration.
func NewAuthorizer(cfg *config.Access) *Authorizer {
	roles := make([]uint64, 0, len(cfg.AdminRoleIDs)+len(cfg.ModRoleIDs))
	roles = append(roles, cfg.AdminRoleIDs...)
	roles = append(roles, cfg.ModRoleIDs...)

	return &Authorizer{
		users: cfg.AdminUserIDs,
		roles: roles,
	}
}

// Allowed reports whether the user is a configured admin, holds an admin or
// moderator role, or has the Administrator permission in the guild.
func (a *Authorizer) Allowed(userID uint64, roleIDs []uint64, permissions discord.Permissions) bool {
	if slices.Contains(a.users, userID) {
		return true
	}
	if permissions.Has(discord.PermissionAdministrator) {
		return true
	}
	for _, roleID := range roleIDs {
		if slices.Contains(a.roles, roleID) {
			return true
		}
	}
	return false
}
