package tracker

import (
	"context"

	"github.com/robalyx/sentinel/internal/database/types"
)

// Inventory lists the current roles and members of a guild.
type Inventory interface {
	// Roles returns every role of the guild.
	Roles(ctx context.Context, guildID uint64) ([]types.RoleSnapshot, error)
	// Members returns up to limit members with IDs greater than after, in ID order.
	Members(ctx context.Context, guildID, after uint64, limit int) ([]*types.MemberSnapshot, error)
}

// BootstrapResult counts what one startup inventory wrote.
type BootstrapResult struct {
	DuplicatesRemoved int
	Guilds            int
	Roles             int
	Members           int
	InitialRoles      int
	FailedMembers     int
	FailedGuilds      int
}
