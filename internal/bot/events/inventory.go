package events

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/bot/snapshot"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/pkg/utils"
)

const (
	// MaxMemberPage is the largest member page the API returns.
	MaxMemberPage = 1000
	// roleCacheTTL bounds how long fetched role lists are reused.
	roleCacheTTL = 5 * time.Minute
)

// GuildSource is the part of the REST client the inventory reads from.
type GuildSource interface {
	GetRoles(guildID snowflake.ID, opts ...rest.RequestOpt) ([]discord.Role, error)
	GetMembers(guildID snowflake.ID, limit int, after snowflake.ID, opts ...rest.RequestOpt) ([]discord.Member, error)
}

// Inventory lists guild roles and members through the REST API.
type Inventory struct {
	source GuildSource
	roles  *utils.TTLMap[uint64, []discord.Role]
}

// NewInventory creates a new REST backed inventory.
func NewInventory(ctx context.Context, source GuildSource) *Inventory {
	return &Inventory{
		source: source,
		roles:  utils.NewTTLMap[uint64, []discord.Role](ctx, roleCacheTTL),
	}
}

// Roles returns every role of the guild except @everyone.
func (i *Inventory) Roles(ctx context.Context, guildID uint64) ([]types.RoleSnapshot, error) {
	roles, err := i.fetchRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return snapshot.Roles(snowflake.ID(guildID), roles), nil
}

// Members returns up to limit members with IDs greater than after.
func (i *Inventory) Members(ctx context.Context, guildID, after uint64, limit int) ([]*types.MemberSnapshot, error) {
	members, err := i.page(ctx, guildID, after, limit)
	if err != nil {
		return nil, err
	}

	roles, err := i.fetchRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	lookup := snapshot.Lookup(roles)

	snaps := make([]*types.MemberSnapshot, 0, len(members))
	for _, member := range members {
		snaps = append(snaps, snapshot.Member(snowflake.ID(guildID), member, lookup))
	}
	return snaps, nil
}

// RoleMembers pages through the guild and returns the members holding the role.
func (i *Inventory) RoleMembers(ctx context.Context, guildID, roleID uint64) ([]discord.Member, error) {
	var (
		holders []discord.Member
		after   uint64
	)

	for {
		members, err := i.page(ctx, guildID, after, MaxMemberPage)
		if err != nil {
			return nil, err
		}

		for _, member := range members {
			if snapshot.HasRole(member, snowflake.ID(roleID)) {
				holders = append(holders, member)
			}
		}

		if len(members) < MaxMemberPage {
			return holders, nil
		}
		after = uint64(members[len(members)-1].User.ID)
	}
}

func (i *Inventory) page(ctx context.Context, guildID, after uint64, limit int) ([]discord.Member, error) {
	limit = min(max(limit, 1), MaxMemberPage)

	members, err := i.source.GetMembers(snowflake.ID(guildID), limit, snowflake.ID(after), rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get guild members: %w", err)
	}
	return members, nil
}

func (i *Inventory) fetchRoles(ctx context.Context, guildID uint64) ([]discord.Role, error) {
	if roles, ok := i.roles.Get(guildID); ok {
		return roles, nil
	}

	roles, err := i.source.GetRoles(snowflake.ID(guildID), rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get guild roles: %w", err)
	}

	i.roles.Set(guildID, roles)
	return roles, nil
}
