package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/bot/events"
	"github.com/robalyx/sentinel/internal/bot/snapshot"
	"github.com/robalyx/sentinel/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const guildID = snowflake.ID(900000000000000001)

var errQueueFull = errors.New("queue full")

type recorder struct {
	mu     sync.Mutex
	events []tracker.Event
	err    error
}

func (r *recorder) Enqueue(_ context.Context, ev tracker.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func newMember(id snowflake.ID, name string, roles ...snowflake.ID) discord.Member {
	return discord.Member{
		User:     discord.User{ID: id, Username: name},
		RoleIDs:  roles,
		JoinedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMemberEventHandler(t *testing.T) {
	t.Parallel()

	raider := discord.Role{ID: 11, Name: "Raider", Color: 0xff0000}
	lookup := snapshot.Lookup([]discord.Role{raider})

	t.Run("join", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		h := events.NewMemberEventHandler(t.Context(), rec, lookup, zap.NewNop())
		h.HandleJoin(guildID, newMember(42, "alice", 11))

		require.Len(t, rec.events, 1)
		ev := rec.events[0]
		assert.Equal(t, tracker.EventJoin, ev.Kind)
		assert.Equal(t, uint64(guildID), ev.GuildID)
		require.NotNil(t, ev.After)
		assert.Equal(t, "alice", ev.After.User.Username)
		require.Len(t, ev.After.Roles, 1)
		assert.Equal(t, "Raider", ev.After.Roles[0].Name)
	})

	t.Run("update without cached member", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		h := events.NewMemberEventHandler(t.Context(), rec, lookup, zap.NewNop())
		h.HandleUpdate(guildID, nil, newMember(42, "alice"))

		require.Len(t, rec.events, 1)
		assert.Equal(t, tracker.EventMemberUpdate, rec.events[0].Kind)
		assert.Nil(t, rec.events[0].Before)
	})

	t.Run("update with cached member", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		h := events.NewMemberEventHandler(t.Context(), rec, lookup, zap.NewNop())
		old := newMember(42, "alice")
		h.HandleUpdate(guildID, &old, newMember(42, "alice", 11))

		require.Len(t, rec.events, 1)
		require.NotNil(t, rec.events[0].Before)
		assert.Empty(t, rec.events[0].Before.Roles)
		assert.Len(t, rec.events[0].After.Roles, 1)
	})

	t.Run("leave", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		h := events.NewMemberEventHandler(t.Context(), rec, lookup, zap.NewNop())
		h.HandleLeave(guildID, discord.User{ID: 42, Username: "alice"})

		require.Len(t, rec.events, 1)
		assert.Equal(t, tracker.EventLeave, rec.events[0].Kind)
		require.NotNil(t, rec.events[0].User)
		assert.Equal(t, uint64(42), rec.events[0].User.ID)
	})

	t.Run("roles skip everyone", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		h := events.NewMemberEventHandler(t.Context(), rec, lookup, zap.NewNop())
		h.HandleRoles(guildID, []discord.Role{{ID: guildID, Name: "@everyone"}})
		assert.Empty(t, rec.events)

		h.HandleRoles(guildID, []discord.Role{raider})
		require.Len(t, rec.events, 1)
		assert.Equal(t, tracker.EventRoleUpdate, rec.events[0].Kind)
		assert.Equal(t, uint64(guildID), rec.events[0].Roles[0].GuildID)
	})

	t.Run("queue errors are logged", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{err: errQueueFull}
		h := events.NewMemberEventHandler(t.Context(), rec, lookup, zap.NewNop())
		assert.NotPanics(t, func() { h.HandleJoin(guildID, newMember(42, "alice")) })
	})
}

func TestGuilds(t *testing.T) {
	t.Parallel()

	h := events.NewMemberEventHandler(t.Context(), &recorder{}, nil, zap.NewNop())
	h.AddGuild(1)
	h.AddGuild(2)
	h.AddGuild(1)

	assert.Equal(t, []uint64{1, 2}, h.Guilds())
}

type fakeSource struct {
	roles      []discord.Role
	members    []discord.Member
	roleCalls  int
	pageLimits []int
}

func (f *fakeSource) GetRoles(_ snowflake.ID, _ ...rest.RequestOpt) ([]discord.Role, error) {
	f.roleCalls++
	return f.roles, nil
}

func (f *fakeSource) GetMembers(
	_ snowflake.ID, limit int, after snowflake.ID, _ ...rest.RequestOpt,
) ([]discord.Member, error) {
	f.pageLimits = append(f.pageLimits, limit)

	var page []discord.Member
	for _, member := range f.members {
		if member.User.ID > after && len(page) < limit {
			page = append(page, member)
		}
	}
	return page, nil
}

func TestInventory(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		roles: []discord.Role{
			{ID: guildID, Name: "@everyone"},
			{ID: 11, Name: "Raider"},
		},
	}
	for i := range 1500 {
		id := snowflake.ID(1000 + i)
		if i%2 == 0 {
			source.members = append(source.members, newMember(id, "raider", 11))
		} else {
			source.members = append(source.members, newMember(id, "member"))
		}
	}

	inventory := events.NewInventory(t.Context(), source)

	roles, err := inventory.Roles(t.Context(), uint64(guildID))
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "Raider", roles[0].Name)

	members, err := inventory.Members(t.Context(), uint64(guildID), 0, 5000)
	require.NoError(t, err)
	assert.Len(t, members, events.MaxMemberPage)
	assert.Equal(t, "Raider", members[0].Roles[0].Name)
	assert.Equal(t, 1, source.roleCalls, "roles are cached between calls")

	holders, err := inventory.RoleMembers(t.Context(), uint64(guildID), 11)
	require.NoError(t, err)
	assert.Len(t, holders, 750)
	assert.Equal(t, []int{1000, 1000, 1000}, source.pageLimits)
}
