package tracker_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	guildA = uint64(100)
	guildB = uint64(200)
)

var errGuildUnavailable = errors.New("guild unavailable")

// fakeInventory serves a fixed set of roles and members per guild.
type fakeInventory struct {
	roles   map[uint64][]types.RoleSnapshot
	members map[uint64][]*types.MemberSnapshot
	broken  map[uint64]bool
	pages   map[uint64]int
}

func (f *fakeInventory) Roles(_ context.Context, guildID uint64) ([]types.RoleSnapshot, error) {
	if f.broken[guildID] {
		return nil, errGuildUnavailable
	}
	return f.roles[guildID], nil
}

func (f *fakeInventory) Members(_ context.Context, guildID, after uint64, limit int) ([]*types.MemberSnapshot, error) {
	all := f.members[guildID]
	sort.Slice(all, func(i, j int) bool { return all[i].User.ID < all[j].User.ID })

	page := make([]*types.MemberSnapshot, 0, limit)
	for _, m := range all {
		if m.User.ID > after && len(page) < limit {
			// Copy so the tracker can't alter the fixture
			clone := *m
			clone.Roles = append([]types.RoleSnapshot(nil), m.Roles...)
			page = append(page, &clone)
		}
	}

	if f.pages != nil {
		f.pages[guildID]++
	}

	return page, nil
}

func newTestDB(t *testing.T) database.Client {
	t.Helper()

	db, err := database.NewConnection(context.Background(), &config.SQLite{Path: database.MemoryPath}, zap.NewNop(), true)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func role(guildID, id uint64, name string) types.RoleSnapshot {
	return types.RoleSnapshot{ID: id, GuildID: guildID, Name: name, Permissions: "0", Position: int(id % 10)}
}

func member(guildID, userID uint64, nickname string, roles ...types.RoleSnapshot) *types.MemberSnapshot {
	return &types.MemberSnapshot{
		GuildID:  guildID,
		User:     types.UserSnapshot{ID: userID, Username: "user" + string(rune('a'+userID%26)), Discriminator: "0"},
		Nickname: nickname,
		JoinedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Roles:    roles,
	}
}

func roleChangeCount(db database.Client, guildID uint64, action types.RoleAction) (int, error) {
	return db.DB().NewSelect().
		Model((*types.RoleChange)(nil)).
		Where("guild_id = ?", guildID).
		Where("action = ?", action).
		Count(context.Background())
}

func countRoleChanges(t *testing.T, db database.Client, guildID uint64, action types.RoleAction) int {
	t.Helper()

	count, err := roleChangeCount(db, guildID, action)
	require.NoError(t, err)

	return count
}

func fixture() *fakeInventory {
	everyone := role(guildA, guildA, "@everyone")
	red := role(guildA, 11, "Red")
	blue := role(guildA, 12, "Blue")

	return &fakeInventory{
		roles: map[uint64][]types.RoleSnapshot{
			guildA: {everyone, red, blue},
			guildB: {role(guildB, guildB, "@everyone")},
		},
		members: map[uint64][]*types.MemberSnapshot{
			guildA: {
				member(guildA, 1, "", everyone, red),
				member(guildA, 2, "bee", everyone, red, blue),
				member(guildA, 3, ""),
				member(guildA, 4, "dee", blue),
				member(guildA, 5, ""),
			},
			guildB: {member(guildB, 1, "")},
		},
		pages: map[uint64]int{},
	}
}

func TestBootstrap(t *testing.T) {
	t.Parallel()

	t.Run("records roles and members", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := newTestDB(t)
		inv := fixture()
		tr := tracker.New(db, &config.Tracking{BatchSize: 2, BatchDelay: 1}, zap.NewNop())

		result, err := tr.Bootstrap(ctx, inv, []uint64{guildA, guildB})
		require.NoError(t, err)

		assert.Equal(t, 2, result.Guilds)
		assert.Equal(t, 2, result.Roles)
		assert.Equal(t, 6, result.Members)
		assert.Equal(t, 4, result.InitialRoles)
		assert.Zero(t, result.FailedMembers)
		assert.Equal(t, 3, inv.pages[guildA])

		assert.Equal(t, 4, countRoleChanges(t, db, guildA, types.RoleActionInitial))

		roles, err := db.Model().Stats().CurrentRoles(ctx, 2, guildA)
		require.NoError(t, err)
		require.Len(t, roles, 2)
		assert.Equal(t, uint64(12), roles[0].RoleID)
	})

	t.Run("second run is idempotent", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := newTestDB(t)
		tr := tracker.New(db, &config.Tracking{BatchSize: 50, BatchDelay: 1}, zap.NewNop())

		_, err := tr.Bootstrap(ctx, fixture(), []uint64{guildA})
		require.NoError(t, err)

		result, err := tr.Bootstrap(ctx, fixture(), []uint64{guildA})
		require.NoError(t, err)
		assert.Zero(t, result.InitialRoles)
		assert.Equal(t, 4, countRoleChanges(t, db, guildA, types.RoleActionInitial))
	})

	t.Run("a broken guild does not stop the others", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := newTestDB(t)
		inv := fixture()
		inv.broken = map[uint64]bool{guildB: true}
		tr := tracker.New(db, &config.Tracking{BatchSize: 50, BatchDelay: 1}, zap.NewNop())

		result, err := tr.Bootstrap(ctx, inv, []uint64{guildA, guildB})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Guilds)
		assert.Equal(t, 1, result.FailedGuilds)
		assert.Equal(t, 5, result.Members)
	})
}

func TestRunAppliesBufferedEventsAfterBootstrap(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	tr := tracker.New(db, &config.Tracking{BatchSize: 50, BatchDelay: 1, EventBuffer: 16}, zap.NewNop())

	red := role(guildA, 11, "Red")
	blue := role(guildA, 12, "Blue")
	green := role(guildA, 13, "Green")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Queued before the writer exists: member 2 gains Green, a new member joins and member 5 leaves
	updated := member(guildA, 2, "bee", red, blue, green)
	require.NoError(t, tr.Enqueue(ctx, tracker.Event{Kind: tracker.EventRoleUpdate, GuildID: guildA, Roles: []types.RoleSnapshot{green}}))
	require.NoError(t, tr.Enqueue(ctx, tracker.Event{Kind: tracker.EventMemberUpdate, GuildID: guildA, After: updated}))
	require.NoError(t, tr.Enqueue(ctx, tracker.Event{Kind: tracker.EventJoin, GuildID: guildA, After: member(guildA, 9, "")}))
	require.NoError(t, tr.Enqueue(ctx, tracker.Event{Kind: tracker.EventLeave, GuildID: guildA, User: &types.UserSnapshot{ID: 5}}))
	assert.Equal(t, 4, tr.Pending())

	go tr.Run(ctx, fixture(), []uint64{guildA})

	require.Eventually(t, func() bool {
		added, err := roleChangeCount(db, guildA, types.RoleActionAdded)
		if err != nil || added != 1 || tr.Pending() != 0 {
			return false
		}
		active, err := isActive(db, 5)
		return err == nil && !active
	}, 5*time.Second, 10*time.Millisecond)

	joined, err := isActive(db, 9)
	require.NoError(t, err)
	assert.True(t, joined)

	// The seeded roles stay initial; only Green counts as a change
	assert.Equal(t, 4, countRoleChanges(t, db, guildA, types.RoleActionInitial))

	history, err := db.Model().Stats().RoleHistory(ctx, 2, guildA)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Green", history[0].RoleName)

	cancel()
	select {
	case <-tr.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("tracker did not stop")
	}

	require.ErrorIs(t, tr.Enqueue(context.Background(), fillerEvents(t, tr)), tracker.ErrStopped)
}

func isActive(db database.Client, userID uint64) (bool, error) {
	var active bool
	err := db.DB().NewSelect().
		Table("guild_members").
		Column("is_active").
		Where("guild_id = ?", guildA).
		Where("user_id = ?", userID).
		Scan(context.Background(), &active)

	return active, err
}

// fillerEvents fills the queue so the next Enqueue has to wait and returns one more event.
func fillerEvents(t *testing.T, tr *tracker.Tracker) tracker.Event {
	t.Helper()

	ev := tracker.Event{Kind: tracker.EventRoleUpdate, GuildID: guildA}
	for tr.Pending() < 16 {
		require.NoError(t, tr.Enqueue(context.Background(), ev))
	}

	return ev
}

func TestEnqueueDropsWhenFullBeforeRun(t *testing.T) {
	t.Parallel()

	tr := tracker.New(newTestDB(t), &config.Tracking{EventBuffer: 2}, zap.NewNop())
	ev := tracker.Event{Kind: tracker.EventRoleUpdate, GuildID: guildA}

	require.NoError(t, tr.Enqueue(context.Background(), ev))
	require.NoError(t, tr.Enqueue(context.Background(), ev))

	errs := make(chan error, 1)
	go func() { errs <- tr.Enqueue(context.Background(), ev) }()

	select {
	case err := <-errs:
		require.ErrorIs(t, err, tracker.ErrQueueFull)
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue blocked before the writer started")
	}
	assert.Equal(t, 2, tr.Pending())
}

func TestApplyRejectsIncompleteEvents(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	tr := tracker.New(db, &config.Tracking{}, zap.NewNop())

	require.Error(t, tr.Apply(context.Background(), tracker.Event{Kind: tracker.EventJoin, GuildID: guildA}))
	require.Error(t, tr.Apply(context.Background(), tracker.Event{Kind: tracker.EventLeave, GuildID: guildA}))
	require.NoError(t, tr.Apply(context.Background(), tracker.Event{Kind: tracker.EventRoleUpdate, GuildID: guildA}))
}
