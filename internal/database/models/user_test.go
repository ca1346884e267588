package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.Model().Tracking().UpsertMember(ctx, testMember(1, "Alice", "")))
	require.NoError(t, db.Model().Tracking().UpsertMember(ctx, testMember(2, "bob", "Raider_Bob")))
	require.NoError(t, db.Model().Tracking().UpsertMember(ctx, testMember(3, "carol", "")))
	_, err := db.Model().Tracking().LogInitialRoles(ctx, testGuild, 3, []types.RoleSnapshot{testRole(roleRed, "Officer")})
	require.NoError(t, err)

	tests := []struct {
		name       string
		query      string
		roleFilter string
		wantIDs    []uint64
		wantErr    error
	}{
		{name: "case insensitive username", query: "ALI", wantIDs: []uint64{1}},
		{name: "nickname", query: "raider", wantIDs: []uint64{2}},
		{name: "role name", query: "offic", wantIDs: []uint64{3}},
		{name: "underscore is literal", query: "a_i", wantIDs: nil},
		{name: "role filter", query: "ca", roleFilter: "officer", wantIDs: []uint64{3}},
		{name: "role filter excludes", query: "bo", roleFilter: "officer", wantIDs: nil},
		{name: "too short", query: "a", wantErr: types.ErrQueryTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			results, err := db.Model().User().SearchUsers(ctx, tt.query, 0, tt.roleFilter, 20)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			var ids []uint64
			for _, result := range results {
				ids = append(ids, result.UserID)
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestMemberState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)

	state, err := db.Model().User().GetMemberState(ctx, testGuild, 1)
	require.NoError(t, err)
	assert.False(t, state.Known)

	require.NoError(t, db.Model().Tracking().UpsertMember(ctx, testMember(1, "alice", "ali")))
	_, err = db.Model().Tracking().LogInitialRoles(ctx, testGuild, 1,
		[]types.RoleSnapshot{testRole(roleBlue, "Blue"), testRole(roleRed, "Red")})
	require.NoError(t, err)

	state, err = db.Model().User().GetMemberState(ctx, testGuild, 1)
	require.NoError(t, err)
	assert.True(t, state.Known)
	assert.Equal(t, "alice", state.Username)
	assert.Equal(t, "ali", state.Nickname)
	assert.Equal(t, []uint64{roleRed, roleBlue}, state.RoleIDs)
}

func TestFixMissingUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)

	for _, member := range []*types.GuildMember{
		{GuildID: testGuild, UserID: 8, Nickname: "Nick", JoinedAt: time.Now().UTC(), IsActive: true},
		{GuildID: testGuild, UserID: 9, JoinedAt: time.Now().UTC(), IsActive: true},
	} {
		_, err := db.DB().NewInsert().Model(member).Exec(ctx)
		require.NoError(t, err)
	}

	missing, err := db.Model().User().MissingUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{8, 9}, missing)

	fixed, err := db.Model().User().FixMissingUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fixed)

	nick, err := db.Model().User().GetUser(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "Nick", nick.Username)

	placeholder, err := db.Model().User().GetUser(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "User_9", placeholder.Username)

	missing, err = db.Model().User().MissingUserIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)
}
