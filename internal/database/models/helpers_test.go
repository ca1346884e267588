package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testGuild = uint64(100)
	roleRed   = uint64(10)
	roleBlue  = uint64(11)
	roleGreen = uint64(12)
)

// newTestDB opens a migrated in-memory database.
func newTestDB(t *testing.T) database.Client {
	t.Helper()

	db, err := database.NewConnection(context.Background(), &config.SQLite{Path: database.MemoryPath}, zap.NewNop(), true)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func testRole(id uint64, name string) types.RoleSnapshot {
	return types.RoleSnapshot{
		ID:          id,
		GuildID:     testGuild,
		Name:        name,
		Color:       int(id) * 1000,
		Position:    int(id),
		Permissions: "0",
	}
}

func testMember(userID uint64, username, nickname string, roles ...types.RoleSnapshot) *types.MemberSnapshot {
	return &types.MemberSnapshot{
		GuildID: testGuild,
		User: types.UserSnapshot{
			ID:            userID,
			Username:      username,
			Discriminator: "0",
			DisplayName:   username,
			CreatedAt:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Nickname: nickname,
		JoinedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Roles:    roles,
	}
}
