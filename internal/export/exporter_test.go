package export_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/export"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) database.Client {
	t.Helper()

	db, err := database.NewConnection(context.Background(), &config.SQLite{Path: database.MemoryPath}, zap.NewNop(), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func seedHistory(t *testing.T, db database.Client, userID uint64) {
	t.Helper()

	ctx := context.Background()
	svc := db.Service().Tracking()
	role := types.RoleSnapshot{ID: 10, GuildID: 1, Name: "Raider"}

	before := &types.MemberSnapshot{
		GuildID:  1,
		User:     types.UserSnapshot{ID: userID, Username: "alpha"},
		Nickname: "Al",
		JoinedAt: time.Now().UTC().Add(-time.Hour),
	}
	after := &types.MemberSnapshot{
		GuildID:  1,
		User:     types.UserSnapshot{ID: userID, Username: "beta"},
		Nickname: "Be",
		JoinedAt: before.JoinedAt,
		Roles:    []types.RoleSnapshot{role},
	}

	require.NoError(t, svc.Join(ctx, before))
	_, err := svc.ApplyMemberUpdate(ctx, before, after)
	require.NoError(t, err)
}

func TestExportUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedHistory(t, db, 42)

	dir := t.TempDir()
	result, err := export.New(db, zap.NewNop()).ExportUser(context.Background(), 42, dir)
	require.NoError(t, err)

	assert.Equal(t, "42", result.Summary.UserID)
	assert.Equal(t, 1, result.Summary.UsernameChanges)
	assert.Equal(t, 1, result.Summary.NicknameChanges)
	assert.Equal(t, 1, result.Summary.RoleChanges)
	assert.Equal(t, 1, result.Summary.JoinLeaveEvents)
	assert.Equal(t, 4, result.Summary.Total)
	assert.Equal(t, dir, filepath.Dir(result.DataPath))

	raw, err := os.ReadFile(result.SummaryPath)
	require.NoError(t, err)

	var summary export.Summary
	require.NoError(t, sonic.Unmarshal(raw, &summary))
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, filepath.Base(result.DataPath), summary.DataFile)

	loaded, err := export.ReadUserExport(result.DataPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), loaded.UserID)
	require.Len(t, loaded.UsernameChanges, 1)
	assert.Equal(t, "alpha", loaded.UsernameChanges[0].OldUsername)
	assert.Equal(t, "beta", loaded.UsernameChanges[0].NewUsername)
	require.Len(t, loaded.RoleChanges, 1)
	assert.Equal(t, uint64(10), loaded.RoleChanges[0].RoleID)
	assert.Equal(t, types.RoleActionAdded, loaded.RoleChanges[0].Action)
	require.Len(t, loaded.JoinLeaveEvents, 1)
	assert.Equal(t, types.JoinLeaveTypeJoin, loaded.JoinLeaveEvents[0].EventType)
	assert.WithinDuration(t,
		result.Data.UsernameChanges[0].ChangedAt, loaded.UsernameChanges[0].ChangedAt, time.Microsecond)
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	source := newTestDB(t)
	seedHistory(t, source, 7)

	result, err := export.New(source, zap.NewNop()).ExportUser(context.Background(), 7, t.TempDir())
	require.NoError(t, err)

	loaded, err := export.ReadUserExport(result.DataPath)
	require.NoError(t, err)

	target := newTestDB(t)
	imported, err := target.Model().Tracking().ImportUserData(context.Background(), loaded)
	require.NoError(t, err)
	assert.Equal(t, 4, imported)

	again, err := target.Model().Tracking().ExportUserData(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, result.Summary.Total, again.Total())
	assert.Equal(t, loaded.NicknameChanges[0].NewNickname, again.NicknameChanges[0].NewNickname)
}

func TestExportUserNoData(t *testing.T) {
	t.Parallel()

	_, err := export.New(newTestDB(t), zap.NewNop()).ExportUser(context.Background(), 99, t.TempDir())
	require.ErrorIs(t, err, export.ErrNoData)
}

func TestReadUserExportRejectsForeignFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.db")
	_, err := export.ReadUserExport(path)
	require.Error(t, err)
}
