package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerGetLoggers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manager := telemetry.NewManager(telemetry.ServiceBot, dir, &config.Debug{LogLevel: "debug", MaxLogsToKeep: 3})

	mainLogger, dbLogger, err := manager.GetLoggers()
	require.NoError(t, err)

	mainLogger.Info("hello")
	dbLogger.Info("query")
	require.NoError(t, dbLogger.Sync())

	sessionDir := manager.GetCurrentSessionDir()
	assert.FileExists(t, filepath.Join(sessionDir, "main.log"))
	assert.FileExists(t, filepath.Join(sessionDir, "database.log"))
	assert.NotEmpty(t, manager.GetInstanceID())
}

func TestManagerRotatesSessions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"2024-01-01_00-00-00", "2024-01-02_00-00-00", "2024-01-03_00-00-00"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	}

	manager := telemetry.NewManager(telemetry.ServiceAPI, dir, &config.Debug{LogLevel: "info", MaxLogsToKeep: 2})
	_, _, err := manager.GetLoggers()
	require.NoError(t, err)

	sessions, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestManagerRejectsInvalidLevel(t *testing.T) {
	t.Parallel()

	manager := telemetry.NewManager(telemetry.ServiceCLI, t.TempDir(), &config.Debug{LogLevel: "loud"})
	_, _, err := manager.GetLoggers()
	require.Error(t, err)
}
