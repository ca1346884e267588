package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigs(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".toml"), []byte(content), 0o600))
	}

	return dir
}

func validConfigs() map[string]string {
	return map[string]string{
		"common": "[common]\nversion = 1\n\n[common.sqlite]\npath = \"/tmp/test.db\"\n",
		"bot":    "[bot]\nversion = 1\n\n[bot.discord]\ntoken = \"file-token\"\nguild_ids = [1, 2]\n",
		"api":    "[api]\nversion = 1\n\n[api.server]\nport = 9000\n",
	}
}

func TestLoadConfigFrom(t *testing.T) {
	t.Parallel()

	t.Run("valid files with defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := config.LoadConfigFrom(writeConfigs(t, validConfigs()))
		require.NoError(t, err)

		assert.Equal(t, "/tmp/test.db", cfg.Common.SQLite.Path)
		assert.Equal(t, "file-token", cfg.Bot.Discord.Token)
		assert.Equal(t, []uint64{1, 2}, cfg.Bot.Discord.GuildIDs)
		assert.Equal(t, 9000, cfg.API.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.API.Server.Host)
		assert.Equal(t, 50, cfg.Bot.Tracking.BatchSize)
		assert.Equal(t, 100, cfg.Bot.Tracking.BatchDelay)
		assert.Equal(t, 90, cfg.Bot.Retention.DefaultDays)
		assert.Equal(t, 7, cfg.Bot.Retention.MinimumDays)
		assert.Equal(t, "gpt-4o", cfg.Common.OpenAI.Model)
		assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.API.CORS.AllowedOrigins)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		files := validConfigs()
		delete(files, "api")

		_, err := config.LoadConfigFrom(writeConfigs(t, files))
		require.ErrorIs(t, err, config.ErrConfigFileNotFound)
	})

	t.Run("missing version", func(t *testing.T) {
		t.Parallel()

		files := validConfigs()
		files["bot"] = "[bot.discord]\ntoken = \"x\"\n"

		_, err := config.LoadConfigFrom(writeConfigs(t, files))
		require.ErrorIs(t, err, config.ErrConfigVersionMissing)
	})

	t.Run("version mismatch", func(t *testing.T) {
		t.Parallel()

		files := validConfigs()
		files["common"] = "[common]\nversion = 99\n"

		_, err := config.LoadConfigFrom(writeConfigs(t, files))
		require.ErrorIs(t, err, config.ErrConfigVersionMismatch)
	})
}

func TestEnvironmentOverride(t *testing.T) {
	dir := writeConfigs(t, validConfigs())

	t.Setenv("SENTINEL_BOT__DISCORD__TOKEN", "env-token")
	t.Setenv("SENTINEL_COMMON__SQLITE__PATH", "/data/env.db")

	cfg, err := config.LoadConfigFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Bot.Discord.Token)
	assert.Equal(t, "/data/env.db", cfg.Common.SQLite.Path)
	assert.Equal(t, 9000, cfg.API.Server.Port)
}
