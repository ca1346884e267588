package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v1.0.0"

// EnvPrefix marks environment variables that override file values.
// A double underscore separates nesting levels.
const EnvPrefix = "SENTINEL_"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
	CurrentAPIVersion    = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig `koanf:"common"`
	Bot    BotConfig    `koanf:"bot"`
	API    APIConfig    `koanf:"api"`
}

// CommonConfig contains configuration shared between the bot and the API.
type CommonConfig struct {
	// Version of the common config.
	Version int    `koanf:"version"`
	Debug   Debug  `koanf:"debug"`
	SQLite  SQLite `koanf:"sqlite"`
	Redis   Redis  `koanf:"redis"`
	OpenAI  OpenAI `koanf:"openai"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
}

// SQLite contains the embedded database configuration.
type SQLite struct {
	// Database file path, or ":memory:" for a private in-memory database.
	Path string `koanf:"path"`
	// Busy timeout in milliseconds.
	BusyTimeout int `koanf:"busy_timeout"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Use Redis for shared state instead of process memory.
	Enabled bool `koanf:"enabled"`
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// OpenAI contains vision model API configuration.
type OpenAI struct {
	// Base URL for the API
	BaseURL string `koanf:"base_url"`
	// API key for authentication
	APIKey string `koanf:"api_key"`
	// Model used for activity extraction
	Model string `koanf:"model"`
	// Maximum concurrent requests
	MaxConcurrent int64 `koanf:"max_concurrent"`
	// Request timeout in seconds
	RequestTimeout int `koanf:"request_timeout"`
}

// BotConfig contains Discord bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version    int        `koanf:"version"`
	Discord    Discord    `koanf:"discord"`
	Access     Access     `koanf:"access"`
	Tracking   Tracking   `koanf:"tracking"`
	Scheduler  Scheduler  `koanf:"scheduler"`
	Retention  Retention  `koanf:"retention"`
	RaidHelper RaidHelper `koanf:"raidhelper"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
	// Guilds that receive command registrations. Empty registers globally.
	GuildIDs []uint64 `koanf:"guild_ids"`
}

// Access lists who may run administrative commands.
type Access struct {
	AdminUserIDs []uint64 `koanf:"admin_user_ids"`
	AdminRoleIDs []uint64 `koanf:"admin_role_ids"`
	ModRoleIDs   []uint64 `koanf:"mod_role_ids"`
}

// Tracking configures the startup inventory and the live event queue.
type Tracking struct {
	// Members processed per inventory batch.
	BatchSize int `koanf:"batch_size"`
	// Pause between inventory batches in milliseconds.
	BatchDelay int `koanf:"batch_delay"`
	// Capacity of the live event queue.
	EventBuffer int `koanf:"event_buffer"`
}

// Scheduler configures the scheduled message worker.
type Scheduler struct {
	// Tick interval in seconds.
	Interval int `koanf:"interval"`
	// Consecutive failures before a message is deactivated.
	MaxFailures int `koanf:"max_failures"`
	// Base retry delay after a failed send in seconds.
	RetryDelay int `koanf:"retry_delay"`
}

// Retention configures audit data cleanup and exports.
type Retention struct {
	DefaultDays int `koanf:"default_days"`
	MinimumDays int `koanf:"minimum_days"`
	// Directory for user data exports.
	ExportDir string `koanf:"export_dir"`
}

// RaidHelper contains the event signup API configuration.
type RaidHelper struct {
	APIKey   string `koanf:"api_key"`
	ServerID uint64 `koanf:"server_id"`
	BaseURL  string `koanf:"base_url"`
}

// APIConfig contains REST API specific configuration.
type APIConfig struct {
	// Version of the api config.
	Version   int       `koanf:"version"`
	Server    Server    `koanf:"server"`
	CORS      CORS      `koanf:"cors"`
	RateLimit RateLimit `koanf:"ratelimit"`
	Auth      Auth      `koanf:"auth"`
	Filters   Filters   `koanf:"filters"`
}

// Server contains the HTTP listener configuration.
type Server struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// CORS lists the browser origins allowed to call the API.
type CORS struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// RateLimit configures per-client request limits.
type RateLimit struct {
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	BurstSize         int     `koanf:"burst_size"`
	// Violations in a row before the client is blocked.
	StrikeLimit int `koanf:"strike_limit"`
	// Block duration in seconds.
	BlockDuration int `koanf:"block_duration"`
}

// Auth configures Discord login and dashboard sessions.
type Auth struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURI  string `koanf:"redirect_uri"`
	JWTSecret    string `koanf:"jwt_secret"`
	// Session token lifetime in hours.
	TokenTTL int `koanf:"token_ttl"`
	// One-time authorization code memory in seconds.
	CodeTTL int `koanf:"code_ttl"`
	// Guild whose roles decide dashboard access.
	RequiredGuildID uint64   `koanf:"required_guild_id"`
	AdminRoleIDs    []uint64 `koanf:"admin_role_ids"`
	AdminUserIDs    []uint64 `koanf:"admin_user_ids"`
	GuestUserIDs    []uint64 `koanf:"guest_user_ids"`
	AllowedRoleIDs  []uint64 `koanf:"allowed_role_ids"`
}

// Filters configures the role filters offered by the dashboard.
type Filters struct {
	RoleNames   []string `koanf:"role_names"`
	DefaultRole string   `koanf:"default_role"`
}

// LoadConfig loads the configuration from the config files and the environment.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".sentinel",
		homeDir + "/.sentinel/config",
		"/etc/sentinel/config",
		"/app/config",
		"config",
		".",
	}

	// Load all config files
	var usedConfigPath string

	configFiles := []string{"common", "bot", "api"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	config, err := finalize(k)
	if err != nil {
		return nil, "", err
	}

	return config, usedConfigPath, nil
}

// LoadConfigFrom loads the configuration from a single directory.
func LoadConfigFrom(dir string) (*Config, error) {
	k := koanf.New(".")

	for _, configName := range []string{"common", "bot", "api"} {
		configPath := fmt.Sprintf("%s/%s.toml", dir, configName)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	return finalize(k)
}

// finalize applies the environment overlay, unmarshals and validates versions.
func finalize(k *koanf.Koanf) (*Config, error) {
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, err
	}

	if err := checkConfigVersion("api", config.API.Version, CurrentAPIVersion); err != nil {
		return nil, err
	}

	config.applyDefaults()

	return &config, nil
}

// envKey maps SENTINEL_BOT__DISCORD__TOKEN to bot.discord.token.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// applyDefaults fills values left unset by the config files.
func (c *Config) applyDefaults() {
	if c.Common.SQLite.Path == "" {
		c.Common.SQLite.Path = "./data/tracking.db"
	}
	if c.Common.OpenAI.Model == "" {
		c.Common.OpenAI.Model = "gpt-4o"
	}
	if c.Common.OpenAI.MaxConcurrent <= 0 {
		c.Common.OpenAI.MaxConcurrent = 2
	}
	if c.Common.OpenAI.RequestTimeout <= 0 {
		c.Common.OpenAI.RequestTimeout = 60
	}

	if c.Bot.Tracking.BatchSize <= 0 {
		c.Bot.Tracking.BatchSize = 50
	}
	if c.Bot.Tracking.BatchDelay <= 0 {
		c.Bot.Tracking.BatchDelay = 100
	}
	if c.Bot.Tracking.EventBuffer <= 0 {
		c.Bot.Tracking.EventBuffer = 1024
	}
	if c.Bot.Scheduler.Interval <= 0 {
		c.Bot.Scheduler.Interval = 60
	}
	if c.Bot.Scheduler.MaxFailures <= 0 {
		c.Bot.Scheduler.MaxFailures = 5
	}
	if c.Bot.Scheduler.RetryDelay <= 0 {
		c.Bot.Scheduler.RetryDelay = 60
	}
	if c.Bot.Retention.DefaultDays <= 0 {
		c.Bot.Retention.DefaultDays = 90
	}
	if c.Bot.Retention.MinimumDays <= 0 {
		c.Bot.Retention.MinimumDays = 7
	}
	if c.Bot.Retention.ExportDir == "" {
		c.Bot.Retention.ExportDir = "./data/exports"
	}
	if c.Bot.RaidHelper.BaseURL == "" {
		c.Bot.RaidHelper.BaseURL = "https://raid-helper.dev"
	}

	if c.API.Server.Host == "" {
		c.API.Server.Host = "0.0.0.0"
	}
	if c.API.Server.Port == 0 {
		c.API.Server.Port = 8000
	}
	if len(c.API.CORS.AllowedOrigins) == 0 {
		c.API.CORS.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	}
	if c.API.RateLimit.RequestsPerSecond <= 0 {
		c.API.RateLimit.RequestsPerSecond = 10
	}
	if c.API.RateLimit.BurstSize <= 0 {
		c.API.RateLimit.BurstSize = 30
	}
	if c.API.RateLimit.StrikeLimit <= 0 {
		c.API.RateLimit.StrikeLimit = 10
	}
	if c.API.RateLimit.BlockDuration <= 0 {
		c.API.RateLimit.BlockDuration = 60
	}
	if c.API.Filters.DefaultRole == "" {
		c.API.Filters.DefaultRole = "all"
	}
	if c.API.Auth.TokenTTL <= 0 {
		c.API.Auth.TokenTTL = 24
	}
	if c.API.Auth.CodeTTL <= 0 {
		c.API.Auth.CodeTTL = 300
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/sentinel/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
