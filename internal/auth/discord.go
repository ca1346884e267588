package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/sentinel/internal/setup/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DiscordAPIBase is the Discord REST API root.
const DiscordAPIBase = "https://discord.com/api"

var (
	ErrOAuthNotConfigured = errors.New("discord OAuth2 not configured")
	ErrExchangeFailed     = errors.New("failed to exchange Discord code")
	ErrDiscordRequest     = errors.New("failed to get user info from Discord")
	ErrNotInGuild         = errors.New("you must be a member of the required Discord server")
)

// DiscordUser is the subset of /users/@me used for sessions.
type DiscordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// UserID parses the snowflake ID.
func (u *DiscordUser) UserID() uint64 {
	id, _ := strconv.ParseUint(u.ID, 10, 64)
	return id
}

// AvatarURL returns the CDN avatar URL, or an empty string without an avatar.
func (u *DiscordUser) AvatarURL() string {
	if u.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", u.ID, u.Avatar)
}

// DiscordGuild is one entry of /users/@me/guilds.
type DiscordGuild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Identity is the result of a successful code exchange.
type Identity struct {
	User   DiscordUser
	Guilds []DiscordGuild
}

// InGuild reports whether the identity lists the guild.
func (i *Identity) InGuild(guildID uint64) bool {
	want := strconv.FormatUint(guildID, 10)
	for _, g := range i.Guilds {
		if g.ID == want {
			return true
		}
	}
	return false
}

// DiscordOAuth exchanges authorization codes for Discord identities.
type DiscordOAuth struct {
	oauth      *oauth2.Config
	apiBase    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDiscordOAuth creates an OAuth client. apiBase is normally DiscordAPIBase.
func NewDiscordOAuth(cfg *config.Auth, apiBase string, logger *zap.Logger) *DiscordOAuth {
	if apiBase == "" {
		apiBase = DiscordAPIBase
	}

	return &DiscordOAuth{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   apiBase + "/oauth2/authorize",
				TokenURL:  apiBase + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Named("discord_oauth"),
	}
}

// Configured reports whether client credentials are present.
func (d *DiscordOAuth) Configured() bool {
	return d.oauth.ClientID != "" && d.oauth.ClientSecret != ""
}

// Exchange trades the code for a token and loads the user and their guilds.
func (d *DiscordOAuth) Exchange(ctx context.Context, code string) (*Identity, error) {
	if !d.Configured() {
		return nil, ErrOAuthNotConfigured
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.httpClient)

	token, err := d.oauth.Exchange(ctx, code)
	if err != nil {
		d.logger.Warn("Discord token exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	client := d.oauth.Client(ctx, token)

	identity := &Identity{}
	if err := d.get(ctx, client, "/users/@me", &identity.User); err != nil {
		return nil, err
	}
	if err := d.get(ctx, client, "/users/@me/guilds", &identity.Guilds); err != nil {
		return nil, err
	}

	return identity, nil
}

func (d *DiscordOAuth) get(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDiscordRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDiscordRequest, err)
	}

	if resp.StatusCode != http.StatusOK {
		d.logger.Warn("Discord API request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: %s returned %d", ErrDiscordRequest, path, resp.StatusCode)
	}

	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDiscordRequest, err)
	}

	return nil
}
