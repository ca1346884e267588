package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/auth"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const guildID = 500

type fakeRoles map[uint64][]*types.CurrentRole

func (f fakeRoles) CurrentRoles(_ context.Context, userID, gid uint64) ([]*types.CurrentRole, error) {
	if gid != guildID {
		return nil, errors.New("unexpected guild")
	}
	return f[userID], nil
}

func newDiscordServer(t *testing.T, userJSON, guildsJSON string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(userJSON))
	})
	mux.HandleFunc("/users/@me/guilds", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(guildsJSON))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func newAuthenticator(t *testing.T, apiBase string, cfg *config.Auth, roles fakeRoles) *auth.Authenticator {
	t.Helper()

	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	cfg.RequiredGuildID = guildID

	issuer, err := auth.NewIssuer("jwt-secret", time.Hour)
	require.NoError(t, err)

	return auth.NewAuthenticator(
		auth.NewMemoryCodeStore(t.Context(), time.Minute),
		auth.NewDiscordOAuth(cfg, apiBase, zap.NewNop()),
		roles,
		auth.NewPolicy(cfg),
		issuer,
		cfg.RequiredGuildID,
		zap.NewNop(),
	)
}

func TestAuthenticatorLogin(t *testing.T) {
	t.Parallel()

	t.Run("member with allowed role", func(t *testing.T) {
		t.Parallel()

		server := newDiscordServer(t,
			`{"id":"42","username":"alice","discriminator":"0","avatar":"abc"}`,
			`[{"id":"500","name":"Guild"}]`)
		authenticator := newAuthenticator(t, server.URL, &config.Auth{AllowedRoleIDs: []uint64{7}}, fakeRoles{
			42: {{UserID: 42, RoleID: 7, Name: "Raider", Color: 0xff0000, Position: 2}},
		})

		session, err := authenticator.Login(context.Background(), "good")
		require.NoError(t, err)
		assert.Equal(t, "42", session.Claims.UserID)
		assert.Equal(t, "https://cdn.discordapp.com/avatars/42/abc.png", session.Claims.AvatarURL)
		assert.True(t, session.Claims.HasWebsiteAccess)
		assert.False(t, session.Claims.IsAdmin)
		require.Len(t, session.Claims.Roles, 1)
		assert.Equal(t, "#ff0000", session.Claims.Roles[0].Color)

		claims, err := authenticator.Verify(session.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Username)

		_, err = authenticator.Login(context.Background(), "good")
		require.ErrorIs(t, err, auth.ErrCodeAlreadyUsed)
	})

	t.Run("outside required guild", func(t *testing.T) {
		t.Parallel()

		server := newDiscordServer(t,
			`{"id":"42","username":"alice","discriminator":"0","avatar":null}`,
			`[{"id":"999","name":"Other"}]`)
		authenticator := newAuthenticator(t, server.URL, &config.Auth{}, fakeRoles{})

		_, err := authenticator.Login(context.Background(), "good")
		require.ErrorIs(t, err, auth.ErrNotInGuild)
	})

	t.Run("guest bypasses guild check", func(t *testing.T) {
		t.Parallel()

		server := newDiscordServer(t,
			`{"id":"42","username":"alice","discriminator":"0","avatar":null}`,
			`[]`)
		authenticator := newAuthenticator(t, server.URL, &config.Auth{GuestUserIDs: []uint64{42}}, fakeRoles{})

		session, err := authenticator.Login(context.Background(), "good")
		require.NoError(t, err)
		assert.True(t, session.Claims.IsGuest)
		assert.True(t, session.Claims.HasWebsiteAccess)
		assert.Empty(t, session.Claims.AvatarURL)
	})

	t.Run("bad code", func(t *testing.T) {
		t.Parallel()

		server := newDiscordServer(t, `{}`, `[]`)
		authenticator := newAuthenticator(t, server.URL, &config.Auth{}, fakeRoles{})

		_, err := authenticator.Login(context.Background(), "bad")
		require.ErrorIs(t, err, auth.ErrExchangeFailed)
	})

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()

		oauth := auth.NewDiscordOAuth(&config.Auth{}, "http://127.0.0.1:1", zap.NewNop())
		_, err := oauth.Exchange(context.Background(), "good")
		require.ErrorIs(t, err, auth.ErrOAuthNotConfigured)
	})
}

func TestHexColor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "#99aab5", auth.HexColor(0))
	assert.Equal(t, "#00ff00", auth.HexColor(0x00ff00))
	assert.Equal(t, "#0000ff", auth.HexColor(255))
}
