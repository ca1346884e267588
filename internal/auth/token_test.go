package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/robalyx/sentinel/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer(t *testing.T) {
	t.Parallel()

	_, err := auth.NewIssuer("", time.Hour)
	require.ErrorIs(t, err, auth.ErrNoSecret)

	t.Run("issue and verify", func(t *testing.T) {
		t.Parallel()

		issuer, err := auth.NewIssuer("secret", 0)
		require.NoError(t, err)

		claims := &auth.Claims{
			UserID:           "42",
			Username:         "alice",
			Roles:            []auth.RoleClaim{{RoleID: "7", RoleName: "Raider", Color: "#ff0000", Position: 3}},
			HasWebsiteAccess: true,
		}
		token, err := issuer.Issue(claims)
		require.NoError(t, err)
		require.NotNil(t, claims.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(auth.DefaultTokenTTL), claims.ExpiresAt.Time, time.Minute)

		verified, err := issuer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "42", verified.UserID)
		assert.Equal(t, claims.Roles, verified.Roles)
		assert.True(t, verified.HasWebsiteAccess)
		assert.False(t, verified.IsAdmin)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()

		issuer, err := auth.NewIssuer("secret", time.Hour)
		require.NoError(t, err)
		issuer.SetClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })

		token, err := issuer.Issue(&auth.Claims{UserID: "1"})
		require.NoError(t, err)

		_, err = issuer.Verify(token)
		require.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		signer, err := auth.NewIssuer("one", time.Hour)
		require.NoError(t, err)
		verifier, err := auth.NewIssuer("two", time.Hour)
		require.NoError(t, err)

		token, err := signer.Issue(&auth.Claims{UserID: "1"})
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("unsigned token", func(t *testing.T) {
		t.Parallel()

		issuer, err := auth.NewIssuer("secret", time.Hour)
		require.NoError(t, err)

		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &auth.Claims{UserID: "1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = issuer.Verify(token)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
