package auth_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/robalyx/sentinel/internal/auth"
	"github.com/robalyx/sentinel/internal/redis"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryCodeStore(t *testing.T) {
	t.Parallel()

	store := auth.NewMemoryCodeStore(t.Context(), 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Claim(ctx, "abc"))
	require.ErrorIs(t, store.Claim(ctx, "abc"), auth.ErrCodeAlreadyUsed)
	require.NoError(t, store.Claim(ctx, "other"))

	assert.Eventually(t, func() bool {
		return store.Claim(ctx, "abc") == nil
	}, time.Second, 10*time.Millisecond)
}

func TestRedisCodeStore(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	port, err := strconv.Atoi(server.Port())
	require.NoError(t, err)

	manager := redis.NewManager(&config.Redis{Enabled: true, Host: server.Host(), Port: port}, zap.NewNop())
	t.Cleanup(manager.Close)

	client, err := manager.GetClient(redis.AuthDBIndex)
	require.NoError(t, err)

	ctx := context.Background()
	first := auth.NewRedisCodeStore(client, time.Minute)
	second := auth.NewRedisCodeStore(client, time.Minute)

	require.NoError(t, first.Claim(ctx, "abc"))
	require.ErrorIs(t, second.Claim(ctx, "abc"), auth.ErrCodeAlreadyUsed)

	server.FastForward(2 * time.Minute)
	require.NoError(t, second.Claim(ctx, "abc"))
}
