package auth_test

import (
	"testing"

	"github.com/robalyx/sentinel/internal/auth"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/stretchr/testify/assert"
)

func TestPolicyEvaluate(t *testing.T) {
	t.Parallel()

	restricted := auth.NewPolicy(&config.Auth{
		AdminUserIDs:   []uint64{1},
		AdminRoleIDs:   []uint64{100},
		GuestUserIDs:   []uint64{2},
		AllowedRoleIDs: []uint64{200},
	})
	open := auth.NewPolicy(&config.Auth{})

	tests := []struct {
		name     string
		policy   *auth.Policy
		userID   uint64
		roles    []uint64
		expected auth.Access
	}{
		{
			name:     "admin by user id",
			policy:   restricted,
			userID:   1,
			expected: auth.Access{IsAdmin: true, HasWebsiteAccess: true},
		},
		{
			name:     "admin by role",
			policy:   restricted,
			userID:   9,
			roles:    []uint64{100},
			expected: auth.Access{IsAdmin: true, HasWebsiteAccess: true},
		},
		{
			name:     "guest",
			policy:   restricted,
			userID:   2,
			expected: auth.Access{IsGuest: true, HasWebsiteAccess: true},
		},
		{
			name:     "allowed role",
			policy:   restricted,
			userID:   9,
			roles:    []uint64{300, 200},
			expected: auth.Access{HasWebsiteAccess: true},
		},
		{
			name:     "other role only",
			policy:   restricted,
			userID:   9,
			roles:    []uint64{300},
			expected: auth.Access{},
		},
		{
			name:     "any role when none configured",
			policy:   open,
			userID:   9,
			roles:    []uint64{300},
			expected: auth.Access{HasWebsiteAccess: true},
		},
		{
			name:     "no roles when none configured",
			policy:   open,
			userID:   9,
			expected: auth.Access{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.policy.Evaluate(tt.userID, tt.roles))
		})
	}

	assert.True(t, restricted.IsPrivileged(1))
	assert.True(t, restricted.IsPrivileged(2))
	assert.False(t, restricted.IsPrivileged(9))
}
