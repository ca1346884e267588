package scheduler_test

import (
	"strings"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftBuild(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		draft   scheduler.Draft
		nextRun time.Time
		color   int
		roles   []uint64
		wantErr error
	}{
		{
			name:    "defaults",
			draft:   scheduler.Draft{Name: "Reminder", Message: "Raid tonight", Interval: scheduler.Interval{Hours: 1}},
			nextRun: now.Add(time.Hour),
			color:   types.DefaultEmbedColor,
		},
		{
			name: "past start advances",
			draft: scheduler.Draft{
				Name: "Weekly", Message: "Sign up", Interval: scheduler.Interval{Days: 1},
				StartTime: "2025-05-30 18:00", EmbedColor: "#ff0000", Roles: "<@&11> <@&22>",
			},
			nextRun: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
			color:   0xff0000,
			roles:   []uint64{11, 22},
		},
		{
			name:    "zero interval",
			draft:   scheduler.Draft{Name: "x", Message: "y"},
			wantErr: scheduler.ErrInvalidInterval,
		},
		{
			name:    "blank message",
			draft:   scheduler.Draft{Name: "x", Message: "  ", Interval: scheduler.Interval{Minutes: 5}},
			wantErr: scheduler.ErrEmptyMessage,
		},
		{
			name:    "message too long",
			draft:   scheduler.Draft{Name: "x", Message: strings.Repeat("a", 2001), Interval: scheduler.Interval{Minutes: 5}},
			wantErr: scheduler.ErrMessageLength,
		},
		{
			name:    "blank name",
			draft:   scheduler.Draft{Message: "y", Interval: scheduler.Interval{Minutes: 5}},
			wantErr: scheduler.ErrEmptyName,
		},
		{
			name:    "bad start",
			draft:   scheduler.Draft{Name: "x", Message: "y", Interval: scheduler.Interval{Minutes: 5}, StartTime: "tomorrow"},
			wantErr: scheduler.ErrInvalidStartTime,
		},
		{
			name:    "bad color",
			draft:   scheduler.Draft{Name: "x", Message: "y", Interval: scheduler.Interval{Minutes: 5}, EmbedColor: "blue"},
			wantErr: scheduler.ErrInvalidColor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, err := tt.draft.Build(now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.nextRun, msg.NextRun)
			assert.Equal(t, tt.color, msg.EmbedColor)
			assert.Equal(t, tt.roles, msg.RoleIDs)
			assert.True(t, msg.IsActive)
		})
	}
}

func TestEditPlan(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := &types.ScheduledMessage{ID: 3, Name: "Old", IntervalHours: 2, RoleIDs: []uint64{5}}
	zero := 0
	thirty := 30

	t.Run("nothing to edit", func(t *testing.T) {
		t.Parallel()

		_, _, err := (&scheduler.Edit{}).Plan(current, now)
		require.ErrorIs(t, err, scheduler.ErrNothingToEdit)
	})

	t.Run("interval cleared to zero", func(t *testing.T) {
		t.Parallel()

		_, _, err := (&scheduler.Edit{Hours: &zero}).Plan(current, now)
		require.ErrorIs(t, err, scheduler.ErrInvalidInterval)
	})

	t.Run("interval merged with current", func(t *testing.T) {
		t.Parallel()

		edit := &scheduler.Edit{Minutes: &thirty}
		patch, nextRun, err := edit.Plan(current, now)
		require.NoError(t, err)
		assert.Nil(t, nextRun)
		assert.Equal(t, scheduler.Interval{Hours: 2, Minutes: 30}, edit.EffectiveInterval(current))
		assert.Nil(t, patch.IntervalHours)
		assert.Equal(t, &thirty, patch.IntervalMinutes)
	})

	t.Run("roles cleared and start recomputed", func(t *testing.T) {
		t.Parallel()

		patch, nextRun, err := (&scheduler.Edit{Roles: "none", StartTime: "2025-06-01 11:00"}).Plan(current, now)
		require.NoError(t, err)
		require.NotNil(t, patch.RoleIDs)
		assert.Empty(t, *patch.RoleIDs)
		require.NotNil(t, nextRun)
		assert.Equal(t, time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC), *nextRun)
	})
}

func TestParseColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected int
		wantErr  bool
	}{
		{input: "#3498db", expected: 0x3498db},
		{input: "0xFF0000", expected: 0xff0000},
		{input: "00ff00", expected: 0x00ff00},
		{input: "#1000000", wantErr: true},
		{input: "purple", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			color, err := scheduler.ParseColor(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, scheduler.ErrInvalidColor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, color)
		})
	}
}
