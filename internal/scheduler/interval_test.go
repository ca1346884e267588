package scheduler_test

import (
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		interval scheduler.Interval
		duration time.Duration
		text     string
		wantErr  error
	}{
		{name: "zero", interval: scheduler.Interval{}, text: "0 minutes", wantErr: scheduler.ErrInvalidInterval},
		{name: "one minute", interval: scheduler.Interval{Minutes: 1}, duration: time.Minute, text: "1 minute"},
		{
			name:     "mixed",
			interval: scheduler.Interval{Days: 1, Hours: 2, Minutes: 30},
			duration: 26*time.Hour + 30*time.Minute,
			text:     "1 day, 2 hours, 30 minutes",
		},
		{name: "days only", interval: scheduler.Interval{Days: 7}, duration: 7 * 24 * time.Hour, text: "7 days"},
		{name: "negative part", interval: scheduler.Interval{Hours: 2, Minutes: -5}, duration: 115 * time.Minute, text: "2 hours", wantErr: scheduler.ErrInvalidInterval},
		{name: "a full year", interval: scheduler.Interval{Days: 365}, duration: 365 * 24 * time.Hour, text: "365 days"},
		{
			name:     "over a year",
			interval: scheduler.Interval{Days: 365, Minutes: 1},
			duration: 365*24*time.Hour + time.Minute,
			text:     "365 days, 1 minute",
			wantErr:  scheduler.ErrIntervalTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.duration, tt.interval.Duration())
			assert.Equal(t, tt.text, tt.interval.String())

			err := tt.interval.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestIntervalValidateOverflow(t *testing.T) {
	t.Parallel()

	// Anything past 106751 days no longer fits in a time.Duration
	tests := []struct {
		name     string
		interval scheduler.Interval
	}{
		{name: "huge days", interval: scheduler.Interval{Days: 106752}},
		{name: "huge hours", interval: scheduler.Interval{Hours: 1 << 40}},
		{name: "huge minutes", interval: scheduler.Interval{Minutes: 1 << 50}},
		{name: "largest int", interval: scheduler.Interval{Days: int(^uint(0) >> 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, tt.interval.Validate(), scheduler.ErrIntervalTooLong)
		})
	}
}

func TestParseStartTime(t *testing.T) {
	t.Parallel()

	expected := time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{name: "iso minutes", input: "2025-03-14 18:30", expected: expected},
		{name: "iso seconds", input: "2025-03-14 18:30:45", expected: expected.Add(45 * time.Second)},
		{name: "dotted minutes", input: "14.03.2025 18:30", expected: expected},
		{name: "dotted seconds", input: " 14.03.2025 18:30:45 ", expected: expected.Add(45 * time.Second)},
		{name: "slashes", input: "03/14/2025 18:30", wantErr: true},
		{name: "date only", input: "2025-03-14", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			parsed, err := scheduler.ParseStartTime(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, scheduler.ErrInvalidStartTime)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(parsed))
			assert.Equal(t, time.UTC, parsed.Location())
		})
	}
}

func TestInitialNextRun(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	hour := time.Hour

	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name     string
		start    *time.Time
		expected time.Time
	}{
		{name: "no start", expected: now.Add(hour)},
		{name: "future start", start: ptr(now.Add(3 * time.Hour)), expected: now.Add(3 * time.Hour)},
		{name: "start equals now", start: ptr(now), expected: now},
		{name: "past start on boundary", start: ptr(now.Add(-2 * hour)), expected: now},
		{name: "past start between runs", start: ptr(now.Add(-90 * time.Minute)), expected: now.Add(30 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			next := scheduler.InitialNextRun(tt.start, hour, now)
			assert.True(t, tt.expected.Equal(next), "expected %s, got %s", tt.expected, next)
			assert.False(t, next.Before(now))
		})
	}
}

func TestParseRoleMentions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []uint64
	}{
		{name: "single", input: "<@&123>", expected: []uint64{123}},
		{name: "several with noise", input: "<@&1> text <@&2>  <@&1>", expected: []uint64{1, 2}},
		{name: "user mentions ignored", input: "<@42> <@!43>", expected: []uint64{}},
		{name: "none clears", input: "None", expected: []uint64{}},
		{name: "empty", input: "", expected: []uint64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ids := scheduler.ParseRoleMentions(tt.input)
			require.NotNil(t, ids)
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestMentionRoles(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<@&1> <@&22>", scheduler.MentionRoles([]uint64{1, 22}))
	assert.Empty(t, scheduler.MentionRoles(nil))
}
