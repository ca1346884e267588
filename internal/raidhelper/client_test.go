package raidhelper_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/raidhelper"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newClient(t *testing.T, handler http.HandlerFunc) *raidhelper.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := raidhelper.NewClient(&config.RaidHelper{
		APIKey:   "secret",
		ServerID: 42,
		BaseURL:  server.URL,
	}, zap.NewNop())
	c.SetClock(func() time.Time { return now })
	c.SetRetryOptions(utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxRetries:      2,
	})

	return c
}

func TestEvents(t *testing.T) {
	t.Parallel()

	var events []string
	// One stale event, one without a start, then 30 upcoming events in reverse order
	events = append(events,
		fmt.Sprintf(`{"id":"old","title":"Old","startTime":%d}`, now.Add(-48*time.Hour).Unix()),
		`{"id":"nostart","title":"No start","startTime":0}`,
	)
	for i := 30; i > 0; i-- {
		events = append(events, fmt.Sprintf(`{"id":%d,"title":"Raid %d","leaderId":"7","startTime":%d,"signUps":[{"userId":"1"}]}`,
			i, i, now.Add(time.Duration(i)*time.Hour-23*time.Hour).Unix()))
	}
	body := `{"postedEvents":[` + strings.Join(events, ",") + `]}`

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/servers/42/events", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(body))
	})

	listed, total, err := c.Events(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 30, total)
	require.Len(t, listed, raidhelper.MaxListedEvents)
	assert.Equal(t, raidhelper.FlexID("1"), listed[0].ID)
	assert.Equal(t, uint64(7), listed[0].LeaderID.Uint64())
	assert.Len(t, listed[0].SignUps, 1)
	for i := 1; i < len(listed); i++ {
		assert.LessOrEqual(t, listed[i-1].StartTime, listed[i].StartTime)
	}
}

func TestSignups(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/servers/42/events/123":
			_, _ = w.Write([]byte(`{"id":"123","title":"Raid","signUps":[` +
				`{"userId":"10","name":"a"},{"userId":11,"name":"b"},{"userId":"10"},{"userId":null}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	event, err := c.Signups(t.Context(), "123")
	require.NoError(t, err)
	assert.Equal(t, "Raid", event.Title)
	assert.Equal(t, []uint64{10, 11}, event.SignedUpUserIDs())

	_, err = c.Signups(t.Context(), "999")
	require.ErrorIs(t, err, raidhelper.ErrEventNotFound)
}

func TestRetries(t *testing.T) {
	t.Parallel()

	t.Run("server errors are retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"postedEvents":[]}`))
		})

		listed, total, err := c.Events(t.Context())
		require.NoError(t, err)
		assert.Empty(t, listed)
		assert.Zero(t, total)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, _, err := c.Events(t.Context())
		require.ErrorIs(t, err, raidhelper.ErrUnexpectedAPI)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestNotConfigured(t *testing.T) {
	t.Parallel()

	c := raidhelper.NewClient(&config.RaidHelper{}, zap.NewNop())
	assert.False(t, c.Configured())

	_, _, err := c.Events(t.Context())
	require.ErrorIs(t, err, raidhelper.ErrNotConfigured)

	_, err = c.Signups(t.Context(), "1")
	require.ErrorIs(t, err, raidhelper.ErrNotConfigured)
}

func TestCompareSignups(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		members  []uint64
		signups  []uint64
		expected raidhelper.Comparison
		percent  float64
	}{
		{
			name:     "mixed",
			members:  []uint64{3, 1, 2},
			signups:  []uint64{2, 9, 1},
			expected: raidhelper.Comparison{SignedUp: []uint64{1, 2}, Missing: []uint64{3}, Extra: []uint64{9}},
			percent:  200.0 / 3,
		},
		{
			name:     "everyone signed up",
			members:  []uint64{1, 1},
			signups:  []uint64{1},
			expected: raidhelper.Comparison{SignedUp: []uint64{1}, Missing: []uint64{}, Extra: []uint64{}},
			percent:  100,
		},
		{
			name:     "empty role",
			signups:  []uint64{5},
			expected: raidhelper.Comparison{SignedUp: []uint64{}, Missing: []uint64{}, Extra: []uint64{5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := raidhelper.CompareSignups(tt.members, tt.signups)
			assert.Equal(t, tt.expected, *result)
			assert.InDelta(t, tt.percent, result.Percentage(), 0.001)
		})
	}
}
