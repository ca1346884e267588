package utils_test

import (
	"context"
	"testing"
	"time"

	"github.com/robalyx/sentinel/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		duration    time.Duration
		cancelAfter time.Duration
		cancelFirst bool
		expectedErr error
	}{
		{name: "sleep completes normally", duration: 10 * time.Millisecond},
		{name: "zero duration", duration: 0},
		{
			name:        "cancelled while sleeping",
			duration:    time.Second,
			cancelAfter: 10 * time.Millisecond,
			expectedErr: context.Canceled,
		},
		{
			name:        "zero duration on a cancelled context",
			cancelFirst: true,
			expectedErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			if tt.cancelFirst {
				cancel()
			}
			if tt.cancelAfter > 0 {
				time.AfterFunc(tt.cancelAfter, cancel)
			}

			start := time.Now()
			err := utils.Sleep(ctx, tt.duration)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				assert.Less(t, time.Since(start), tt.duration/2+50*time.Millisecond)
				return
			}
			require.NoError(t, err)
			assert.GreaterOrEqual(t, time.Since(start), tt.duration)
		})
	}
}
