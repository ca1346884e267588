package utils_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robalyx/sentinel/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTemporary = errors.New("temporary error")
	errFatal     = errors.New("bad request")
)

func fastRetry() utils.RetryOptions {
	return utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxRetries:      3,
	}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		failures      int
		failWith      error
		expectedCalls int
		expectedErr   error
	}{
		{name: "succeeds first try", expectedCalls: 1},
		{name: "succeeds after retries", failures: 2, failWith: errTemporary, expectedCalls: 3},
		{name: "gives up after max retries", failures: 10, failWith: errTemporary, expectedCalls: 4, expectedErr: errTemporary},
		{name: "permanent error stops immediately", failures: 10, failWith: backoff.Permanent(errFatal), expectedCalls: 1, expectedErr: errFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			result, err := utils.WithRetry(context.Background(), func() (int, error) {
				calls++
				if calls <= tt.failures {
					return 0, tt.failWith
				}
				return calls, nil
			}, fastRetry())

			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCalls, result)
		})
	}
}

func TestWithRetryCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := utils.WithRetry(ctx, func() (int, error) {
		return 0, errTemporary
	}, fastRetry())
	require.Error(t, err)
}

func TestWithRetryNotify(t *testing.T) {
	t.Parallel()

	opts := fastRetry()
	var notified []error
	opts.Notify = func(err error, _ time.Duration) {
		notified = append(notified, err)
	}

	calls := 0
	_, err := utils.WithRetry(t.Context(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errTemporary
		}
		return calls, nil
	}, opts)

	require.NoError(t, err)
	assert.Equal(t, []error{errTemporary, errTemporary}, notified)
}
