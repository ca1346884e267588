package service

import (
	"context"
	"time"

	"github.com/robalyx/sentinel/internal/database/models"
	"github.com/robalyx/sentinel/internal/database/types"
	"go.uber.org/zap"
)

// DefaultMaxFailures is the number of consecutive failed sends after which a
// scheduled message is deactivated.
const DefaultMaxFailures = 5

// RetryPolicy decides when a failed send is attempted again.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxFailures int
}

// Backoff returns the delay before the next attempt after the given number of
// consecutive failures: base × 2^(failures-1), capped at the message interval.
func (p RetryPolicy) Backoff(failures int, interval time.Duration) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Minute
	}
	if failures < 1 {
		failures = 1
	}

	delay := base
	for i := 1; i < failures; i++ {
		delay *= 2
		if interval > 0 && delay >= interval {
			return interval
		}
	}

	if interval > 0 && delay > interval {
		return interval
	}
	return delay
}

// ScheduleService records the outcome of scheduled message sends.
type ScheduleService struct {
	model  *models.ScheduleModel
	policy RetryPolicy
	logger *zap.Logger
}

// NewSchedule creates a new schedule service.
func NewSchedule(model *models.ScheduleModel, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		model: model,
		policy: RetryPolicy{
			BaseDelay:   time.Minute,
			MaxFailures: DefaultMaxFailures,
		},
		logger: logger.Named("schedule_service"),
	}
}

// SetPolicy replaces the failure retry policy.
func (s *ScheduleService) SetPolicy(policy RetryPolicy) {
	if policy.MaxFailures <= 0 {
		policy.MaxFailures = DefaultMaxFailures
	}
	s.policy = policy
}

// RecordSuccess advances the message to its next run and clears failures.
func (s *ScheduleService) RecordSuccess(ctx context.Context, msg *types.ScheduledMessage, sentAt time.Time) error {
	return s.model.MarkSent(ctx, msg, sentAt)
}

// RecordFailure pushes the next run out by the backoff delay, deactivating the
// message once it reaches the failure limit. Returns whether it was deactivated.
func (s *ScheduleService) RecordFailure(
	ctx context.Context, msg *types.ScheduledMessage, now time.Time, sendErr error,
) (bool, error) {
	failures := msg.FailureCount + 1
	deactivate := failures >= s.policy.MaxFailures
	nextRun := now.Add(s.policy.Backoff(failures, msg.Interval()))

	if err := s.model.MarkFailed(ctx, msg.ID, failures, nextRun, deactivate); err != nil {
		return false, err
	}

	if deactivate {
		s.logger.Warn("Deactivated scheduled message after repeated failures",
			zap.Int64("id", msg.ID),
			zap.Uint64("guildID", msg.GuildID),
			zap.Int("failures", failures),
			zap.Error(sendErr))
	} else {
		s.logger.Warn("Scheduled message send failed",
			zap.Int64("id", msg.ID),
			zap.Uint64("guildID", msg.GuildID),
			zap.Int("failures", failures),
			zap.Time("nextRun", nextRun),
			zap.Error(sendErr))
	}

	return deactivate, nil
}
