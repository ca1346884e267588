package scheduler

import (
	"context"
	"time"

	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/service"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/setup/config"
	"go.uber.org/zap"
)

// Sender delivers one scheduled message to its channel.
type Sender interface {
	SendScheduled(ctx context.Context, msg *types.ScheduledMessage) error
}

// TickResult counts the outcome of one scheduler pass.
type TickResult struct {
	Due         int
	Sent        int
	Failed      int
	Deactivated int
}

// Worker sends due scheduled messages on a fixed tick.
type Worker struct {
	db       database.Client
	sender   Sender
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// New creates a new scheduler worker.
func New(db database.Client, sender Sender, cfg *config.Scheduler, logger *zap.Logger) *Worker {
	interval := time.Duration(cfg.Interval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	db.Service().Schedule().SetPolicy(service.RetryPolicy{
		BaseDelay:   time.Duration(cfg.RetryDelay) * time.Second,
		MaxFailures: cfg.MaxFailures,
	})

	return &Worker{
		db:       db,
		sender:   sender,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.Named("scheduler"),
	}
}

// SetClock replaces the time source used for due checks and send times.
func (w *Worker) SetClock(now func() time.Time) {
	w.now = now
}

// Start runs the scheduler loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Scheduler started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			w.Tick(ctx, w.now())
		}
	}
}

// Tick sends every message due at now. Each message is advanced from the
// moment its send finished. Failures are recorded per message and never stop
// the pass.
func (w *Worker) Tick(ctx context.Context, now time.Time) TickResult {
	var result TickResult

	due, err := w.db.Model().Schedule().Due(ctx, now)
	if err != nil {
		w.logger.Error("Failed to load due scheduled messages", zap.Error(err))
		return result
	}

	result.Due = len(due)
	schedule := w.db.Service().Schedule()

	for _, msg := range due {
		if ctx.Err() != nil {
			return result
		}

		if sendErr := w.sender.SendScheduled(ctx, msg); sendErr != nil {
			result.Failed++

			deactivated, err := schedule.RecordFailure(ctx, msg, w.now(), sendErr)
			if err != nil {
				w.logger.Error("Failed to record send failure",
					zap.Int64("id", msg.ID),
					zap.Error(err))
				continue
			}
			if deactivated {
				result.Deactivated++
			}
			continue
		}

		result.Sent++

		if err := schedule.RecordSuccess(ctx, msg, w.now()); err != nil {
			w.logger.Error("Failed to advance scheduled message",
				zap.Int64("id", msg.ID),
				zap.Error(err))
			continue
		}

		w.logger.Info("Sent scheduled message",
			zap.Int64("id", msg.ID),
			zap.Uint64("guildID", msg.GuildID),
			zap.Uint64("channelID", msg.ChannelID))
	}

	return result
}
