package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ScheduleModel handles database operations for scheduled messages.
type ScheduleModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSchedule creates a new schedule model instance.
func NewSchedule(db *bun.DB, logger *zap.Logger) *ScheduleModel {
	return &ScheduleModel{
		db:     db,
		logger: logger.Named("db_schedule"),
	}
}

// Create inserts a new scheduled message and sets its ID.
func (m *ScheduleModel) Create(ctx context.Context, msg *types.ScheduledMessage) error {
	if msg.EmbedColor == 0 {
		msg.EmbedColor = types.DefaultEmbedColor
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = nowUTC()
	}
	msg.NextRun = msg.NextRun.UTC()
	msg.IsActive = true

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(msg).
			Returning("id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create scheduled message: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Created scheduled message",
		zap.Int64("id", msg.ID),
		zap.Uint64("guildID", msg.GuildID),
		zap.Time("nextRun", msg.NextRun))

	return nil
}

// Get retrieves a scheduled message of a guild by ID.
func (m *ScheduleModel) Get(ctx context.Context, id int64, guildID uint64) (*types.ScheduledMessage, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ScheduledMessage, error) {
		var msg types.ScheduledMessage

		err := m.db.NewSelect().
			Model(&msg).
			Where("id = ?", id).
			Where("guild_id = ?", guildID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrScheduleNotFound
			}
			return nil, fmt.Errorf("failed to get scheduled message: %w", err)
		}

		return &msg, nil
	})
}

// List returns every scheduled message of a guild ordered by ID.
func (m *ScheduleModel) List(ctx context.Context, guildID uint64) ([]*types.ScheduledMessage, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ScheduledMessage, error) {
		var msgs []*types.ScheduledMessage

		err := m.db.NewSelect().
			Model(&msgs).
			Where("guild_id = ?", guildID).
			Order("id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list scheduled messages: %w", err)
		}

		return msgs, nil
	})
}

// Due returns active messages whose next run is at or before now.
func (m *ScheduleModel) Due(ctx context.Context, now time.Time) ([]*types.ScheduledMessage, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ScheduledMessage, error) {
		var msgs []*types.ScheduledMessage

		err := m.db.NewSelect().
			Model(&msgs).
			Where("is_active = ?", true).
			Where("next_run <= ?", now.UTC()).
			Order("next_run ASC", "id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get due messages: %w", err)
		}

		return msgs, nil
	})
}

// Update applies a partial update. A non-nil nextRun replaces the next run.
// Returns ErrScheduleNotFound when no row of the guild matches.
func (m *ScheduleModel) Update(
	ctx context.Context, id int64, guildID uint64, patch *types.ScheduledMessageUpdate, nextRun *time.Time,
) error {
	if patch.IsEmpty() && nextRun == nil {
		_, err := m.Get(ctx, id, guildID)
		return err
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		q := m.db.NewUpdate().
			Model((*types.ScheduledMessage)(nil)).
			Where("id = ?", id).
			Where("guild_id = ?", guildID)

		if patch.Name != nil {
			q = q.Set("name = ?", *patch.Name)
		}
		if patch.ChannelID != nil {
			q = q.Set("channel_id = ?", *patch.ChannelID)
		}
		if patch.Message != nil {
			q = q.Set("message = ?", *patch.Message)
		}
		if patch.IntervalDays != nil {
			q = q.Set("interval_days = ?", *patch.IntervalDays)
		}
		if patch.IntervalHours != nil {
			q = q.Set("interval_hours = ?", *patch.IntervalHours)
		}
		if patch.IntervalMinutes != nil {
			q = q.Set("interval_minutes = ?", *patch.IntervalMinutes)
		}
		if patch.RoleIDs != nil {
			encoded, err := sonic.Marshal(*patch.RoleIDs)
			if err != nil {
				return fmt.Errorf("failed to encode role IDs: %w", err)
			}
			q = q.Set("role_ids = ?", string(encoded))
		}
		if patch.EmbedTitle != nil {
			q = q.Set("embed_title = ?", *patch.EmbedTitle)
		}
		if patch.EmbedColor != nil {
			q = q.Set("embed_color = ?", *patch.EmbedColor)
		}
		if nextRun != nil {
			q = q.Set("next_run = ?", nextRun.UTC())
		}

		result, err := q.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update scheduled message: %w", err)
		}

		return requireAffected(result)
	})
}

// Toggle flips the active flag and returns the new state. Reactivation
// clears the failure counter.
func (m *ScheduleModel) Toggle(ctx context.Context, id int64, guildID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		var active bool

		err := m.db.NewRaw(`
			UPDATE scheduled_messages
			SET is_active = NOT is_active,
				failure_count = CASE WHEN is_active THEN failure_count ELSE 0 END
			WHERE id = ? AND guild_id = ?
			RETURNING is_active
		`, id, guildID).Scan(ctx, &active)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, types.ErrScheduleNotFound
			}
			return false, fmt.Errorf("failed to toggle scheduled message: %w", err)
		}

		return active, nil
	})
}

// Delete removes a scheduled message of a guild.
func (m *ScheduleModel) Delete(ctx context.Context, id int64, guildID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := m.db.NewDelete().
			Model((*types.ScheduledMessage)(nil)).
			Where("id = ?", id).
			Where("guild_id = ?", guildID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete scheduled message: %w", err)
		}

		return requireAffected(result)
	})
}

// MarkSent records a successful send and advances the next run by one interval
// from the send instant.
func (m *ScheduleModel) MarkSent(ctx context.Context, msg *types.ScheduledMessage, sentAt time.Time) error {
	sentAt = sentAt.UTC()
	nextRun := sentAt.Add(msg.Interval())

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := m.db.NewUpdate().
			Model((*types.ScheduledMessage)(nil)).
			Set("last_sent = ?", sentAt).
			Set("next_run = ?", nextRun).
			Set("failure_count = 0").
			Where("id = ?", msg.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark message sent: %w", err)
		}

		return requireAffected(result)
	})
}

// MarkFailed records a failed send. The row is deactivated when deactivate is set.
func (m *ScheduleModel) MarkFailed(
	ctx context.Context, id int64, failures int, nextRun time.Time, deactivate bool,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		q := m.db.NewUpdate().
			Model((*types.ScheduledMessage)(nil)).
			Set("failure_count = ?", failures).
			Set("next_run = ?", nextRun.UTC()).
			Where("id = ?", id)
		if deactivate {
			q = q.Set("is_active = ?", false)
		}

		result, err := q.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark message failed: %w", err)
		}

		return requireAffected(result)
	})
}

// requireAffected maps an update or delete that touched nothing to ErrScheduleNotFound.
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return types.ErrScheduleNotFound
	}
	return nil
}
