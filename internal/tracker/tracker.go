package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/pkg/utils"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var (
	// ErrStopped is returned when an event is offered after the tracker stopped.
	ErrStopped = errors.New("tracker stopped")
	// ErrQueueFull is returned when the buffer is full before the writer started.
	ErrQueueFull = errors.New("tracker event queue full")
)

const (
	defaultBatchSize   = 50
	defaultBatchDelay  = 100 * time.Millisecond
	defaultEventBuffer = 1024
	maxGuildWorkers    = 4
)

// Tracker writes membership observations to the store. Live events are
// buffered and applied by a single writer goroutine in arrival order; the
// writer only starts once the startup inventory finished.
type Tracker struct {
	db         database.Client
	events     chan Event
	batchSize  int
	batchDelay time.Duration
	started    atomic.Bool
	stopped    chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
	logger     *zap.Logger
}

// New creates a new tracker.
func New(db database.Client, cfg *config.Tracking, logger *zap.Logger) *Tracker {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	batchDelay := time.Duration(cfg.BatchDelay) * time.Millisecond
	if batchDelay <= 0 {
		batchDelay = defaultBatchDelay
	}

	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	return &Tracker{
		db:         db,
		events:     make(chan Event, buffer),
		batchSize:  batchSize,
		batchDelay: batchDelay,
		stopped:    make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Named("tracker"),
	}
}

// Enqueue buffers a live event. Once Run was called it blocks while the
// buffer is full until space frees up, the context ends or the tracker stops.
// Before that nothing drains the buffer, so a full buffer drops the event
// with ErrQueueFull; the startup inventory records the state it missed.
func (t *Tracker) Enqueue(ctx context.Context, ev Event) error {
	select {
	case t.events <- ev:
		return nil
	default:
	}

	if !t.started.Load() {
		t.logger.Warn("Event queue full before the startup inventory, dropping event",
			zap.String("kind", ev.Kind.String()),
			zap.Uint64("guildID", ev.GuildID))
		return ErrQueueFull
	}

	t.logger.Warn("Event queue full, waiting for the writer",
		zap.String("kind", ev.Kind.String()),
		zap.Uint64("guildID", ev.GuildID))

	select {
	case t.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopped:
		return ErrStopped
	}
}

// Pending returns the number of buffered events.
func (t *Tracker) Pending() int {
	return len(t.events)
}

// Run performs the startup inventory and then applies live events until the
// context is cancelled. Only the first call does anything.
func (t *Tracker) Run(ctx context.Context, inventory Inventory, guildIDs []uint64) {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	defer close(t.done)
	defer t.stop()

	result, err := t.Bootstrap(ctx, inventory, guildIDs)
	if err != nil {
		t.logger.Error("Startup inventory failed", zap.Error(err))
	} else {
		t.logger.Info("Startup inventory completed",
			zap.Int("guilds", result.Guilds),
			zap.Int("members", result.Members),
			zap.Int("initialRoles", result.InitialRoles),
			zap.Int("failedMembers", result.FailedMembers),
			zap.Int("duplicatesRemoved", result.DuplicatesRemoved))
	}

	t.logger.Info("Applying live events", zap.Int("pending", len(t.events)))

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-t.events:
			t.apply(ctx, ev)
		}
	}
}

// Done is closed once Run returned.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

func (t *Tracker) stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

// apply writes one event. Failures are logged and never stop the writer.
func (t *Tracker) apply(ctx context.Context, ev Event) {
	if err := t.Apply(ctx, ev); err != nil {
		t.logger.Error("Failed to record event",
			zap.String("kind", ev.Kind.String()),
			zap.Uint64("guildID", ev.GuildID),
			zap.Uint64("userID", ev.userID()),
			zap.Error(err))
	}
}

// Apply writes one event synchronously.
func (t *Tracker) Apply(ctx context.Context, ev Event) error {
	tracking := t.db.Service().Tracking()

	switch ev.Kind {
	case EventMemberUpdate:
		if ev.After == nil {
			return fmt.Errorf("%s event without member", ev.Kind)
		}
		_, err := tracking.ApplyMemberUpdate(ctx, ev.Before, ev.After)
		return err
	case EventJoin:
		if ev.After == nil {
			return fmt.Errorf("%s event without member", ev.Kind)
		}
		return tracking.Join(ctx, ev.After)
	case EventLeave:
		if ev.User == nil {
			return fmt.Errorf("%s event without user", ev.Kind)
		}
		return tracking.Leave(ctx, ev.GuildID, ev.User)
	case EventRoleUpdate:
		return t.db.Model().Tracking().UpsertRoles(ctx, ev.Roles)
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

// Bootstrap removes duplicate initial rows and then records the current
// roles and members of every guild. Guilds are scanned concurrently; member
// failures are logged and the scan continues.
func (t *Tracker) Bootstrap(ctx context.Context, inventory Inventory, guildIDs []uint64) (*BootstrapResult, error) {
	result := &BootstrapResult{}

	removed, err := t.db.Model().Tracking().CleanupDuplicateInitialRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to cleanup duplicate initial roles: %w", err)
	}
	result.DuplicatesRemoved = removed

	var roles, members, initial, failedMembers, failedGuilds, guilds atomic.Int64

	p := pool.New().WithMaxGoroutines(maxGuildWorkers)
	for _, guildID := range guildIDs {
		p.Go(func() {
			stats, err := t.bootstrapGuild(ctx, inventory, guildID)
			if err != nil {
				failedGuilds.Add(1)
				t.logger.Error("Failed to inventory guild",
					zap.Uint64("guildID", guildID),
					zap.Error(err))
			} else {
				guilds.Add(1)
			}

			roles.Add(int64(stats.Roles))
			members.Add(int64(stats.Members))
			initial.Add(int64(stats.InitialRoles))
			failedMembers.Add(int64(stats.FailedMembers))
		})
	}
	p.Wait()

	result.Guilds = int(guilds.Load())
	result.FailedGuilds = int(failedGuilds.Load())
	result.Roles = int(roles.Load())
	result.Members = int(members.Load())
	result.InitialRoles = int(initial.Load())
	result.FailedMembers = int(failedMembers.Load())

	if err := ctx.Err(); err != nil {
		return result, err
	}

	return result, nil
}

// bootstrapGuild records the roles and members of one guild.
func (t *Tracker) bootstrapGuild(ctx context.Context, inventory Inventory, guildID uint64) (BootstrapResult, error) {
	var stats BootstrapResult

	guildRoles, err := inventory.Roles(ctx, guildID)
	if err != nil {
		return stats, fmt.Errorf("failed to list roles: %w", err)
	}

	// The @everyone role shares the guild ID and is never tracked
	tracked := make([]types.RoleSnapshot, 0, len(guildRoles))
	for _, role := range guildRoles {
		if role.ID == guildID {
			continue
		}
		tracked = append(tracked, role)
	}

	if err := t.db.Model().Tracking().UpsertRoles(ctx, tracked); err != nil {
		return stats, fmt.Errorf("failed to upsert roles: %w", err)
	}
	stats.Roles = len(tracked)

	var after uint64
	for {
		batch, err := inventory.Members(ctx, guildID, after, t.batchSize)
		if err != nil {
			return stats, fmt.Errorf("failed to list members after %d: %w", after, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, member := range batch {
			if member.User.ID > after {
				after = member.User.ID
			}

			member.Roles = withoutRole(member.Roles, guildID)

			written, err := t.db.Service().Tracking().SeedMember(ctx, member)
			if err != nil {
				stats.FailedMembers++
				t.logger.Warn("Failed to record member during inventory",
					zap.Uint64("guildID", guildID),
					zap.Uint64("userID", member.User.ID),
					zap.Error(err))
				continue
			}

			stats.Members++
			stats.InitialRoles += written
		}

		t.logger.Debug("Processed inventory batch",
			zap.Uint64("guildID", guildID),
			zap.Int("size", len(batch)),
			zap.Int("members", stats.Members))

		if len(batch) < t.batchSize {
			break
		}

		if err := utils.Sleep(ctx, t.batchDelay); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// withoutRole drops the role with the given ID.
func withoutRole(roles []types.RoleSnapshot, id uint64) []types.RoleSnapshot {
	filtered := roles[:0:0]
	for _, role := range roles {
		if role.ID != id {
			filtered = append(filtered, role)
		}
	}
	return filtered
}
