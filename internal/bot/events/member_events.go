//nolint:containedctx // listeners receive no context, the handler carries the bot's lifetime
package events

import (
	"context"
	"sync"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/bot/snapshot"
	"github.com/robalyx/sentinel/internal/tracker"
	"go.uber.org/zap"
)

// Enqueuer accepts live observations for the single tracking writer.
type Enqueuer interface {
	Enqueue(ctx context.Context, ev tracker.Event) error
}

// MemberEventHandler turns gateway member and role events into tracker events.
type MemberEventHandler struct {
	ctx     context.Context
	tracker Enqueuer
	lookup  snapshot.RoleLookup
	logger  *zap.Logger

	mu     sync.Mutex
	guilds []uint64
	seen   map[uint64]struct{}
}

// NewMemberEventHandler creates a new member event handler. Enqueue calls
// give up once ctx is cancelled.
func NewMemberEventHandler(
	ctx context.Context, enqueuer Enqueuer, lookup snapshot.RoleLookup, logger *zap.Logger,
) *MemberEventHandler {
	return &MemberEventHandler{
		ctx:     ctx,
		tracker: enqueuer,
		lookup:  lookup,
		logger:  logger.Named("member_events"),
		seen:    make(map[uint64]struct{}),
	}
}

// OnGuildReady remembers the guild for the startup inventory.
func (h *MemberEventHandler) OnGuildReady(event *events.GuildReady) {
	h.AddGuild(event.GuildID)

	h.logger.Info("Guild ready",
		zap.Uint64("guildID", uint64(event.GuildID)),
		zap.String("guildName", event.Guild.Name))
}

// OnGuildMemberJoin handles a member joining.
func (h *MemberEventHandler) OnGuildMemberJoin(event *events.GuildMemberJoin) {
	h.HandleJoin(event.GuildID, event.Member)
}

// OnGuildMemberUpdate handles nickname, username and role changes.
func (h *MemberEventHandler) OnGuildMemberUpdate(event *events.GuildMemberUpdate) {
	var old *discord.Member
	if event.OldMember.User.ID != 0 {
		old = &event.OldMember
	}
	h.HandleUpdate(event.GuildID, old, event.Member)
}

// OnGuildMemberLeave handles a member leaving.
func (h *MemberEventHandler) OnGuildMemberLeave(event *events.GuildMemberLeave) {
	h.HandleLeave(event.GuildID, event.User)
}

// OnRoleCreate refreshes a new role definition.
func (h *MemberEventHandler) OnRoleCreate(event *events.RoleCreate) {
	h.HandleRoles(event.GuildID, []discord.Role{event.Role})
}

// OnRoleUpdate refreshes a changed role definition.
func (h *MemberEventHandler) OnRoleUpdate(event *events.RoleUpdate) {
	h.HandleRoles(event.GuildID, []discord.Role{event.Role})
}

// AddGuild records a guild once.
func (h *MemberEventHandler) AddGuild(guildID snowflake.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uint64(guildID)
	if _, ok := h.seen[id]; ok {
		return
	}
	h.seen[id] = struct{}{}
	h.guilds = append(h.guilds, id)
}

// Guilds returns the guilds seen so far.
func (h *MemberEventHandler) Guilds() []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]uint64(nil), h.guilds...)
}

// HandleJoin queues a join.
func (h *MemberEventHandler) HandleJoin(guildID snowflake.ID, member discord.Member) {
	h.enqueue(tracker.Event{
		Kind:    tracker.EventJoin,
		GuildID: uint64(guildID),
		After:   snapshot.Member(guildID, member, h.lookup),
	})
}

// HandleUpdate queues a member update. A nil old member lets the tracker
// rebuild the previous state from the store.
func (h *MemberEventHandler) HandleUpdate(guildID snowflake.ID, old *discord.Member, member discord.Member) {
	ev := tracker.Event{
		Kind:    tracker.EventMemberUpdate,
		GuildID: uint64(guildID),
		After:   snapshot.Member(guildID, member, h.lookup),
	}
	if old != nil {
		ev.Before = snapshot.Member(guildID, *old, h.lookup)
	}
	h.enqueue(ev)
}

// HandleLeave queues a leave.
func (h *MemberEventHandler) HandleLeave(guildID snowflake.ID, user discord.User) {
	snap := snapshot.User(user)
	h.enqueue(tracker.Event{
		Kind:    tracker.EventLeave,
		GuildID: uint64(guildID),
		User:    &snap,
	})
}

// HandleRoles queues role definition updates.
func (h *MemberEventHandler) HandleRoles(guildID snowflake.ID, roles []discord.Role) {
	snaps := snapshot.Roles(guildID, roles)
	if len(snaps) == 0 {
		return
	}
	h.enqueue(tracker.Event{
		Kind:    tracker.EventRoleUpdate,
		GuildID: uint64(guildID),
		Roles:   snaps,
	})
}

func (h *MemberEventHandler) enqueue(ev tracker.Event) {
	if err := h.tracker.Enqueue(h.ctx, ev); err != nil {
		h.logger.Error("Failed to queue member event",
			zap.String("kind", ev.Kind.String()),
			zap.Uint64("guildID", ev.GuildID),
			zap.Error(err))
	}
}
