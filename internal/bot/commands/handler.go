package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/ai"
	"github.com/robalyx/sentinel/internal/bot/constants"
	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/export"
	"github.com/robalyx/sentinel/internal/raidhelper"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/pkg/utils"
	"go.uber.org/zap"
)

// pendingTTL bounds how long a schedule form may stay open.
const pendingTTL = 15 * time.Minute

// RoleMembers lists the members holding a role.
type RoleMembers interface {
	RoleMembers(ctx context.Context, guildID, roleID uint64) ([]discord.Member, error)
}

// Dependencies holds everything the command handlers use.
type Dependencies struct {
	DB         database.Client
	Config     *config.BotConfig
	Exporter   *export.Exporter
	ExportDir  string
	Analyzer   *ai.ActivityAnalyzer
	RaidHelper *raidhelper.Client
	Members    RoleMembers
	// Sync registers the command set again and returns the number of commands.
	Sync   func(ctx context.Context) (int, error)
	Logger *zap.Logger
}

// route binds a command to its handler.
type route struct {
	run        func(r *Request) error
	restricted bool
	// failure is shown when run returns an unexpected error.
	failure string
}

// Handler dispatches slash commands and schedule form submissions.
//
//nolint:containedctx // listeners receive no context, the handler carries the bot's lifetime
type Handler struct {
	ctx        context.Context
	deps       Dependencies
	authorizer *Authorizer
	pending    *utils.TTLMap[string, *pendingSchedule]
	routes     map[string]route
	startedAt  time.Time
	logger     *zap.Logger
}

// NewHandler creates a new command handler.
func NewHandler(ctx context.Context, deps Dependencies) *Handler {
	h := &Handler{
		ctx:        ctx,
		deps:       deps,
		authorizer: NewAuthorizer(&deps.Config.Access),
		pending:    utils.NewTTLMap[string, *pendingSchedule](ctx, pendingTTL),
		startedAt:  time.Now(),
		logger:     deps.Logger.Named("commands"),
	}

	h.routes = map[string]route{
		constants.UserStatsCommandName:      {run: h.userStats, failure: "An error occurred while fetching user statistics."},
		constants.ServerStatsCommandName:    {run: h.serverStats, failure: "An error occurred while fetching server statistics."},
		constants.RecentChangesCommandName:  {run: h.recentChanges, failure: "An error occurred while fetching recent changes."},
		constants.RoleHistoryCommandName:    {run: h.roleHistory, failure: "An error occurred while fetching role history."},
		constants.WeeklyActivityCommandName: {run: h.weeklyActivity, failure: "An error occurred while building the activity chart."},
		constants.InfoCommandName:           {run: h.info, failure: "An error occurred while fetching bot information."},

		constants.SyncCommandName:                  {run: h.sync, restricted: true, failure: "Error syncing commands."},
		constants.DatabaseStatsCommandName:         {run: h.databaseStats, restricted: true, failure: "An error occurred while fetching database statistics."},
		constants.CleanupOldDataCommandName:        {run: h.cleanupOldData, restricted: true, failure: "Error cleaning up data."},
		constants.ExportUserDataCommandName:        {run: h.exportUserData, restricted: true, failure: "Error exporting user data."},
		constants.CleanupDuplicateRolesCommandName: {run: h.cleanupDuplicateRoles, restricted: true, failure: "An error occurred during cleanup. Check the logs for details."},

		constants.ScheduleAddCommandName:    {run: h.scheduleAdd, restricted: true, failure: "Error adding scheduled message."},
		constants.ScheduleListCommandName:   {run: h.scheduleList, restricted: true, failure: "Error fetching scheduled messages."},
		constants.ScheduleEditCommandName:   {run: h.scheduleEdit, restricted: true, failure: "Error editing scheduled message."},
		constants.ScheduleRemoveCommandName: {run: h.scheduleRemove, restricted: true, failure: "Error removing scheduled message."},
		constants.ScheduleToggleCommandName: {run: h.scheduleToggle, restricted: true, failure: "Error toggling scheduled message."},

		constants.CheckSignupsCommandName: {run: h.checkSignups, failure: "Error checking signups. Please verify the event ID is correct."},
		constants.EventsCommandName:       {run: h.events, failure: "Error fetching Raid-Helper events."},

		constants.ExtractActivityCommandName: {run: h.extractActivity, restricted: true, failure: "Error analyzing activity screenshots."},
	}

	return h
}

// OnApplicationCommandInteraction handles slash commands. Schedule commands
// without a message open a form instead of deferring.
func (h *Handler) OnApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	data, ok := event.Data.(discord.SlashCommandInteractionData)
	if !ok {
		return
	}

	rt, ok := h.routes[data.CommandName()]
	if !ok {
		h.respondNow(event, "❌ This command is not available.")
		return
	}

	if event.GuildID() == nil {
		h.respondNow(event, constants.GuildOnlyText)
		return
	}

	if rt.restricted && !h.allowed(event.User(), event.Member()) {
		h.logger.Warn("Unauthorized command attempt",
			zap.String("command", data.CommandName()),
			zap.Uint64("userID", uint64(event.User().ID)))
		h.respondNow(event, constants.UnauthorizedText)
		return
	}

	if h.needsForm(data) {
		h.openScheduleForm(event, data)
		return
	}

	go func() {
		if err := event.DeferCreateMessage(true); err != nil {
			h.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		r := newRequest(h.ctx, event.Client(), event.ApplicationID(), event.Token(), *event.GuildID(), event.User(), h.logger)
		r.data = data
		r.member = event.Member()

		h.run(r, data.CommandName(), rt)
	}()
}

// OnModalSubmit handles schedule form submissions.
func (h *Handler) OnModalSubmit(event *events.ModalSubmitInteractionCreate) {
	customID := event.Data.CustomID
	if !strings.HasPrefix(customID, constants.ScheduleAddModalPrefix) &&
		!strings.HasPrefix(customID, constants.ScheduleEditModalPrefix) {
		return
	}

	go func() {
		if err := event.DeferCreateMessage(true); err != nil {
			h.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		var guildID snowflake.ID
		if event.GuildID() != nil {
			guildID = *event.GuildID()
		}

		r := newRequest(h.ctx, event.Client(), event.ApplicationID(), event.Token(), guildID, event.User(), h.logger)
		r.member = event.Member()

		h.run(r, customID, route{
			run: func(r *Request) error {
				return h.submitScheduleForm(r, customID, event.Data.Text(constants.MessageInputCustomID))
			},
			failure: "Error saving scheduled message.",
		})
	}()
}

// run executes a route with panic recovery and timing.
func (h *Handler) run(r *Request, name string, rt route) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("Panic in command handler", zap.String("command", name), zap.Any("panic", rec))
			r.Text(constants.InternalErrorText)
		}
		h.logger.Debug("Command handled",
			zap.String("command", name),
			zap.Uint64("guildID", r.GuildID),
			zap.Duration("duration", time.Since(start)))
	}()

	if err := rt.run(r); err != nil {
		h.logger.Error("Command failed",
			zap.String("command", name),
			zap.Uint64("guildID", r.GuildID),
			zap.Error(err))
		r.Text("❌ " + rt.failure)
	}
}

func (h *Handler) allowed(user discord.User, member *discord.ResolvedMember) bool {
	if member == nil {
		return h.authorizer.Allowed(uint64(user.ID), nil, discord.PermissionsNone)
	}

	roleIDs := make([]uint64, 0, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		roleIDs = append(roleIDs, uint64(id))
	}
	return h.authorizer.Allowed(uint64(user.ID), roleIDs, member.Permissions)
}

func (h *Handler) respondNow(event *events.ApplicationCommandInteractionCreate, content string) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
	if err != nil {
		h.logger.Error("Failed to respond to interaction", zap.Error(err))
	}
}

// Request is one command invocation after its response was deferred.
//
//nolint:containedctx // scoped to a single interaction
type Request struct {
	ctx     context.Context
	client  bot.Client
	appID   snowflake.ID
	token   string
	data    discord.SlashCommandInteractionData
	member  *discord.ResolvedMember
	GuildID uint64
	User    discord.User
	logger  *zap.Logger
}

func newRequest(
	ctx context.Context, client bot.Client, appID snowflake.ID, token string,
	guildID snowflake.ID, user discord.User, logger *zap.Logger,
) *Request {
	return &Request{
		ctx:     ctx,
		client:  client,
		appID:   appID,
		token:   token,
		GuildID: uint64(guildID),
		User:    user,
		logger:  logger,
	}
}

// Text replaces the deferred response with plain text.
func (r *Request) Text(content string) {
	r.update(discord.NewMessageUpdateBuilder().SetContent(content).ClearEmbeds().Build())
}

// Embeds replaces the deferred response with embeds. Embeds beyond the
// per-message limit are sent as follow-ups.
func (r *Request) Embeds(embeds ...discord.Embed) {
	const perMessage = 10

	first := embeds[:min(len(embeds), perMessage)]
	r.update(discord.NewMessageUpdateBuilder().SetContent("").SetEmbeds(first...).Build())

	for start := perMessage; start < len(embeds); start += perMessage {
		_, err := r.client.Rest().CreateFollowupMessage(r.appID, r.token, discord.NewMessageCreateBuilder().
			SetEmbeds(embeds[start:min(start+perMessage, len(embeds))]...).
			SetEphemeral(true).
			Build(), rest.WithCtx(r.ctx))
		if err != nil {
			r.logger.Error("Failed to send follow-up", zap.Error(err))
			return
		}
	}
}

// Update replaces the deferred response.
func (r *Request) Update(update discord.MessageUpdate) {
	r.update(update)
}

func (r *Request) update(update discord.MessageUpdate) {
	if _, err := r.client.Rest().UpdateInteractionResponse(r.appID, r.token, update, rest.WithCtx(r.ctx)); err != nil {
		r.logger.Error("Failed to update interaction response", zap.Error(err))
	}
}

// Context returns the request context.
func (r *Request) Context() context.Context {
	return r.ctx
}

// optUser returns the user option or the invoking user. The member is nil
// when the target is not in the guild.
func (r *Request) optUser(name string) (discord.User, *discord.Member) {
	if member, ok := r.data.OptMember(name); ok {
		return member.User, &member.Member
	}
	if user, ok := r.data.OptUser(name); ok {
		return user, nil
	}
	if r.member != nil {
		return r.User, &r.member.Member
	}
	return r.User, nil
}

func (r *Request) optInt(name string) *int {
	if v, ok := r.data.OptInt(name); ok {
		return &v
	}
	return nil
}

func (r *Request) optString(name string) string {
	v, _ := r.data.OptString(name)
	return strings.TrimSpace(v)
}

func errorText(format string, args ...any) string {
	return "❌ " + fmt.Sprintf(format, args...)
}
