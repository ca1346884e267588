package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/ai"
	aiClient "github.com/robalyx/sentinel/internal/ai/client"
	"github.com/robalyx/sentinel/internal/bot/commands"
	botEvents "github.com/robalyx/sentinel/internal/bot/events"
	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/export"
	"github.com/robalyx/sentinel/internal/raidhelper"
	"github.com/robalyx/sentinel/internal/scheduler"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/internal/tracker"
	"go.uber.org/zap"
)

// closeTimeout bounds how long the gateway may take to shut down.
const closeTimeout = 10 * time.Second

// Bot connects the Discord gateway to the tracker, the scheduler and the
// slash command handlers.
//
//nolint:containedctx // gateway listeners receive no context, the bot carries its lifetime
type Bot struct {
	ctx       context.Context
	cfg       *config.Config
	db        database.Client
	client    bot.Client
	tracker   *tracker.Tracker
	members   *botEvents.MemberEventHandler
	inventory *botEvents.Inventory
	commands  *commands.Handler
	scheduler *scheduler.Worker
	logger    *zap.Logger
}

// New creates the Discord client and wires every listener. Nothing connects
// until Start is called.
func New(
	ctx context.Context,
	cfg *config.Config,
	db database.Client,
	aiCli *aiClient.AIClient,
	logger *zap.Logger,
) (*Bot, error) {
	b := &Bot{
		ctx:     ctx,
		cfg:     cfg,
		db:      db,
		tracker: tracker.New(db, &cfg.Bot.Tracking, logger),
		logger:  logger.Named("bot"),
	}

	client, err := disgo.New(cfg.Bot.Discord.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentGuildMessages,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagMembers, cache.FlagRoles, cache.FlagChannels),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnGuildReady:                    b.onGuildReady,
			OnGuildsReady:                   b.onGuildsReady,
			OnGuildMemberJoin:               b.onGuildMemberJoin,
			OnGuildMemberUpdate:             b.onGuildMemberUpdate,
			OnGuildMemberLeave:              b.onGuildMemberLeave,
			OnRoleCreate:                    b.onRoleCreate,
			OnRoleUpdate:                    b.onRoleUpdate,
			OnApplicationCommandInteraction: b.onApplicationCommandInteraction,
			OnModalSubmit:                   b.onModalSubmit,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}
	b.client = client

	lookup := func(guildID, roleID snowflake.ID) (discord.Role, bool) {
		return client.Caches().Role(guildID, roleID)
	}
	b.members = botEvents.NewMemberEventHandler(ctx, b.tracker, lookup, logger)
	b.inventory = botEvents.NewInventory(ctx, client.Rest())

	var analyzer *ai.ActivityAnalyzer
	if aiCli.Configured() {
		analyzer = ai.NewActivityAnalyzer(aiCli, logger)
	}

	b.commands = commands.NewHandler(ctx, commands.Dependencies{
		DB:         db,
		Config:     &cfg.Bot,
		Exporter:   export.New(db, logger),
		ExportDir:  cfg.Bot.Retention.ExportDir,
		Analyzer:   analyzer,
		RaidHelper: raidhelper.NewClient(&cfg.Bot.RaidHelper, logger),
		Members:    b.inventory,
		Sync:       b.registerCommands,
		Logger:     logger,
	})

	b.scheduler = scheduler.New(db, NewScheduledSender(client.Rest(), logger), &cfg.Bot.Scheduler, logger)

	return b, nil
}

// Start registers the slash commands, starts the scheduler and opens the
// gateway connection.
func (b *Bot) Start() error {
	b.logger.Info("Registering commands")

	count, err := b.registerCommands(b.ctx)
	if err != nil {
		return err
	}
	b.logger.Info("Commands registered", zap.Int("count", count))

	go b.scheduler.Start(b.ctx)

	b.logger.Info("Starting bot")
	return b.client.OpenGateway(b.ctx)
}

// Close shuts down the gateway connection.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	b.client.Close(ctx)
}

// registerCommands replaces the command set in every configured guild, or
// globally when no guild is configured.
func (b *Bot) registerCommands(ctx context.Context) (int, error) {
	definitions := commands.Definitions()
	appID := b.client.ApplicationID()

	if len(b.cfg.Bot.Discord.GuildIDs) == 0 {
		registered, err := b.client.Rest().SetGlobalCommands(appID, definitions, rest.WithCtx(ctx))
		if err != nil {
			return 0, fmt.Errorf("failed to register global commands: %w", err)
		}
		return len(registered), nil
	}

	total := 0
	for _, guildID := range b.cfg.Bot.Discord.GuildIDs {
		registered, err := b.client.Rest().SetGuildCommands(appID, snowflake.ID(guildID), definitions, rest.WithCtx(ctx))
		if err != nil {
			return total, fmt.Errorf("failed to register commands in guild %d: %w", guildID, err)
		}
		total += len(registered)
	}
	return total, nil
}

func (b *Bot) onGuildReady(event *events.GuildReady) {
	b.members.OnGuildReady(event)
}

// onGuildsReady starts the startup inventory once every guild of the shard
// is available. Live events queued meanwhile are applied afterwards.
func (b *Bot) onGuildsReady(_ *events.GuildsReady) {
	guildIDs := b.members.Guilds()
	b.logger.Info("Guilds ready, starting inventory", zap.Int("guilds", len(guildIDs)))

	go b.tracker.Run(b.ctx, b.inventory, guildIDs)
}

func (b *Bot) onGuildMemberJoin(event *events.GuildMemberJoin) {
	b.members.OnGuildMemberJoin(event)
}

func (b *Bot) onGuildMemberUpdate(event *events.GuildMemberUpdate) {
	b.members.OnGuildMemberUpdate(event)
}

func (b *Bot) onGuildMemberLeave(event *events.GuildMemberLeave) {
	b.members.OnGuildMemberLeave(event)
}

func (b *Bot) onRoleCreate(event *events.RoleCreate) {
	b.members.OnRoleCreate(event)
}

func (b *Bot) onRoleUpdate(event *events.RoleUpdate) {
	b.members.OnRoleUpdate(event)
}

func (b *Bot) onApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	b.commands.OnApplicationCommandInteraction(event)
}

func (b *Bot) onModalSubmit(event *events.ModalSubmitInteractionCreate) {
	b.commands.OnModalSubmit(event)
}
