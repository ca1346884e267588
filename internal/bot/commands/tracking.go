package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/bot/chart"
	"github.com/robalyx/sentinel/internal/bot/constants"
	"github.com/robalyx/sentinel/internal/database/types"
)

func (h *Handler) userStats(r *Request) error {
	user, member := r.optUser(constants.UserOption)

	stats, err := h.deps.DB.Model().Stats().UserStats(r.Context(), uint64(user.ID))
	if err != nil && !errors.Is(err, types.ErrUserNotFound) {
		return err
	}

	r.Embeds(UserStatsEmbed(user, member, stats, time.Now()))
	return nil
}

func (h *Handler) serverStats(r *Request) error {
	guild, err := r.client.Rest().GetGuild(snowflake.ID(r.GuildID), true, rest.WithCtx(r.Context()))
	if err != nil {
		return fmt.Errorf("failed to get guild: %w", err)
	}

	stats, err := h.deps.DB.Model().Stats().ServerStats(r.Context(), r.GuildID, time.Now())
	if err != nil {
		return err
	}

	r.Embeds(ServerStatsEmbed(guild.Guild, guild.ApproximateMemberCount, stats, time.Now()))
	return nil
}

func (h *Handler) recentChanges(r *Request) error {
	limit := constants.DefaultRecentChanges
	if v := r.optInt(constants.LimitOption); v != nil {
		limit = min(max(*v, 1), constants.MaxRecentChanges)
	}

	changes, err := h.deps.DB.Model().Stats().RecentChanges(r.Context(), r.GuildID, limit)
	if err != nil {
		return err
	}

	r.Embeds(RecentChangesEmbed(changes, time.Now()))
	return nil
}

func (h *Handler) roleHistory(r *Request) error {
	user, _ := r.optUser(constants.UserOption)

	history, err := h.deps.DB.Model().Stats().RoleHistory(r.Context(), uint64(user.ID), r.GuildID)
	if err != nil {
		return err
	}

	r.Embeds(RoleHistoryEmbed(user, history, time.Now()))
	return nil
}

func (h *Handler) weeklyActivity(r *Request) error {
	days, err := h.deps.DB.Model().Stats().WeeklyActivity(r.Context(), r.GuildID, time.Now())
	if err != nil {
		return err
	}

	builder := chart.NewWeeklyBuilder(days, "Changes per Weekday")
	buf, err := builder.Build()
	if err != nil {
		return err
	}

	r.Update(discord.NewMessageUpdateBuilder().
		SetEmbeds(WeeklyActivityEmbed(builder.Total(), time.Now())).
		AddFiles(discord.NewFile(constants.WeeklyChartFile, "", buf)).
		Build())
	return nil
}

func (h *Handler) info(r *Request) error {
	stats, err := h.deps.DB.Model().Stats().DatabaseStats(r.Context())
	if err != nil {
		return err
	}

	self, _ := r.client.Caches().SelfUser()
	guilds := r.client.Caches().GuildsLen()
	var latency time.Duration
	if gw := r.client.Gateway(); gw != nil {
		latency = gw.Latency()
	}

	r.Embeds(InfoEmbed(self.User, guilds, stats.UserCount, latency, time.Since(h.startedAt), time.Now()))
	return nil
}
