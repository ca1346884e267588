package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/sentinel/internal/ai"
	"github.com/robalyx/sentinel/internal/bot/constants"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/export"
	"github.com/robalyx/sentinel/internal/raidhelper"
	"github.com/robalyx/sentinel/internal/scheduler"
	"github.com/robalyx/sentinel/pkg/utils"
)

const maxFieldLength = 1024

// UserStatsEmbed summarizes a user. Member is nil when the user is not in the guild.
func UserStatsEmbed(user discord.User, member *discord.Member, stats *types.UserStats, now time.Time) discord.Embed {
	embed := discord.NewEmbedBuilder().
		SetTitle("User Statistics for "+user.EffectiveName()).
		SetColor(constants.InfoEmbedColor).
		SetThumbnail(user.EffectiveAvatarURL()).
		SetTimestamp(now).
		AddField("User Info", fmt.Sprintf("**ID:** %d\n**Username:** %s\n**Display Name:** %s",
			user.ID, user.Username, user.EffectiveName()), false)

	if member != nil && !member.JoinedAt.IsZero() {
		embed.AddField("Joined Server", timestamp(member.JoinedAt, "F"), true)
	}
	embed.AddField("Account Created", timestamp(user.ID.Time(), "F"), true)

	if stats != nil {
		embed.AddField("Activity Statistics", fmt.Sprintf(
			"**Username Changes:** %d\n**Nickname Changes:** %d\n**Role Changes:** %d",
			stats.UsernameChanges, stats.NicknameChanges, stats.RoleChanges), false)

		if !stats.LastActivity.IsZero() {
			embed.AddField("Last Activity", timestamp(stats.LastActivity, "R"), true)
		}
	}

	if member != nil && len(member.RoleIDs) > 0 {
		mentions := make([]string, 0, len(member.RoleIDs))
		for _, roleID := range member.RoleIDs {
			mentions = append(mentions, fmt.Sprintf("<@&%d>", roleID))
		}

		value := strings.Join(mentions, " ")
		if len(value) > maxFieldLength {
			value = fmt.Sprintf("%d roles", len(mentions))
		}
		embed.AddField(fmt.Sprintf("Roles (%d)", len(mentions)), value, false)
	}

	return embed.Build()
}

// ServerStatsEmbed summarizes a guild.
func ServerStatsEmbed(guild discord.Guild, memberCount int, stats *types.ServerStats, now time.Time) discord.Embed {
	embed := discord.NewEmbedBuilder().
		SetTitle("Server Statistics for "+guild.Name).
		SetColor(constants.SuccessEmbedColor).
		SetTimestamp(now).
		AddField("Server Info", fmt.Sprintf("**Members:** %d\n**Created:** %s",
			memberCount, timestamp(guild.ID.Time(), "F")), false)

	if icon := guild.IconURL(); icon != nil {
		embed.SetThumbnail(*icon)
	}

	if stats != nil {
		embed.AddField("Tracking Statistics", fmt.Sprintf(
			"**Total Users Tracked:** %d\n**Username Changes:** %d\n**Nickname Changes:** %d\n**Role Changes:** %d",
			stats.TotalUsers, stats.TotalUsernameChanges, stats.TotalNicknameChanges, stats.TotalRoleChanges), false)
		embed.AddField("Recent Activity (Last 24h)", fmt.Sprintf(
			"**New Members:** %d\n**Left Members:** %d\n**Name Changes:** %d",
			stats.NewMembers24h, stats.LeftMembers24h, stats.NameChanges24h), false)
	}

	return embed.Build()
}

// RecentChangesEmbed lists the newest entries of the change feed.
func RecentChangesEmbed(changes []*types.ChangeEntry, now time.Time) discord.Embed {
	embed := discord.NewEmbedBuilder().
		SetTitle("Recent Name Changes").
		SetColor(constants.WarningEmbedColor).
		SetTimestamp(now)

	if len(changes) == 0 {
		return embed.SetDescription("No recent name changes found.").Build()
	}

	for _, change := range changes {
		switch change.Type {
		case types.ChangeTypeRole:
			embed.AddField("Role "+actionLabel(change.Action), fmt.Sprintf(
				"**User:** <@%d>\n**Role:** %s\n**When:** %s",
				change.UserID, roleLabel(change.RoleName, change.RoleID), timestamp(change.ChangedAt, "R")), false)
		default:
			label := "Username"
			if change.Type == types.ChangeTypeNickname {
				label = "Nickname"
			}
			embed.AddField(label+" Change", fmt.Sprintf(
				"**User:** <@%d>\n**From:** %s\n**To:** %s\n**When:** %s",
				change.UserID, orNone(change.OldValue), orNone(change.NewValue), timestamp(change.ChangedAt, "R")), false)
		}
	}

	return embed.Build()
}

// RoleHistoryEmbed lists the newest role changes of a user.
func RoleHistoryEmbed(user discord.User, history []*types.RoleHistoryEntry, now time.Time) discord.Embed {
	embed := discord.NewEmbedBuilder().
		SetTitle("Role History for "+user.EffectiveName()).
		SetColor(constants.PurpleEmbedColor).
		SetThumbnail(user.EffectiveAvatarURL()).
		SetTimestamp(now)

	if len(history) == 0 {
		return embed.SetDescription("No role changes found for this user.").Build()
	}

	for _, entry := range history[:min(len(history), constants.MaxRoleHistory)] {
		embed.AddField("Role "+actionLabel(entry.Action), fmt.Sprintf("**Role:** %s\n**When:** %s",
			roleLabel(entry.RoleName, entry.RoleID), timestamp(entry.ChangedAt, "R")), true)
	}
	if len(history) > constants.MaxRoleHistory {
		embed.SetFooterText(fmt.Sprintf("Showing %d of %d changes", constants.MaxRoleHistory, len(history)))
	}

	return embed.Build()
}

// WeeklyActivityEmbed frames the weekday chart attachment.
func WeeklyActivityEmbed(total int, now time.Time) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("📈 Weekly Activity").
		SetDescription(fmt.Sprintf("**%d** changes recorded in the last 7 days.", total)).
		SetColor(constants.ChartEmbedColor).
		SetImage("attachment://" + constants.WeeklyChartFile).
		SetTimestamp(now).
		Build()
}

// DatabaseStatsEmbed shows table counts.
func DatabaseStatsEmbed(stats *types.DatabaseStats, now time.Time) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("Database Statistics").
		SetColor(constants.InfoEmbedColor).
		SetTimestamp(now).
		AddField("Table Counts", fmt.Sprintf(
			"**Users:** %d\n**Username Changes:** %d\n**Nickname Changes:** %d\n**Role Changes:** %d\n**Join/Leave Events:** %d",
			stats.UserCount, stats.UsernameChanges, stats.NicknameChanges, stats.RoleChanges, stats.JoinLeaveEvents), false).
		Build()
}

// CleanupEmbed reports a retention cleanup.
func CleanupEmbed(deleted, days int, now time.Time) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("Data Cleanup Complete").
		SetColor(constants.SuccessEmbedColor).
		SetTimestamp(now).
		AddField("Results", fmt.Sprintf("**Records deleted:** %d\n**Retention period:** %d days", deleted, days), false).
		Build()
}

// DuplicateCleanupEmbed reports removed duplicate initial role rows.
func DuplicateCleanupEmbed(removed int, now time.Time) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("🧹 Database Cleanup Completed").
		SetDescription(fmt.Sprintf("Removed **%d** duplicate initial role entries.", removed)).
		SetColor(constants.SuccessEmbedColor).
		SetTimestamp(now).
		AddField("What was cleaned?",
			"• Removed duplicate 'initial' role entries\n• Kept only the oldest entry per user and role", false).
		Build()
}

// ExportEmbed summarizes an export whose files are attached.
func ExportEmbed(user discord.User, summary *export.Summary, now time.Time) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("Data Export for "+user.EffectiveName()).
		SetColor(constants.InfoEmbedColor).
		SetTimestamp(now).
		AddField("Export Summary", fmt.Sprintf(
			"**Username Changes:** %d\n**Nickname Changes:** %d\n**Role Changes:** %d\n**Join/Leave Events:** %d",
			summary.UsernameChanges, summary.NicknameChanges, summary.RoleChanges, summary.JoinLeaveEvents), false).
		SetFooterText(fmt.Sprintf("%d records in total", summary.Total)).
		Build()
}

// InfoEmbed describes the bot.
func InfoEmbed(self discord.User, guilds, tracked int, latency, uptime time.Duration, now time.Time) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("Sentinel Tracking Bot").
		SetDescription("A Discord bot for tracking member activity and changes").
		SetColor(constants.InfoEmbedColor).
		SetThumbnail(self.EffectiveAvatarURL()).
		SetTimestamp(now).
		AddField("Bot Information", fmt.Sprintf("**Guilds:** %d\n**Users Tracked:** %s\n**Latency:** %dms\n**Uptime:** %s",
			guilds, utils.FormatNumber(uint64(tracked)), latency.Milliseconds(), utils.FormatDuration(uptime)), true).
		AddField("Features", "• Username and nickname change logs\n• Role change tracking\n"+
			"• Join and leave logging\n• Scheduled messages\n• Web dashboard", true).
		AddField("Commands", "`/user_stats` - User statistics\n`/server_stats` - Server statistics\n"+
			"`/recent_changes` - Recent changes\n`/role_history` - Role history", false).
		Build()
}

// ScheduleListEmbeds renders scheduled messages with at most ten per embed.
func ScheduleListEmbeds(messages []*types.ScheduledMessage) []discord.Embed {
	if len(messages) == 0 {
		return []discord.Embed{discord.NewEmbedBuilder().
			SetTitle("📅 Scheduled Messages").
			SetDescription("No scheduled messages found.").
			SetColor(constants.InfoEmbedColor).
			Build()}
	}

	embeds := make([]discord.Embed, 0, (len(messages)+constants.SchedulesPerEmbed-1)/constants.SchedulesPerEmbed)
	for start := 0; start < len(messages); start += constants.SchedulesPerEmbed {
		title := "📅 Scheduled Messages"
		if start > 0 {
			title += " (Continued)"
		}

		embed := discord.NewEmbedBuilder().SetTitle(title).SetColor(constants.InfoEmbedColor)
		for _, msg := range messages[start:min(start+constants.SchedulesPerEmbed, len(messages))] {
			embed.AddField(
				fmt.Sprintf("ID: %d - %s", msg.ID, truncate(msg.Name, constants.ScheduleNameLength)),
				fmt.Sprintf("**Channel:** <#%d>\n**Interval:** %s\n**Next Run (UTC):** %s\n**Roles:** %s\n**Message:** %s\n**Active:** %s",
					msg.ChannelID, intervalOf(msg), timestamp(msg.NextRun, "R"), rolesText(msg.RoleIDs),
					utils.Truncate(msg.Message, constants.MessagePreviewLength), activeText(msg.IsActive)),
				false)
		}
		embeds = append(embeds, embed.Build())
	}

	return embeds
}

// ScheduleSavedEmbed confirms a created or edited message.
func ScheduleSavedEmbed(msg *types.ScheduledMessage, created, customStart bool) discord.Embed {
	title := "✅ Scheduled Message Updated"
	runLabel := "Next Run (UTC)"
	if created {
		title = "✅ Scheduled Message Added"
		runLabel = "First Run (UTC)"
	}

	embed := discord.NewEmbedBuilder().
		SetTitle(title).
		SetColor(constants.SuccessEmbedColor).
		AddField("ID", fmt.Sprintf("%d", msg.ID), true).
		AddField("Title", msg.Title(), true).
		AddField("Channel", fmt.Sprintf("<#%d>", msg.ChannelID), true).
		AddField("Interval", intervalOf(msg), true).
		AddField(runLabel, timestamp(msg.NextRun, "F")+"\n("+timestamp(msg.NextRun, "R")+")", false)

	if len(msg.RoleIDs) > 0 {
		embed.AddField("Roles to Ping", rolesText(msg.RoleIDs), false)
	}
	embed.AddField("Message Preview", truncate(msg.Message, maxFieldLength), false)

	if customStart {
		embed.SetFooterText("💡 Custom start time was used (UTC timezone)")
	} else {
		embed.SetFooterText("⏰ All times are in UTC timezone")
	}

	return embed.Build()
}

// ScheduleRemovedEmbed confirms a deletion.
func ScheduleRemovedEmbed(msg *types.ScheduledMessage) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("✅ Scheduled Message Removed").
		SetDescription(fmt.Sprintf("**%s** (ID: %d) was successfully deleted.", msg.Name, msg.ID)).
		SetColor(constants.SuccessEmbedColor).
		Build()
}

// ScheduleToggledEmbed confirms a state change.
func ScheduleToggledEmbed(id int64, active bool) discord.Embed {
	status, emoji, color := "disabled", "⏸️", constants.WarningEmbedColor
	if active {
		status, emoji, color = "enabled", "✅", constants.SuccessEmbedColor
	}

	return discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("%s Scheduled Message %s", emoji, strings.ToUpper(status[:1])+status[1:])).
		SetDescription(fmt.Sprintf("The scheduled message with ID %d was %s.", id, status)).
		SetColor(color).
		Build()
}

// EventsEmbed lists upcoming Raid-Helper events.
func EventsEmbed(events []raidhelper.Event, total int) discord.Embed {
	embed := discord.NewEmbedBuilder().
		SetTitle("📅 Upcoming Raid-Helper Events").
		SetColor(constants.InfoEmbedColor)

	if len(events) == 0 {
		return embed.SetDescription("No upcoming events found.").Build()
	}

	for _, event := range events {
		leader := constants.NotApplicable
		if id := event.LeaderID.Uint64(); id != 0 {
			leader = fmt.Sprintf("<@%d>", id)
		}

		embed.AddField(truncate(event.Title, 256), fmt.Sprintf("**ID:** `%s`\n**Start:** <t:%d:F>\n**Leader:** %s\n**Signups:** %d",
			event.ID, event.StartTime, leader, len(event.SignedUpUserIDs())), false)
	}

	if total > len(events) {
		embed.SetFooterText(fmt.Sprintf("Showing %d of %d events", len(events), total))
	}

	return embed.Build()
}

// SignupEmbed reports how many role members signed up for an event.
func SignupEmbed(event *raidhelper.Event, roleID uint64, cmp *raidhelper.Comparison) discord.Embed {
	color := constants.SuccessEmbedColor
	if len(cmp.Missing) > 0 {
		color = constants.WarningEmbedColor
	}

	roleMembers := len(cmp.SignedUp) + len(cmp.Missing)
	embed := discord.NewEmbedBuilder().
		SetTitle("📊 Signup Check: "+truncate(event.Title, 200)).
		SetDescription(fmt.Sprintf("Comparing <@&%d> with the signups of event `%s`.", roleID, event.ID)).
		SetColor(color).
		AddField("Statistics", fmt.Sprintf(
			"**Role members:** %d\n**Signed up:** %d (%.1f%%)\n**Missing:** %d\n**Signups outside the role:** %d",
			roleMembers, len(cmp.SignedUp), cmp.Percentage(), len(cmp.Missing), len(cmp.Extra)), false)

	if len(cmp.Missing) > 0 {
		embed.AddField(fmt.Sprintf("❌ Not signed up (%d)", len(cmp.Missing)), userList(cmp.Missing), false)
	}
	if len(cmp.SignedUp) > 0 {
		embed.AddField(fmt.Sprintf("✅ Signed up (%d)", len(cmp.SignedUp)), userList(cmp.SignedUp), false)
	}

	if len(cmp.Missing) == 0 {
		embed.SetFooterText("🎉 Everyone has signed up!")
	} else {
		embed.SetFooterText(fmt.Sprintf("⚠️ %d member(s) haven't signed up yet", len(cmp.Missing)))
	}

	return embed.Build()
}

// ActivityEmbed renders an activity extraction.
func ActivityEmbed(result *ai.ActivityResult, now time.Time) discord.Embed {
	report := ai.FormatActivity(result.Entries)

	embed := discord.NewEmbedBuilder().
		SetTitle("📊 Activity Analysis Results").
		SetColor(constants.SuccessEmbedColor).
		SetTimestamp(now)

	if report.Count == 0 {
		return embed.
			SetColor(constants.WarningEmbedColor).
			SetDescription("No member data could be extracted").
			Build()
	}

	embed.SetDescription(fmt.Sprintf("Extracted **%d** members from %d image(s).\nAnalysis time: %s",
		report.Count, result.Images, timestamp(now, "F")))

	for i, field := range report.Fields {
		name := "Members"
		if len(report.Fields) > 1 {
			name = fmt.Sprintf("Members (Part %d)", i+1)
		}
		embed.AddField(name, field, false)
	}

	embed.AddField("📈 Summary", fmt.Sprintf("**Highest:** %s (%s)\n**Lowest:** %s (%s)",
		report.Highest.MemberName, ai.FormatPoints(report.Highest.WeekActivityPoints),
		report.Lowest.MemberName, ai.FormatPoints(report.Lowest.WeekActivityPoints)), false)

	if len(result.Failed) > 0 {
		embed.SetFooterText("⚠️ Could not analyze: " + strings.Join(result.Failed, ", "))
	}

	return embed.Build()
}

// ErrorEmbed renders a failure message.
func ErrorEmbed(message string) discord.Embed {
	return discord.NewEmbedBuilder().
		SetDescription(message).
		SetColor(constants.ErrorEmbedColor).
		Build()
}

func timestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

func actionLabel(action types.RoleAction) string {
	if action == types.RoleActionRemoved {
		return "Removed"
	}
	return "Added"
}

func roleLabel(name string, id uint64) string {
	if name == "" {
		return fmt.Sprintf("<@&%d>", id)
	}
	return name
}

func orNone(s string) string {
	if s == "" {
		return "*none*"
	}
	return s
}

func intervalOf(msg *types.ScheduledMessage) string {
	return scheduler.Interval{
		Days:    msg.IntervalDays,
		Hours:   msg.IntervalHours,
		Minutes: msg.IntervalMinutes,
	}.String()
}

func rolesText(ids []uint64) string {
	if len(ids) == 0 {
		return "No roles"
	}
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, fmt.Sprintf("<@&%d>", id))
	}
	return strings.Join(mentions, ", ")
}

func activeText(active bool) string {
	if active {
		return "✅ Yes"
	}
	return "❌ No"
}

func userList(ids []uint64) string {
	if len(ids) > constants.MaxListedMembers {
		return fmt.Sprintf("Too many to list (%d)", len(ids))
	}

	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, fmt.Sprintf("<@%d>", id))
	}
	return utils.Truncate(strings.Join(mentions, " "), maxFieldLength)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
