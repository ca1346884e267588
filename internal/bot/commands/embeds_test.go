package commands_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/sentinel/internal/ai"
	"github.com/robalyx/sentinel/internal/bot/commands"
	"github.com/robalyx/sentinel/internal/bot/constants"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/raidhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestDefinitions(t *testing.T) {
	t.Parallel()

	defs := commands.Definitions()
	require.Len(t, defs, 19)

	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		slash, ok := def.(discord.SlashCommandCreate)
		require.True(t, ok)
		assert.False(t, seen[slash.Name], "duplicate command %s", slash.Name)
		seen[slash.Name] = true

		optional := false
		for _, opt := range slash.Options {
			required := isRequired(opt)
			assert.False(t, optional && required, "%s: required option after optional one", slash.Name)
			optional = optional || !required
		}
	}

	assert.True(t, seen[constants.CheckSignupsCommandName])
	assert.True(t, seen[constants.ExtractActivityCommandName])
}

func isRequired(opt discord.ApplicationCommandOption) bool {
	switch o := opt.(type) {
	case discord.ApplicationCommandOptionString:
		return o.Required
	case discord.ApplicationCommandOptionInt:
		return o.Required
	case discord.ApplicationCommandOptionUser:
		return o.Required
	case discord.ApplicationCommandOptionRole:
		return o.Required
	case discord.ApplicationCommandOptionChannel:
		return o.Required
	case discord.ApplicationCommandOptionAttachment:
		return o.Required
	default:
		return false
	}
}

func TestScheduleListEmbeds(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		embeds := commands.ScheduleListEmbeds(nil)
		require.Len(t, embeds, 1)
		assert.Equal(t, "No scheduled messages found.", embeds[0].Description)
	})

	t.Run("paged by ten", func(t *testing.T) {
		t.Parallel()

		messages := make([]*types.ScheduledMessage, 0, 23)
		for i := range 23 {
			messages = append(messages, &types.ScheduledMessage{
				ID:            int64(i + 1),
				Name:          strings.Repeat("n", 60),
				ChannelID:     7,
				Message:       strings.Repeat("m", 150),
				IntervalHours: 1,
				NextRun:       now,
				IsActive:      i%2 == 0,
			})
		}

		embeds := commands.ScheduleListEmbeds(messages)
		require.Len(t, embeds, 3)
		assert.Equal(t, "📅 Scheduled Messages", embeds[0].Title)
		assert.Equal(t, "📅 Scheduled Messages (Continued)", embeds[1].Title)
		assert.Len(t, embeds[0].Fields, 10)
		assert.Len(t, embeds[2].Fields, 3)

		field := embeds[0].Fields[0]
		assert.Equal(t, "ID: 1 - "+strings.Repeat("n", 40), field.Name)
		assert.Contains(t, field.Value, "**Channel:** <#7>")
		assert.Contains(t, field.Value, strings.Repeat("m", 97)+"...")
		assert.Contains(t, field.Value, "✅ Yes")
		assert.Contains(t, embeds[0].Fields[1].Value, "❌ No")
	})
}

func TestScheduleSavedEmbed(t *testing.T) {
	t.Parallel()

	msg := &types.ScheduledMessage{
		ID: 4, Name: "Raid", ChannelID: 9, Message: "Sign up", IntervalDays: 7,
		RoleIDs: []uint64{11}, NextRun: now,
	}

	embed := commands.ScheduleSavedEmbed(msg, true, true)
	assert.Equal(t, "✅ Scheduled Message Added", embed.Title)
	assert.Equal(t, "💡 Custom start time was used (UTC timezone)", embed.Footer.Text)

	names := make([]string, 0, len(embed.Fields))
	for _, field := range embed.Fields {
		names = append(names, field.Name)
	}
	assert.Equal(t, []string{"ID", "Title", "Channel", "Interval", "First Run (UTC)", "Roles to Ping", "Message Preview"}, names)

	edited := commands.ScheduleSavedEmbed(msg, false, false)
	assert.Equal(t, "✅ Scheduled Message Updated", edited.Title)
	assert.Equal(t, "⏰ All times are in UTC timezone", edited.Footer.Text)
}

func TestScheduleToggledEmbed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "✅ Scheduled Message Enabled", commands.ScheduleToggledEmbed(3, true).Title)
	paused := commands.ScheduleToggledEmbed(3, false)
	assert.Equal(t, "⏸️ Scheduled Message Disabled", paused.Title)
	assert.Equal(t, constants.WarningEmbedColor, paused.Color)
}

func TestSignupEmbed(t *testing.T) {
	t.Parallel()

	event := &raidhelper.Event{ID: "123", Title: "Molten Core"}

	t.Run("everyone signed up", func(t *testing.T) {
		t.Parallel()

		embed := commands.SignupEmbed(event, 5, &raidhelper.Comparison{SignedUp: []uint64{1, 2}})
		assert.Equal(t, "📊 Signup Check: Molten Core", embed.Title)
		assert.Equal(t, constants.SuccessEmbedColor, embed.Color)
		assert.Equal(t, "🎉 Everyone has signed up!", embed.Footer.Text)
		assert.Contains(t, embed.Fields[0].Value, "(100.0%)")
	})

	t.Run("missing members", func(t *testing.T) {
		t.Parallel()

		missing := make([]uint64, 25)
		for i := range missing {
			missing[i] = uint64(i + 10)
		}

		embed := commands.SignupEmbed(event, 5, &raidhelper.Comparison{SignedUp: []uint64{1}, Missing: missing})
		assert.Equal(t, constants.WarningEmbedColor, embed.Color)
		assert.Equal(t, "⚠️ 25 member(s) haven't signed up yet", embed.Footer.Text)
		require.Len(t, embed.Fields, 3)
		assert.Equal(t, "Too many to list (25)", embed.Fields[1].Value)
		assert.Equal(t, "<@1>", embed.Fields[2].Value)
	})
}

func TestEventsEmbed(t *testing.T) {
	t.Parallel()

	events := []raidhelper.Event{
		{ID: "1", Title: "Raid", LeaderID: "42", StartTime: now.Unix()},
		{ID: "2", Title: "Dungeon"},
	}

	embed := commands.EventsEmbed(events, 30)
	require.Len(t, embed.Fields, 2)
	assert.Contains(t, embed.Fields[0].Value, fmt.Sprintf("<t:%d:F>", now.Unix()))
	assert.Contains(t, embed.Fields[0].Value, "<@42>")
	assert.Contains(t, embed.Fields[1].Value, "**Leader:** N/A")
	assert.Equal(t, "Showing 2 of 30 events", embed.Footer.Text)

	assert.Equal(t, "No upcoming events found.", commands.EventsEmbed(nil, 0).Description)
}

func TestActivityEmbed(t *testing.T) {
	t.Parallel()

	t.Run("no entries", func(t *testing.T) {
		t.Parallel()

		embed := commands.ActivityEmbed(&ai.ActivityResult{Images: 1}, now)
		assert.Equal(t, "No member data could be extracted", embed.Description)
		assert.Empty(t, embed.Fields)
	})

	t.Run("split fields and summary", func(t *testing.T) {
		t.Parallel()

		entries := make([]ai.ActivityEntry, 0, 80)
		for i := range 80 {
			entries = append(entries, ai.ActivityEntry{
				MemberName:         fmt.Sprintf("Member%02d", i),
				WeekActivityPoints: 100000 - i*1000,
			})
		}

		embed := commands.ActivityEmbed(&ai.ActivityResult{Entries: entries, Images: 2, Failed: []string{"c.png"}}, now)
		require.GreaterOrEqual(t, len(embed.Fields), 3)
		assert.Equal(t, "Members (Part 1)", embed.Fields[0].Name)

		summary := embed.Fields[len(embed.Fields)-1]
		assert.Equal(t, "📈 Summary", summary.Name)
		assert.Contains(t, summary.Value, "Member00 (100,000)")
		assert.Contains(t, summary.Value, "Member79 (21,000)")
		assert.Equal(t, "⚠️ Could not analyze: c.png", embed.Footer.Text)
	})
}

func TestRecentChangesEmbed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "No recent name changes found.", commands.RecentChangesEmbed(nil, now).Description)

	embed := commands.RecentChangesEmbed([]*types.ChangeEntry{
		{Type: types.ChangeTypeNickname, UserID: 1, OldValue: "", NewValue: "Ally", ChangedAt: now},
		{Type: types.ChangeTypeRole, UserID: 1, RoleID: 9, Action: types.RoleActionRemoved, ChangedAt: now},
	}, now)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Nickname Change", embed.Fields[0].Name)
	assert.Contains(t, embed.Fields[0].Value, "**From:** *none*")
	assert.Equal(t, "Role Removed", embed.Fields[1].Name)
	assert.Contains(t, embed.Fields[1].Value, "<@&9>")
}

func TestRoleHistoryEmbed(t *testing.T) {
	t.Parallel()

	history := make([]*types.RoleHistoryEntry, 0, 12)
	for i := range 12 {
		history = append(history, &types.RoleHistoryEntry{RoleID: uint64(i), RoleName: "Role", Action: types.RoleActionAdded})
	}

	embed := commands.RoleHistoryEmbed(discord.User{ID: 1, Username: "alice"}, history, now)
	assert.Equal(t, "Role History for alice", embed.Title)
	assert.Len(t, embed.Fields, constants.MaxRoleHistory)
	assert.Equal(t, "Showing 10 of 12 changes", embed.Footer.Text)
}

func TestUserStatsEmbed(t *testing.T) {
	t.Parallel()

	user := discord.User{ID: 175928847299117063, Username: "alice"}
	member := &discord.Member{User: user, RoleIDs: nil, JoinedAt: now}
	stats := &types.UserStats{UsernameChanges: 2, NicknameChanges: 1, RoleChanges: 4, LastActivity: now}

	embed := commands.UserStatsEmbed(user, member, stats, now)
	names := make([]string, 0, len(embed.Fields))
	for _, field := range embed.Fields {
		names = append(names, field.Name)
	}
	assert.Equal(t, []string{"User Info", "Joined Server", "Account Created", "Activity Statistics", "Last Activity"}, names)
	assert.Contains(t, embed.Fields[3].Value, "**Role Changes:** 4")

	outsider := commands.UserStatsEmbed(user, nil, nil, now)
	assert.Len(t, outsider.Fields, 2)
}
