package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/sentinel/internal/ai"
	"github.com/robalyx/sentinel/internal/bot/constants"
	"github.com/robalyx/sentinel/internal/scheduler"
)

// Definitions returns every slash command the bot registers.
func Definitions() []discord.ApplicationCommandCreate {
	commands := make([]discord.ApplicationCommandCreate, 0, 19)
	commands = append(commands, trackingCommands()...)
	commands = append(commands, adminCommands()...)
	commands = append(commands, scheduleCommands()...)
	commands = append(commands, eventCommands()...)
	commands = append(commands, activityCommand())
	return commands
}

func trackingCommands() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        constants.UserStatsCommandName,
			Description: "Show recorded name and role changes for a user",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        constants.UserOption,
					Description: "User to look up (defaults to you)",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        constants.ServerStatsCommandName,
			Description: "Show tracking statistics for this server",
		},
		discord.SlashCommandCreate{
			Name:        constants.RecentChangesCommandName,
			Description: "Show the most recent name changes",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        constants.LimitOption,
					Description: fmt.Sprintf("Number of changes to show (1-%d)", constants.MaxRecentChanges),
					MinValue:    intPtr(1),
					MaxValue:    intPtr(constants.MaxRecentChanges),
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        constants.RoleHistoryCommandName,
			Description: "Show the role changes of a user",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        constants.UserOption,
					Description: "User to look up (defaults to you)",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        constants.WeeklyActivityCommandName,
			Description: "Chart the changes recorded per weekday",
		},
	}
}

func adminCommands() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        constants.SyncCommandName,
			Description: "Register the slash commands again",
		},
		discord.SlashCommandCreate{
			Name:        constants.DatabaseStatsCommandName,
			Description: "Show row counts of the tracking database",
		},
		discord.SlashCommandCreate{
			Name:        constants.CleanupOldDataCommandName,
			Description: "Delete tracking data older than the given number of days",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        constants.DaysOption,
					Description: "Days of history to keep",
					MinValue:    intPtr(1),
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        constants.ExportUserDataCommandName,
			Description: "Export all tracking data of a user",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        constants.UserOption,
					Description: "User to export",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        constants.InfoCommandName,
			Description: "Show bot and tracking information",
		},
		discord.SlashCommandCreate{
			Name:        constants.CleanupDuplicateRolesCommandName,
			Description: "Remove duplicate initial role entries",
		},
	}
}

func scheduleCommands() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        constants.ScheduleAddCommandName,
			Description: "Schedule a recurring message",
			Options: append([]discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        constants.NameOption,
					Description: "Name of the scheduled message",
					Required:    true,
				},
				discord.ApplicationCommandOptionChannel{
					Name:         constants.ChannelOption,
					Description:  "Channel to post in",
					Required:     true,
					ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildText, discord.ChannelTypeGuildNews},
				},
				discord.ApplicationCommandOptionString{
					Name:        constants.MessageOption,
					Description: "Message text (leave empty to write it in a form)",
				},
			}, scheduleOptions()...),
		},
		discord.SlashCommandCreate{
			Name:        constants.ScheduleListCommandName,
			Description: "List the scheduled messages of this server",
		},
		discord.SlashCommandCreate{
			Name:        constants.ScheduleEditCommandName,
			Description: "Edit a scheduled message",
			Options: append([]discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        constants.IDOption,
					Description: "ID of the scheduled message",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        constants.NameOption,
					Description: "New name",
				},
				discord.ApplicationCommandOptionChannel{
					Name:         constants.ChannelOption,
					Description:  "New channel",
					ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildText, discord.ChannelTypeGuildNews},
				},
				discord.ApplicationCommandOptionString{
					Name:        constants.MessageOption,
					Description: "New message text (leave empty to edit it in a form)",
				},
			}, scheduleOptions()...),
		},
		discord.SlashCommandCreate{
			Name:        constants.ScheduleRemoveCommandName,
			Description: "Delete a scheduled message",
			Options:     []discord.ApplicationCommandOption{idOption()},
		},
		discord.SlashCommandCreate{
			Name:        constants.ScheduleToggleCommandName,
			Description: "Pause or resume a scheduled message",
			Options:     []discord.ApplicationCommandOption{idOption()},
		},
	}
}

// scheduleOptions are the optional settings shared by add and edit.
func scheduleOptions() []discord.ApplicationCommandOption {
	return []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        constants.DaysOption,
			Description: "Days between posts",
			MinValue:    intPtr(0),
			MaxValue:    intPtr(scheduler.MaxIntervalDays),
		},
		discord.ApplicationCommandOptionInt{
			Name:        constants.HoursOption,
			Description: "Hours between posts",
			MinValue:    intPtr(0),
			MaxValue:    intPtr(scheduler.MaxIntervalDays * 24),
		},
		discord.ApplicationCommandOptionInt{
			Name:        constants.MinutesOption,
			Description: "Minutes between posts",
			MinValue:    intPtr(0),
			MaxValue:    intPtr(scheduler.MaxIntervalDays * 24 * 60),
		},
		discord.ApplicationCommandOptionString{
			Name:        constants.StartTimeOption,
			Description: "First post in UTC, as YYYY-MM-DD HH:MM",
		},
		discord.ApplicationCommandOptionString{
			Name:        constants.RolesOption,
			Description: "Roles to mention, or none",
		},
		discord.ApplicationCommandOptionString{
			Name:        constants.EmbedTitleOption,
			Description: "Embed title (defaults to the name)",
		},
		discord.ApplicationCommandOptionString{
			Name:        constants.EmbedColorOption,
			Description: "Embed color as hex, such as #3498db",
		},
	}
}

func idOption() discord.ApplicationCommandOption {
	return discord.ApplicationCommandOptionInt{
		Name:        constants.IDOption,
		Description: "ID of the scheduled message",
		Required:    true,
	}
}

func eventCommands() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        constants.CheckSignupsCommandName,
			Description: "Compare the members of a role with the signups of an event",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        constants.EventIDOption,
					Description: "Raid-Helper event ID",
					Required:    true,
				},
				discord.ApplicationCommandOptionRole{
					Name:        constants.RoleOption,
					Description: "Role whose members should sign up",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        constants.EventsCommandName,
			Description: "List upcoming Raid-Helper events",
		},
	}
}

func activityCommand() discord.ApplicationCommandCreate {
	options := make([]discord.ApplicationCommandOption, 0, ai.MaxImages)
	for i := 1; i <= ai.MaxImages; i++ {
		description := "Additional screenshot"
		if i == 1 {
			description = "Screenshot of the activity leaderboard"
		}
		options = append(options, discord.ApplicationCommandOptionAttachment{
			Name:        imageOption(i),
			Description: description,
			Required:    i == 1,
		})
	}

	return discord.SlashCommandCreate{
		Name:        constants.ExtractActivityCommandName,
		Description: "Read member names and weekly points from screenshots",
		Options:     options,
	}
}

func imageOption(i int) string {
	return fmt.Sprintf("%s%d", constants.ImageOptionPrefix, i)
}

func intPtr(v int) *int {
	return &v
}
