package constants

const (
	// Tracking commands.
	UserStatsCommandName      = "user_stats"
	ServerStatsCommandName    = "server_stats"
	RecentChangesCommandName  = "recent_changes"
	RoleHistoryCommandName    = "role_history"
	WeeklyActivityCommandName = "weekly_activity"

	// Admin commands.
	SyncCommandName                  = "sync"
	DatabaseStatsCommandName         = "database_stats"
	CleanupOldDataCommandName        = "cleanup_old_data"
	ExportUserDataCommandName        = "export_user_data"
	InfoCommandName                  = "info"
	CleanupDuplicateRolesCommandName = "cleanup_duplicate_roles"

	// Schedule commands.
	ScheduleAddCommandName    = "schedule_add"
	ScheduleListCommandName   = "schedule_list"
	ScheduleEditCommandName   = "schedule_edit"
	ScheduleRemoveCommandName = "schedule_remove"
	ScheduleToggleCommandName = "schedule_toggle"

	// Event and activity commands.
	CheckSignupsCommandName    = "checksignups"
	EventsCommandName          = "events"
	ExtractActivityCommandName = "extract_activity"

	// Options.
	UserOption        = "user"
	LimitOption       = "limit"
	DaysOption        = "days"
	HoursOption       = "hours"
	MinutesOption     = "minutes"
	NameOption        = "name"
	ChannelOption     = "channel"
	MessageOption     = "message"
	StartTimeOption   = "start_time"
	RolesOption       = "roles"
	EmbedTitleOption  = "embed_title"
	EmbedColorOption  = "embed_color"
	IDOption          = "id"
	EventIDOption     = "event_id"
	RoleOption        = "role"
	ImageOptionPrefix = "image"

	// Modals.
	ScheduleAddModalPrefix  = "schedule_add:"
	ScheduleEditModalPrefix = "schedule_edit:"
	MessageInputCustomID    = "message"

	// Colors.
	InfoEmbedColor    = 0x3498db
	SuccessEmbedColor = 0x2ecc71
	WarningEmbedColor = 0xe67e22
	ErrorEmbedColor   = 0xe74c3c
	ChartEmbedColor   = 0x5865f2
	PurpleEmbedColor  = 0x9b59b6

	// Limits.
	MaxRecentChanges     = 25
	DefaultRecentChanges = 10
	MaxRoleHistory       = 10
	SchedulesPerEmbed    = 10
	MaxListedMembers     = 20
	MessagePreviewLength = 100
	ScheduleNameLength   = 40

	// Common.
	NotApplicable     = "N/A"
	UnauthorizedText  = "❌ You need administrator permissions to use this command."
	InternalErrorText = "❌ Internal error. Please report this to an administrator."
	GuildOnlyText     = "❌ This command can only be used in a server."
	WeeklyChartFile   = "weekly_activity.png"
)
