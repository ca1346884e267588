package commands

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/robalyx/sentinel/internal/bot/constants"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/scheduler"
	"go.uber.org/zap"
)

// pendingSchedule is a schedule command waiting for its message form.
type pendingSchedule struct {
	userID uint64
	draft  *scheduler.Draft
	edit   *scheduler.Edit
	id     int64
}

// validationErrors are scheduler errors shown to the user as they are.
var validationErrors = []error{ //nolint:gochecknoglobals // lookup table
	scheduler.ErrInvalidInterval,
	scheduler.ErrIntervalTooLong,
	scheduler.ErrInvalidStartTime,
	scheduler.ErrEmptyMessage,
	scheduler.ErrMessageLength,
	scheduler.ErrEmptyName,
	scheduler.ErrInvalidColor,
	scheduler.ErrNothingToEdit,
}

func (h *Handler) needsForm(data discord.SlashCommandInteractionData) bool {
	switch data.CommandName() {
	case constants.ScheduleAddCommandName, constants.ScheduleEditCommandName:
		message, _ := data.OptString(constants.MessageOption)
		return strings.TrimSpace(message) == ""
	default:
		return false
	}
}

// openScheduleForm asks for the message text in a modal and keeps the other
// options until the form is submitted.
func (h *Handler) openScheduleForm(
	event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData,
) {
	guildID := uint64(*event.GuildID())
	pending := &pendingSchedule{userID: uint64(event.User().ID)}

	var (
		prefix  string
		title   string
		current string
	)

	switch data.CommandName() {
	case constants.ScheduleAddCommandName:
		pending.draft = draftFromOptions(data, guildID, pending.userID)
		prefix, title = constants.ScheduleAddModalPrefix, "Add Scheduled Message"
	default:
		id, _ := data.OptInt(constants.IDOption)
		msg, err := h.deps.DB.Model().Schedule().Get(h.ctx, int64(id), guildID)
		if err != nil {
			if errors.Is(err, types.ErrScheduleNotFound) {
				h.respondNow(event, errorText("Scheduled message with ID %d not found!", id))
				return
			}
			h.logger.Error("Failed to load scheduled message", zap.Int("id", id), zap.Error(err))
			h.respondNow(event, errorText("Error editing scheduled message."))
			return
		}

		pending.id = msg.ID
		pending.edit = editFromOptions(data)
		prefix, title, current = constants.ScheduleEditModalPrefix, "Edit Scheduled Message", msg.Message
	}

	key := uuid.New().String()
	h.pending.Set(key, pending)

	err := event.Modal(discord.NewModalCreateBuilder().
		SetCustomID(prefix+key).
		SetTitle(title).
		AddActionRow(discord.TextInputComponent{
			CustomID:    constants.MessageInputCustomID,
			Style:       discord.TextInputStyleParagraph,
			Label:       "Message Content",
			Placeholder: "Enter your message here. Markdown and emojis are supported.",
			Required:    true,
			MaxLength:   scheduler.MaxMessageLength,
			Value:       current,
		}).
		Build())
	if err != nil {
		h.pending.Delete(key)
		h.logger.Error("Failed to open schedule form", zap.Error(err))
	}
}

func (h *Handler) submitScheduleForm(r *Request, customID, message string) error {
	key := strings.TrimPrefix(strings.TrimPrefix(customID, constants.ScheduleAddModalPrefix), constants.ScheduleEditModalPrefix)

	pending, ok := h.pending.Get(key)
	if !ok || pending.userID != uint64(r.User.ID) {
		r.Text(errorText("This form has expired. Please run the command again."))
		return nil
	}
	h.pending.Delete(key)

	if pending.draft != nil {
		pending.draft.Message = message
		return h.saveDraft(r, pending.draft)
	}

	current, err := h.deps.DB.Model().Schedule().Get(r.Context(), pending.id, r.GuildID)
	if errors.Is(err, types.ErrScheduleNotFound) {
		r.Text(errorText("Scheduled message with ID %d not found!", pending.id))
		return nil
	}
	if err != nil {
		return err
	}

	pending.edit.Message = message
	return h.saveEdit(r, current, pending.edit)
}

func (h *Handler) scheduleAdd(r *Request) error {
	return h.saveDraft(r, draftFromOptions(r.data, r.GuildID, uint64(r.User.ID)))
}

func (h *Handler) scheduleEdit(r *Request) error {
	id := r.optInt(constants.IDOption)

	current, err := h.deps.DB.Model().Schedule().Get(r.Context(), int64(*id), r.GuildID)
	if errors.Is(err, types.ErrScheduleNotFound) {
		r.Text(errorText("Scheduled message with ID %d not found!", *id))
		return nil
	}
	if err != nil {
		return err
	}

	return h.saveEdit(r, current, editFromOptions(r.data))
}

func (h *Handler) saveDraft(r *Request, draft *scheduler.Draft) error {
	msg, err := draft.Build(time.Now())
	if text, ok := validationText(err); ok {
		r.Text(text)
		return nil
	}
	if err != nil {
		return err
	}

	if roleID, ok := h.rolesExist(r, msg.RoleIDs); !ok {
		r.Text(errorText("Role with ID %d not found!", roleID))
		return nil
	}

	if err := h.deps.DB.Model().Schedule().Create(r.Context(), msg); err != nil {
		return err
	}

	h.logger.Info("Added scheduled message",
		zap.Int64("id", msg.ID),
		zap.Uint64("guildID", msg.GuildID),
		zap.Time("nextRun", msg.NextRun))

	r.Embeds(ScheduleSavedEmbed(msg, true, draft.StartTime != ""))
	return nil
}

func (h *Handler) saveEdit(r *Request, current *types.ScheduledMessage, edit *scheduler.Edit) error {
	patch, nextRun, err := edit.Plan(current, time.Now())
	if text, ok := validationText(err); ok {
		r.Text(text)
		return nil
	}
	if err != nil {
		return err
	}

	if patch.RoleIDs != nil {
		if roleID, ok := h.rolesExist(r, *patch.RoleIDs); !ok {
			r.Text(errorText("Role with ID %d not found!", roleID))
			return nil
		}
	}

	schedules := h.deps.DB.Model().Schedule()
	if err := schedules.Update(r.Context(), current.ID, r.GuildID, patch, nextRun); err != nil {
		return err
	}

	updated, err := schedules.Get(r.Context(), current.ID, r.GuildID)
	if err != nil {
		return err
	}

	h.logger.Info("Edited scheduled message", zap.Int64("id", updated.ID), zap.Uint64("guildID", updated.GuildID))
	r.Embeds(ScheduleSavedEmbed(updated, false, edit.StartTime != ""))
	return nil
}

func (h *Handler) scheduleList(r *Request) error {
	messages, err := h.deps.DB.Model().Schedule().List(r.Context(), r.GuildID)
	if err != nil {
		return err
	}

	r.Embeds(ScheduleListEmbeds(messages)...)
	return nil
}

func (h *Handler) scheduleRemove(r *Request) error {
	id := int64(*r.optInt(constants.IDOption))
	schedules := h.deps.DB.Model().Schedule()

	msg, err := schedules.Get(r.Context(), id, r.GuildID)
	if errors.Is(err, types.ErrScheduleNotFound) {
		r.Text(errorText("Scheduled message with ID %d not found!", id))
		return nil
	}
	if err != nil {
		return err
	}

	if err := schedules.Delete(r.Context(), id, r.GuildID); err != nil {
		return err
	}

	h.logger.Info("Removed scheduled message", zap.Int64("id", id), zap.Uint64("guildID", r.GuildID))
	r.Embeds(ScheduleRemovedEmbed(msg))
	return nil
}

func (h *Handler) scheduleToggle(r *Request) error {
	id := int64(*r.optInt(constants.IDOption))

	active, err := h.deps.DB.Model().Schedule().Toggle(r.Context(), id, r.GuildID)
	if errors.Is(err, types.ErrScheduleNotFound) {
		r.Text(errorText("Scheduled message with ID %d not found!", id))
		return nil
	}
	if err != nil {
		return err
	}

	h.logger.Info("Toggled scheduled message", zap.Int64("id", id), zap.Bool("active", active))
	r.Embeds(ScheduleToggledEmbed(id, active))
	return nil
}

// rolesExist reports whether every role exists in the guild, returning the first missing one otherwise.
func (h *Handler) rolesExist(r *Request, roleIDs []uint64) (uint64, bool) {
	for _, roleID := range roleIDs {
		if _, ok := r.client.Caches().Role(snowflake.ID(r.GuildID), snowflake.ID(roleID)); !ok {
			return roleID, false
		}
	}
	return 0, true
}

func draftFromOptions(data discord.SlashCommandInteractionData, guildID, userID uint64) *scheduler.Draft {
	draft := &scheduler.Draft{
		GuildID:    guildID,
		Name:       data.String(constants.NameOption),
		Message:    data.String(constants.MessageOption),
		StartTime:  data.String(constants.StartTimeOption),
		Roles:      data.String(constants.RolesOption),
		EmbedTitle: data.String(constants.EmbedTitleOption),
		EmbedColor: data.String(constants.EmbedColorOption),
		CreatedBy:  userID,
		Interval: scheduler.Interval{
			Days:    data.Int(constants.DaysOption),
			Hours:   data.Int(constants.HoursOption),
			Minutes: data.Int(constants.MinutesOption),
		},
	}
	if channel, ok := data.OptChannel(constants.ChannelOption); ok {
		draft.ChannelID = uint64(channel.ID)
	}
	return draft
}

func editFromOptions(data discord.SlashCommandInteractionData) *scheduler.Edit {
	edit := &scheduler.Edit{
		Name:       data.String(constants.NameOption),
		Message:    data.String(constants.MessageOption),
		StartTime:  data.String(constants.StartTimeOption),
		Roles:      data.String(constants.RolesOption),
		EmbedTitle: data.String(constants.EmbedTitleOption),
		EmbedColor: data.String(constants.EmbedColorOption),
	}
	if channel, ok := data.OptChannel(constants.ChannelOption); ok {
		edit.ChannelID = uint64(channel.ID)
	}
	if v, ok := data.OptInt(constants.DaysOption); ok {
		edit.Days = &v
	}
	if v, ok := data.OptInt(constants.HoursOption); ok {
		edit.Hours = &v
	}
	if v, ok := data.OptInt(constants.MinutesOption); ok {
		edit.Minutes = &v
	}
	return edit
}

// validationText turns a scheduler validation error into a user message.
func validationText(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return "❌ " + capitalize(err.Error()), true
		}
	}
	return "", false
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
