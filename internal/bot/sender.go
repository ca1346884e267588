package bot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/scheduler"
	"go.uber.org/zap"
)

// MessageCreator is the part of the REST client used to post messages.
type MessageCreator interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// ScheduledSender posts due scheduled messages to their channels.
type ScheduledSender struct {
	rest   MessageCreator
	logger *zap.Logger
}

// NewScheduledSender creates a new sender.
func NewScheduledSender(creator MessageCreator, logger *zap.Logger) *ScheduledSender {
	return &ScheduledSender{
		rest:   creator,
		logger: logger.Named("scheduled_sender"),
	}
}

// SendScheduled posts the message as an embed with its role pings.
func (s *ScheduledSender) SendScheduled(ctx context.Context, msg *types.ScheduledMessage) error {
	sent, err := s.rest.CreateMessage(snowflake.ID(msg.ChannelID), BuildScheduledMessage(msg), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to send scheduled message %d to channel %d: %w", msg.ID, msg.ChannelID, err)
	}

	s.logger.Debug("Sent scheduled message",
		zap.Int64("id", msg.ID),
		zap.Uint64("channelID", msg.ChannelID),
		zap.Uint64("messageID", uint64(sent.ID)))

	return nil
}

// BuildScheduledMessage renders a scheduled message. Only the configured
// roles may be pinged.
func BuildScheduledMessage(msg *types.ScheduledMessage) discord.MessageCreate {
	color := msg.EmbedColor
	if color == 0 {
		color = types.DefaultEmbedColor
	}

	roleIDs := make([]snowflake.ID, 0, len(msg.RoleIDs))
	for _, id := range msg.RoleIDs {
		roleIDs = append(roleIDs, snowflake.ID(id))
	}

	return discord.NewMessageCreateBuilder().
		SetContent(scheduler.MentionRoles(msg.RoleIDs)).
		SetEmbeds(discord.NewEmbedBuilder().
			SetTitle(msg.Title()).
			SetDescription(msg.Message).
			SetColor(color).
			Build()).
		SetAllowedMentions(&discord.AllowedMentions{Roles: roleIDs}).
		Build()
}
