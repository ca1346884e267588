package bot_test

import (
	"context"
	"errors"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/bot"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errUnknownChannel = errors.New("unknown channel")

type fakeCreator struct {
	channelID snowflake.ID
	message   discord.MessageCreate
	err       error
}

func (f *fakeCreator) CreateMessage(
	channelID snowflake.ID, messageCreate discord.MessageCreate, _ ...rest.RequestOpt,
) (*discord.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.channelID = channelID
	f.message = messageCreate
	return &discord.Message{ID: 1, ChannelID: channelID}, nil
}

func TestBuildScheduledMessage(t *testing.T) {
	t.Parallel()

	t.Run("with roles", func(t *testing.T) {
		t.Parallel()

		msg := bot.BuildScheduledMessage(&types.ScheduledMessage{
			Name: "Reminder", Message: "Raid at 8", EmbedTitle: "Raid night", EmbedColor: 0xff0000,
			RoleIDs: []uint64{11, 22},
		})

		assert.Equal(t, "<@&11> <@&22>", msg.Content)
		require.Len(t, msg.Embeds, 1)
		assert.Equal(t, "Raid night", msg.Embeds[0].Title)
		assert.Equal(t, "Raid at 8", msg.Embeds[0].Description)
		assert.Equal(t, 0xff0000, msg.Embeds[0].Color)
		require.NotNil(t, msg.AllowedMentions)
		assert.Equal(t, []snowflake.ID{11, 22}, msg.AllowedMentions.Roles)
		assert.Empty(t, msg.AllowedMentions.Parse)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		msg := bot.BuildScheduledMessage(&types.ScheduledMessage{Name: "Reminder", Message: "Hello"})
		assert.Empty(t, msg.Content)
		assert.Equal(t, "Reminder", msg.Embeds[0].Title)
		assert.Equal(t, types.DefaultEmbedColor, msg.Embeds[0].Color)
		assert.Empty(t, msg.AllowedMentions.Roles)
	})
}

func TestScheduledSender(t *testing.T) {
	t.Parallel()

	t.Run("sends to channel", func(t *testing.T) {
		t.Parallel()

		creator := &fakeCreator{}
		sender := bot.NewScheduledSender(creator, zap.NewNop())
		require.NoError(t, sender.SendScheduled(context.Background(), &types.ScheduledMessage{
			ID: 1, ChannelID: 77, Name: "n", Message: "m",
		}))
		assert.Equal(t, snowflake.ID(77), creator.channelID)
	})

	t.Run("wraps errors", func(t *testing.T) {
		t.Parallel()

		sender := bot.NewScheduledSender(&fakeCreator{err: errUnknownChannel}, zap.NewNop())
		err := sender.SendScheduled(context.Background(), &types.ScheduledMessage{ID: 1, ChannelID: 77})
		require.ErrorIs(t, err, errUnknownChannel)
	})
}
