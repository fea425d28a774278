package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"build-watcher/internal/observability"
	"build-watcher/internal/poller"
)

// Sender delivers one message to a channel. *discordgo.Session satisfies it.
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier renders reports and sends them to one channel.
type Notifier struct {
	send      Sender
	channelID string
	roles     Roles
	batchSize int
}

func New(s Sender, channelID string, roles Roles, batchSize int) *Notifier {
	return &Notifier{send: s, channelID: channelID, roles: roles, batchSize: batchSize}
}

// NewDiscord opens a REST session for a bot token.
func NewDiscord(token, channelID string, roles Roles, batchSize int) (*Notifier, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return New(s, channelID, roles, batchSize), nil
}

// Notify sends every message of the report in order and stops at the
// first failure.
func (n *Notifier) Notify(ctx context.Context, r poller.Report) error {
	msgs := Batch(Render(r, n.roles), n.batchSize)
	for i, m := range msgs {
		if _, err := n.send.ChannelMessageSendComplex(n.channelID, m, discordgo.WithContext(ctx)); err != nil {
			observability.NotificationsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("send message %d/%d: %w", i+1, len(msgs), err)
		}
		observability.NotificationsTotal.WithLabelValues("ok").Inc()
	}
	log.Info().
		Str("hash", r.Build.BuildHash).
		Int("messages", len(msgs)).
		Int("changes", r.TotalChanges).
		Msg("notifications sent")
	return nil
}

// LogSender writes messages to the log instead of a chat channel.
type LogSender struct{}

func (LogSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	ev := log.Info().Str("channel", channelID).Str("content", data.Content)
	titles := make([]string, 0, len(data.Embeds))
	for _, e := range data.Embeds {
		titles = append(titles, e.Title)
	}
	ev.Strs("embeds", titles).Msg("dry run message")
	return &discordgo.Message{ChannelID: channelID, Content: data.Content}, nil
}
