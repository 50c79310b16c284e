package slack

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/savaki/nutricoach-relay/pkg/models"
	"github.com/slack-go/slack"
)

// PostMessageAPI is the subset of the Slack SDK used for alerts
type PostMessageAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Notifier posts per-event failure alerts to an operations channel. Failed
// events never produce an error reply to the end user, so this is where
// operators find out about them.
type Notifier struct {
	client    PostMessageAPI
	channelID string
	logger    zerolog.Logger
}

// NewNotifier creates a new Slack notifier with bot token
func NewNotifier(botToken, channelID string, logger zerolog.Logger) *Notifier {
	return NewNotifierWithAPI(slack.New(botToken), channelID, logger)
}

// NewNotifierWithAPI creates a notifier around an existing Slack client
func NewNotifierWithAPI(client PostMessageAPI, channelID string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		client:    client,
		channelID: channelID,
		logger:    logger.With().Str("component", "slack").Logger(),
	}
}

// NotifyFailure posts a summary of a failed event. Posting errors are logged only.
func (n *Notifier) NotifyFailure(ctx context.Context, f models.EventFailure) {
	if _, _, err := n.client.PostMessageContext(ctx, n.channelID, slack.MsgOptionText(formatFailure(f), false)); err != nil {
		n.logger.Warn().Err(err).Str("tenant_id", f.TenantID).Msg("failed to post failure alert")
	}
}

func formatFailure(f models.EventFailure) string {
	errText := "unknown error"
	if f.Err != nil {
		errText = f.Err.Error()
	}
	return fmt.Sprintf(":warning: %s event failed\n• tenant: `%s`\n• user: `%s`\n• event: `%s`\n```%s```",
		f.Kind, f.TenantID, f.UserID, f.EventID, errText)
}
