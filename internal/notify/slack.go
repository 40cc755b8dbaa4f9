// Package notify posts critical-alert notifications to Slack. The
// notifier is optional: without a bot token and channel it is nil and
// every call site tolerates that. Notification failures are logged and
// never affect ingestion.
package notify

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"

	"github.com/fleetwatch/fleetwatch/internal/database"
)

// SlackNotifier posts alert messages to a configured Slack channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier, or returns nil when the token or
// channel is not configured.
func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	if botToken == "" || channel == "" {
		return nil
	}
	return &SlackNotifier{
		client:  slack.New(botToken),
		channel: channel,
	}
}

// NotifyAlert posts a formatted message for an ingested alert.
// Fire-and-forget: errors are logged, never returned.
func (n *SlackNotifier) NotifyAlert(alert *database.MentorAlert) {
	message := fmt.Sprintf(`%s *Alert: %s*

:computer: *Device:* %s
:warning: *Level:* %s
:memo: *Message:* %s`,
		severityEmoji(alert.Level),
		alert.AlertType,
		alert.DeviceID,
		alert.Level,
		alert.Message,
	)

	if alert.Value != nil && alert.Threshold != nil {
		message += fmt.Sprintf("\n:chart_with_upwards_trend: *Value:* %.2f (threshold %.2f)", *alert.Value, *alert.Threshold)
	}

	_, _, err := n.client.PostMessage(
		n.channel,
		slack.MsgOptionText(message, false),
	)
	if err != nil {
		log.Printf("Warning: failed to post alert notification to Slack: %v", err)
	}
}

func severityEmoji(level string) string {
	switch database.AlertLevel(level) {
	case database.AlertLevelCritical:
		return ":red_circle:"
	case database.AlertLevelHigh:
		return ":large_orange_circle:"
	case database.AlertLevelMedium:
		return ":large_yellow_circle:"
	default:
		return ":large_blue_circle:"
	}
}
