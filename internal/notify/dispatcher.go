package notify

import (
	"context"
	"fmt"

	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/pkg/config"
)

// Dispatcher resolves a channel name to its sender on the worker side.
type Dispatcher struct {
	senders map[string]Sender
}

func NewDispatcher(cfg config.NotificationsConfig) *Dispatcher {
	senders := make(map[string]Sender)
	if cfg.WebhookURL != "" {
		senders[ChannelWebhook] = &WebhookSender{URL: cfg.WebhookURL}
	}
	if cfg.ChatWebhookURL != "" {
		senders[ChannelChat] = &ChatSender{URL: cfg.ChatWebhookURL}
	}
	if cfg.SMTPHost != "" {
		senders[ChannelEmail] = &EmailSender{Config: cfg}
	}
	return &Dispatcher{senders: senders}
}

// Dispatch delivers the alert on the named channel. An unknown or
// unconfigured channel is an error so stale queued tasks surface instead of
// silently vanishing.
func (d *Dispatcher) Dispatch(ctx context.Context, channel string, alert *models.Alert) error {
	sender, ok := d.senders[channel]
	if !ok {
		return fmt.Errorf("notification channel %q is not configured", channel)
	}
	return sender.Send(ctx, alert)
}
