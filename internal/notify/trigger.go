// Package notify routes upserted alerts to external channels. The routing
// decision happens inline; delivery runs on the worker via queued tasks so a
// slow endpoint never stalls an analysis request.
package notify

import (
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/tasks"
	"github.com/hugh/go-warden/pkg/config"
	"github.com/hugh/go-warden/pkg/queue"
)

// Enqueuer is the slice of asynq.Client the trigger needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Trigger implements the alerts.Notifier contract: for every upserted alert
// it picks the channels to notify and enqueues one dispatch task per channel.
// Enqueue failures are logged and dropped; notification delivery is best
// effort and never fails the write that produced the alert.
type Trigger struct {
	client Enqueuer
	cfg    config.NotificationsConfig
	logger *slog.Logger
}

func NewTrigger(client Enqueuer, cfg config.NotificationsConfig, logger *slog.Logger) *Trigger {
	return &Trigger{client: client, cfg: cfg, logger: logger}
}

func (t *Trigger) OnAlertUpserted(alert *models.Alert) {
	for _, channel := range t.channelsFor(alert) {
		task, err := tasks.NewNotifyDispatchTask(tasks.NotifyDispatchPayload{
			AlertID: alert.ID,
			Channel: channel,
		})
		if err != nil {
			t.logger.Error("building dispatch task", "channel", channel, "error", err)
			continue
		}

		queueName := queue.QueueDefault
		if alert.Severity == models.SeverityCritical {
			queueName = queue.QueueCritical
		}

		if _, err := t.client.Enqueue(task, asynq.Queue(queueName), asynq.MaxRetry(3)); err != nil {
			t.logger.Error("enqueueing notification",
				"alert_id", alert.ID,
				"channel", channel,
				"error", err,
			)
			continue
		}
		t.logger.Debug("notification enqueued", "alert_id", alert.ID, "channel", channel)
	}
}

// channelsFor applies the routing policy: critical alerts go to every
// configured channel; everything else must clear the channel's severity
// floor. An unparseable floor disables the channel rather than opening it up.
func (t *Trigger) channelsFor(alert *models.Alert) []string {
	critical := alert.Severity == models.SeverityCritical

	var channels []string
	if t.cfg.WebhookURL != "" && (critical || clearsFloor(alert.Severity, t.cfg.WebhookMinSeverity)) {
		channels = append(channels, ChannelWebhook)
	}
	if t.cfg.ChatWebhookURL != "" && (critical || clearsFloor(alert.Severity, t.cfg.ChatMinSeverity)) {
		channels = append(channels, ChannelChat)
	}
	emailReady := t.cfg.SMTPHost != "" && t.cfg.EmailFrom != "" && len(t.cfg.EmailRecipients()) > 0
	if emailReady && (critical || clearsFloor(alert.Severity, t.cfg.EmailMinSeverity)) {
		channels = append(channels, ChannelEmail)
	}
	return channels
}

func clearsFloor(severity models.Severity, floor string) bool {
	min := models.Severity(floor)
	if !min.IsValid() {
		return false
	}
	return severity.AtLeast(min)
}
