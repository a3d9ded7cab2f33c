package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/pkg/config"
)

// Channel names, stable across config and task payloads.
const (
	ChannelWebhook = "webhook"
	ChannelChat    = "chat"
	ChannelEmail   = "email"
)

// Sender delivers one alert to one external destination. Errors bubble up to
// the task runner, which handles retries.
type Sender interface {
	Send(ctx context.Context, alert *models.Alert) error
}

const httpTimeout = 10 * time.Second

// WebhookSender POSTs the full alert as JSON to a generic endpoint.
type WebhookSender struct {
	URL    string
	Client *http.Client
}

// webhookPayload is the wire shape for generic webhook consumers.
type webhookPayload struct {
	Event string        `json:"event"`
	Alert *models.Alert `json:"alert"`
}

func (s *WebhookSender) Send(ctx context.Context, alert *models.Alert) error {
	body, err := json.Marshal(webhookPayload{Event: "alert.upserted", Alert: alert})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	return postJSON(ctx, s.client(), s.URL, body)
}

func (s *WebhookSender) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: httpTimeout}
}

// ChatSender posts a short human-readable message to a chat webhook
// (Slack-compatible "text" payload).
type ChatSender struct {
	URL    string
	Client *http.Client
}

func (s *ChatSender) Send(ctx context.Context, alert *models.Alert) error {
	text := fmt.Sprintf("[%s] %s\n%s on %s (%s/%s)",
		strings.ToUpper(string(alert.Severity)),
		alert.Title,
		alert.PolicyID,
		alert.ResourceID,
		alert.Provider,
		alert.Region,
	)
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal chat payload: %w", err)
	}
	return postJSON(ctx, s.client(), s.URL, body)
}

func (s *ChatSender) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: httpTimeout}
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// EmailSender delivers a plain-text summary over SMTP.
type EmailSender struct {
	Config config.NotificationsConfig
}

func (s *EmailSender) Send(ctx context.Context, alert *models.Alert) error {
	cfg := s.Config
	recipients := cfg.EmailRecipients()
	if len(recipients) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title)

	var body strings.Builder
	fmt.Fprintf(&body, "Policy:      %s\r\n", alert.PolicyID)
	fmt.Fprintf(&body, "Resource:    %s (%s)\r\n", alert.ResourceID, alert.ResourceKind)
	fmt.Fprintf(&body, "Provider:    %s\r\n", alert.Provider)
	if alert.AccountID != "" {
		fmt.Fprintf(&body, "Account:     %s\r\n", alert.AccountID)
	}
	if alert.Region != "" {
		fmt.Fprintf(&body, "Region:      %s\r\n", alert.Region)
	}
	fmt.Fprintf(&body, "Status:      %s\r\n", alert.Status)
	fmt.Fprintf(&body, "Last seen:   %s\r\n\r\n", alert.LastSeenAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&body, "%s\r\n", alert.Description)
	if alert.Recommendation != "" {
		fmt.Fprintf(&body, "\r\nRecommendation: %s\r\n", alert.Recommendation)
	}

	msg := strings.Builder{}
	fmt.Fprintf(&msg, "From: %s\r\n", cfg.EmailFrom)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body.String())

	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}

	if err := smtp.SendMail(cfg.SMTPAddr(), auth, cfg.EmailFrom, recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
