package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/notify"
	"github.com/hugh/go-warden/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSender_PostsAlertJSON(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := &notify.WebhookSender{URL: server.URL}
	err := sender.Send(context.Background(), alertWithSeverity(models.SeverityHigh))
	require.NoError(t, err)

	assert.Equal(t, "alert.upserted", received["event"])
	alert, ok := received["alert"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "S3_Public_Policy", alert["policy_id"])
}

func TestWebhookSender_Non2xxIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := &notify.WebhookSender{URL: server.URL}
	err := sender.Send(context.Background(), alertWithSeverity(models.SeverityHigh))
	assert.Error(t, err)
}

func TestChatSender_MessageNamesTheViolation(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := &notify.ChatSender{URL: server.URL}
	err := sender.Send(context.Background(), alertWithSeverity(models.SeverityCritical))
	require.NoError(t, err)

	assert.Contains(t, received["text"], "CRITICAL")
	assert.Contains(t, received["text"], "S3_Public_Policy")
	assert.Contains(t, received["text"], "prod-data")
}

func TestDispatcher_UnknownChannel(t *testing.T) {
	dispatcher := notify.NewDispatcher(config.NotificationsConfig{})

	err := dispatcher.Dispatch(context.Background(), notify.ChannelWebhook, alertWithSeverity(models.SeverityHigh))
	assert.Error(t, err)
}

func TestDispatcher_RoutesToConfiguredSender(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dispatcher := notify.NewDispatcher(config.NotificationsConfig{WebhookURL: server.URL})

	err := dispatcher.Dispatch(context.Background(), notify.ChannelWebhook, alertWithSeverity(models.SeverityHigh))
	require.NoError(t, err)
	assert.True(t, hit)
}
