package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-warden/internal/database/models"
	"gorm.io/gorm"
)

// Dispatcher delivers one alert on one channel. Implemented by notify; an
// interface here keeps tasks from importing the notify package.
type Dispatcher interface {
	Dispatch(ctx context.Context, channel string, alert *models.Alert) error
}

type Handler struct {
	db         *gorm.DB
	logger     *slog.Logger
	dispatcher Dispatcher
}

func NewHandler(db *gorm.DB, logger *slog.Logger, dispatcher Dispatcher) *Handler {
	return &Handler{
		db:         db,
		logger:     logger,
		dispatcher: dispatcher,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeNotifyDispatch, h.HandleNotifyDispatch)
}

// HandleNotifyDispatch delivers one queued notification. The alert is
// reloaded so the message reflects the row as it exists now, not as it was at
// enqueue time. A deleted alert is a successful no-op; delivery errors are
// returned so asynq retries with backoff.
func (h *Handler) HandleNotifyDispatch(ctx context.Context, t *asynq.Task) error {
	var payload NotifyDispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var alert models.Alert
	if err := h.db.WithContext(ctx).First(&alert, payload.AlertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Warn("alert gone before notification delivery",
				"alert_id", payload.AlertID,
				"channel", payload.Channel,
			)
			return nil
		}
		return fmt.Errorf("loading alert %d: %w", payload.AlertID, err)
	}

	if err := h.dispatcher.Dispatch(ctx, payload.Channel, &alert); err != nil {
		h.logger.Error("notification delivery failed",
			"alert_id", alert.ID,
			"channel", payload.Channel,
			"error", err,
		)
		return err
	}

	h.logger.Info("notification delivered",
		"alert_id", alert.ID,
		"channel", payload.Channel,
		"severity", alert.Severity,
	)
	return nil
}
