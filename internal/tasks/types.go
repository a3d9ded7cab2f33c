package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeNotifyDispatch = "notify:dispatch"
)

// NotifyDispatchPayload carries one alert to one notification channel. The
// worker reloads the alert from the database so the payload stays small and
// retries always see the current row.
type NotifyDispatchPayload struct {
	AlertID uint   `json:"alert_id"`
	Channel string `json:"channel"`
}

func NewNotifyDispatchTask(payload NotifyDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotifyDispatch, data), nil
}
