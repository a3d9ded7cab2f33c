package handlers

import (
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-warden/internal/api/dto"
	"github.com/hugh/go-warden/pkg/queue"
)

// QueueHandler exposes notification queue depths for operators. It is only
// mounted when Redis is reachable.
type QueueHandler struct {
	inspector *asynq.Inspector
}

func NewQueueHandler(inspector *asynq.Inspector) *QueueHandler {
	return &QueueHandler{inspector: inspector}
}

type QueueStats struct {
	Name      string `json:"name"`
	Size      int    `json:"size"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Retry     int    `json:"retry"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{
			Error: "queue inspection unavailable",
		})
		return
	}

	stats := make([]QueueStats, 0, 3)
	for _, name := range []string{queue.QueueCritical, queue.QueueDefault, queue.QueueLow} {
		info, err := h.inspector.GetQueueInfo(name)
		if err != nil {
			// Queues only exist in Redis once a task has touched them.
			continue
		}
		stats = append(stats, QueueStats{
			Name:      info.Queue,
			Size:      info.Size,
			Pending:   info.Pending,
			Active:    info.Active,
			Retry:     info.Retry,
			Completed: info.Completed,
			Failed:    info.Failed,
		})
	}

	writeJSON(w, http.StatusOK, stats)
}
