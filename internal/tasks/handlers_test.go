package tasks_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/tasks"
	"github.com/hugh/go-warden/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []string
	lastID uint
	err    error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, channel string, alert *models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, channel)
	f.lastID = alert.ID
	return nil
}

func TestHandleNotifyDispatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	alert := testutil.CreateTestAlert(t, db)

	t.Run("delivers to the requested channel", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		handler := tasks.NewHandler(db, slog.Default(), dispatcher)

		task, err := tasks.NewNotifyDispatchTask(tasks.NotifyDispatchPayload{
			AlertID: alert.ID,
			Channel: "webhook",
		})
		require.NoError(t, err)

		require.NoError(t, handler.HandleNotifyDispatch(context.Background(), task))
		assert.Equal(t, []string{"webhook"}, dispatcher.calls)
		assert.Equal(t, alert.ID, dispatcher.lastID)
	})

	t.Run("missing alert is a successful no-op", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		handler := tasks.NewHandler(db, slog.Default(), dispatcher)

		task, err := tasks.NewNotifyDispatchTask(tasks.NotifyDispatchPayload{
			AlertID: 99999,
			Channel: "webhook",
		})
		require.NoError(t, err)

		require.NoError(t, handler.HandleNotifyDispatch(context.Background(), task))
		assert.Empty(t, dispatcher.calls)
	})

	t.Run("delivery failure propagates for retry", func(t *testing.T) {
		dispatcher := &fakeDispatcher{err: errors.New("endpoint down")}
		handler := tasks.NewHandler(db, slog.Default(), dispatcher)

		task, err := tasks.NewNotifyDispatchTask(tasks.NotifyDispatchPayload{
			AlertID: alert.ID,
			Channel: "webhook",
		})
		require.NoError(t, err)

		assert.Error(t, handler.HandleNotifyDispatch(context.Background(), task))
	})

	t.Run("malformed payload", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		handler := tasks.NewHandler(db, slog.Default(), dispatcher)

		task := asynq.NewTask(tasks.TypeNotifyDispatch, []byte("not json"))
		assert.Error(t, handler.HandleNotifyDispatch(context.Background(), task))
	})
}
