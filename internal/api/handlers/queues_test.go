package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/go-warden/internal/api/handlers"
	"github.com/hugh/go-warden/internal/testutil"
)

func TestQueueHandler_UnavailableWithoutInspector(t *testing.T) {
	handler := handlers.NewQueueHandler(nil)

	req := testutil.JSONRequest(t, "GET", "/api/v1/queues", nil)
	rr := httptest.NewRecorder()
	handler.Stats(rr, req)

	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
}
