package handlers_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/go-warden/internal/alerts"
	"github.com/hugh/go-warden/internal/api/dto"
	"github.com/hugh/go-warden/internal/api/handlers"
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAlertRouter(t *testing.T) (*chi.Mux, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	handler := handlers.NewAlertHandler(alerts.NewStore(db, slog.Default()))

	r := chi.NewRouter()
	r.Route("/api/v1/alerts", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Get("/summary", handler.Summary)
		r.Get("/{id}", handler.Get)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
	})
	return r, db
}

func TestAlertHandler_List(t *testing.T) {
	router, db := setupAlertRouter(t)

	testutil.CreateTestAlert(t, db, func(a *models.Alert) {
		a.ResourceID = "bucket-a"
		a.Severity = models.SeverityCritical
	})
	testutil.CreateTestAlert(t, db, func(a *models.Alert) {
		a.ResourceID = "bucket-b"
		a.PolicyID = "S3_Versioning_Disabled"
		a.Severity = models.SeverityLow
	})
	testutil.CreateTestAlert(t, db, func(a *models.Alert) {
		a.Provider = "azure"
		a.ResourceID = "prodstorage"
		a.PolicyID = "Azure_Storage_Public_Blob_Access"
		a.Status = models.AlertStatusResolved
	})

	t.Run("list all", func(t *testing.T) {
		req := testutil.JSONRequest(t, "GET", "/api/v1/alerts", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.ListResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, int64(3), resp.Total)
	})

	t.Run("filter by severity", func(t *testing.T) {
		req := testutil.JSONRequest(t, "GET", "/api/v1/alerts?severity=critical", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		var resp dto.ListResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, int64(1), resp.Total)
	})

	t.Run("invalid severity is rejected", func(t *testing.T) {
		req := testutil.JSONRequest(t, "GET", "/api/v1/alerts?severity=catastrophic", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		req := testutil.JSONRequest(t, "GET", "/api/v1/alerts?status=pending", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("invalid date is rejected", func(t *testing.T) {
		req := testutil.JSONRequest(t, "GET", "/api/v1/alerts?start_date=yesterday", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("pagination echoes effective values", func(t *testing.T) {
		req := testutil.JSONRequest(t, "GET", "/api/v1/alerts?skip=1&limit=1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		var resp dto.ListResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, int64(3), resp.Total)
		assert.Equal(t, 1, resp.Skip)
		assert.Equal(t, 1, resp.Limit)

		data, ok := resp.Data.([]any)
		require.True(t, ok)
		assert.Len(t, data, 1)
	})
}

func TestAlertHandler_Summary(t *testing.T) {
	router, db := setupAlertRouter(t)

	testutil.CreateTestAlert(t, db, func(a *models.Alert) {
		a.ResourceID = "r1"
		a.Severity = models.SeverityHigh
	})
	testutil.CreateTestAlert(t, db, func(a *models.Alert) {
		a.ResourceID = "r2"
		a.Severity = models.SeverityHigh
		a.Status = models.AlertStatusIgnored
	})

	req := testutil.JSONRequest(t, "GET", "/api/v1/alerts/summary", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	testutil.AssertStatus(t, rr, http.StatusOK)

	var summary alerts.Summary
	testutil.ParseJSONResponse(t, rr, &summary)
	assert.Equal(t, int64(2), summary.Total)
	assert.Equal(t, int64(2), summary.BySeverity["high"])
	assert.Equal(t, int64(1), summary.ByStatus["open"])
	assert.Equal(t, int64(1), summary.ByStatus["ignored"])
}

func TestAlertHandler_Get(t *testing.T) {
	router, db := setupAlertRouter(t)
	alert := testutil.CreateTestAlert(t, db)

	t.Run("found", func(t *testing.T) {
		req := testutil.JSONRequest(t, "GET", "/api/v1/alerts/1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var got models.Alert
		testutil.ParseJSONResponse(t, rr, &got)
		assert.Equal(t, alert.ID, got.ID)
		assert.Equal(t, alert.PolicyID, got.PolicyID)
	})

	t.Run("unknown id", func(t *testing.T) {
		req := testutil.JSONRequest(t, "GET", "/api/v1/alerts/9999", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		req := testutil.JSONRequest(t, "GET", "/api/v1/alerts/not-a-number", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestAlertHandler_Update(t *testing.T) {
	router, db := setupAlertRouter(t)

	t.Run("acknowledge", func(t *testing.T) {
		alert := testutil.CreateTestAlert(t, db)

		req := testutil.JSONRequest(t, "PUT", "/api/v1/alerts/1", map[string]any{
			"status": "acknowledged",
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var got models.Alert
		testutil.ParseJSONResponse(t, rr, &got)
		assert.Equal(t, alert.ID, got.ID)
		assert.Equal(t, models.AlertStatusAcknowledged, got.Status)
	})

	t.Run("invalid status value", func(t *testing.T) {
		req := testutil.JSONRequest(t, "PUT", "/api/v1/alerts/1", map[string]any{
			"status": "snoozed",
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("illegal transition conflicts", func(t *testing.T) {
		resolved := testutil.CreateTestAlert(t, db, func(a *models.Alert) {
			a.ResourceID = "resolved-bucket"
			a.Status = models.AlertStatusResolved
		})

		req := testutil.JSONRequest(t, "PUT", "/api/v1/alerts/2", map[string]any{
			"status": "open",
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusConflict)

		reloaded := models.Alert{}
		require.NoError(t, db.First(&reloaded, resolved.ID).Error)
		assert.Equal(t, models.AlertStatusResolved, reloaded.Status)
	})

	t.Run("unknown id", func(t *testing.T) {
		req := testutil.JSONRequest(t, "PUT", "/api/v1/alerts/9999", map[string]any{
			"status": "resolved",
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestAlertHandler_Delete(t *testing.T) {
	router, db := setupAlertRouter(t)
	alert := testutil.CreateTestAlert(t, db)

	req := testutil.JSONRequest(t, "DELETE", "/api/v1/alerts/1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	testutil.AssertStatus(t, rr, http.StatusOK)

	var count int64
	require.NoError(t, db.Model(&models.Alert{}).Where("id = ?", alert.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.JSONRequest(t, "DELETE", "/api/v1/alerts/1", nil))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}
