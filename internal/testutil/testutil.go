package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/go-warden/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database with the alert schema,
// including the partial unique index that backs open-alert deduplication.
// The connection pool is capped at one connection: the in-memory database is
// per-connection, and a single connection also serializes concurrent writers
// the way the production unique index expects.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Alert{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open_dedup
		ON alerts (provider, resource_id, policy_id) WHERE status = 'open'`).Error; err != nil {
		t.Fatalf("failed to create dedup index: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestAlert inserts one alert row with sensible defaults; overrides can
// mutate the row before it is saved.
func CreateTestAlert(t *testing.T, db *gorm.DB, overrides ...func(*models.Alert)) *models.Alert {
	t.Helper()

	now := time.Now()
	alert := &models.Alert{
		Provider:     "aws",
		ResourceID:   "test-bucket",
		ResourceKind: "S3Bucket",
		PolicyID:     "S3_Public_Policy",
		AccountID:    "123456789012",
		Region:       "us-east-1",
		Title:        "S3 bucket policy allows public access",
		Description:  "The bucket policy grants access to all principals.",
		Severity:     models.SeverityHigh,
		Status:       models.AlertStatusOpen,
		FirstSeenAt:  now,
		LastSeenAt:   now,
	}
	for _, override := range overrides {
		override(alert)
	}

	if err := db.Create(alert).Error; err != nil {
		t.Fatalf("failed to create test alert: %v", err)
	}
	return alert
}

// JSONRequest creates an HTTP request with a JSON body
func JSONRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}
