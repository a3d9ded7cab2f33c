// Package alerts owns the persisted Alert entity: the upsert/dedup engine,
// the triage state machine and the read-side queries. Nothing else in the
// repository writes alert rows.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
	"gorm.io/gorm"
)

// ErrInvalidTransition is returned when a status update would move an alert
// backwards in its lifecycle (e.g. resolved back to open).
var ErrInvalidTransition = errors.New("invalid status transition")

// upsertRetries bounds how often an upsert is replayed after losing a
// create race against the open-alert unique index.
const upsertRetries = 3

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Upsert persists one finding, enforcing at most one open alert per
// (provider, resource_id, policy_id). An existing open alert is refreshed in
// place; otherwise a new row is created — including when the only matching
// alerts are resolved or ignored, so prior triage decisions keep their
// history. Concurrent upserts for the same key are resolved by the partial
// unique index: the loser's create fails with a duplicate-key error and is
// retried as an update.
func (s *Store) Upsert(ctx context.Context, f policy.Finding) (*models.Alert, error) {
	var lastErr error

	for attempt := 0; attempt < upsertRetries; attempt++ {
		var existing models.Alert
		err := s.db.WithContext(ctx).
			Where("provider = ? AND resource_id = ? AND policy_id = ? AND status = ?",
				f.Provider, f.ResourceID, f.PolicyID, models.AlertStatusOpen).
			First(&existing).Error

		switch {
		case err == nil:
			return s.refresh(ctx, &existing, f)

		case errors.Is(err, gorm.ErrRecordNotFound):
			alert, createErr := s.create(ctx, f)
			if createErr == nil {
				return alert, nil
			}
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				// Lost the race: another upsert created the open row first.
				// Replay the lookup and refresh that row instead.
				lastErr = createErr
				continue
			}
			return nil, fmt.Errorf("creating alert: %w", createErr)

		default:
			return nil, fmt.Errorf("looking up open alert: %w", err)
		}
	}

	return nil, fmt.Errorf("upsert gave up after %d attempts: %w", upsertRetries, lastErr)
}

func (s *Store) create(ctx context.Context, f policy.Finding) (*models.Alert, error) {
	now := time.Now()
	alert := models.Alert{
		Provider:       f.Provider,
		ResourceID:     f.ResourceID,
		ResourceKind:   f.ResourceKind,
		PolicyID:       f.PolicyID,
		AccountID:      f.AccountID,
		Region:         f.Region,
		Title:          f.Title,
		Description:    f.Description,
		Severity:       f.Severity,
		Status:         models.AlertStatusOpen,
		Details:        f.Details,
		Recommendation: f.Recommendation,
		FirstSeenAt:    now,
		LastSeenAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return nil, err
	}
	s.logger.Info("alert created",
		"alert_id", alert.ID,
		"policy_id", alert.PolicyID,
		"resource_id", alert.ResourceID,
		"severity", alert.Severity,
	)
	return &alert, nil
}

// refresh advances last_seen_at on the matching open alert and overwrites the
// mutable fields when the new finding differs. first_seen_at is never touched.
func (s *Store) refresh(ctx context.Context, alert *models.Alert, f policy.Finding) (*models.Alert, error) {
	updates := map[string]any{
		"last_seen_at": time.Now(),
	}
	if alert.Severity != f.Severity {
		updates["severity"] = f.Severity
	}
	if alert.Description != f.Description {
		updates["description"] = f.Description
	}
	if alert.Recommendation != f.Recommendation {
		updates["recommendation"] = f.Recommendation
	}
	if !alert.Details.Equal(f.Details) {
		updates["details"] = f.Details
	}

	if err := s.db.WithContext(ctx).Model(alert).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("refreshing alert %d: %w", alert.ID, err)
	}

	var refreshed models.Alert
	if err := s.db.WithContext(ctx).First(&refreshed, alert.ID).Error; err != nil {
		return nil, fmt.Errorf("reloading alert %d: %w", alert.ID, err)
	}
	return &refreshed, nil
}

// GetByID returns one alert; gorm.ErrRecordNotFound when the id is unknown.
func (s *Store) GetByID(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert
	if err := s.db.WithContext(ctx).First(&alert, id).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// Filter narrows the List query. Zero values mean "no constraint";
// ResourceID matches as a substring.
type Filter struct {
	Provider   string
	Severity   string
	Status     string
	ResourceID string
	PolicyID   string
	AccountID  string
	Region     string
	StartDate  *time.Time
	EndDate    *time.Time

	SortBy    string
	SortOrder string
	Skip      int
	Limit     int
}

// sortColumns whitelists sort_by values against column injection.
var sortColumns = map[string]string{
	"id":            "id",
	"provider":      "provider",
	"resource_id":   "resource_id",
	"policy_id":     "policy_id",
	"account_id":    "account_id",
	"region":        "region",
	"severity":      "severity",
	"status":        "status",
	"first_seen_at": "first_seen_at",
	"last_seen_at":  "last_seen_at",
	"updated_at":    "updated_at",
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// List returns a page of alerts plus the total match count.
func (s *Store) List(ctx context.Context, filter Filter) ([]models.Alert, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Alert{})

	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ResourceID != "" {
		query = query.Where("resource_id LIKE ?", "%"+filter.ResourceID+"%")
	}
	if filter.PolicyID != "" {
		query = query.Where("policy_id = ?", filter.PolicyID)
	}
	if filter.AccountID != "" {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}
	if filter.StartDate != nil {
		query = query.Where("last_seen_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("last_seen_at <= ?", *filter.EndDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting alerts: %w", err)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "last_seen_at"
	}
	direction := "DESC"
	if filter.SortOrder == "asc" {
		direction = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	var alerts []models.Alert
	if err := query.
		Order(column + " " + direction).
		Offset(skip).
		Limit(limit).
		Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("listing alerts: %w", err)
	}

	return alerts, total, nil
}

// Summary aggregates alert counts for the dashboard.
type Summary struct {
	Total      int64            `json:"total"`
	BySeverity map[string]int64 `json:"by_severity"`
	ByStatus   map[string]int64 `json:"by_status"`
}

func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		BySeverity: make(map[string]int64),
		ByStatus:   make(map[string]int64),
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var bySeverity []bucket
	if err := s.db.WithContext(ctx).Model(&models.Alert{}).
		Select("severity AS key, COUNT(*) AS count").
		Group("severity").
		Scan(&bySeverity).Error; err != nil {
		return nil, fmt.Errorf("summarizing by severity: %w", err)
	}
	for _, b := range bySeverity {
		summary.BySeverity[b.Key] = b.Count
		summary.Total += b.Count
	}

	var byStatus []bucket
	if err := s.db.WithContext(ctx).Model(&models.Alert{}).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("summarizing by status: %w", err)
	}
	for _, b := range byStatus {
		summary.ByStatus[b.Key] = b.Count
	}

	return summary, nil
}

// validTransition encodes the triage lifecycle: forward through
// open → acknowledged → resolved, any state → ignored, and same-status calls
// are idempotent no-ops. Reopening is not allowed; a recurring violation gets
// a fresh row from Upsert instead.
func validTransition(from, to models.AlertStatus) bool {
	if from == to {
		return true
	}
	if to == models.AlertStatusIgnored {
		return true
	}
	switch from {
	case models.AlertStatusOpen:
		return to == models.AlertStatusAcknowledged || to == models.AlertStatusResolved
	case models.AlertStatusAcknowledged:
		return to == models.AlertStatusResolved
	}
	return false
}

// UpdateStatus moves an alert through its lifecycle. Idempotent when called
// with the alert's current status.
func (s *Store) UpdateStatus(ctx context.Context, id uint, status models.AlertStatus) (*models.Alert, error) {
	alert, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if alert.Status == status {
		return alert, nil
	}
	if !validTransition(alert.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, alert.Status, status)
	}

	updates := map[string]any{"status": status}
	if status.Terminal() {
		now := time.Now()
		updates["resolved_at"] = &now
	}

	if err := s.db.WithContext(ctx).Model(alert).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("updating alert %d status: %w", id, err)
	}

	s.logger.Info("alert status changed", "alert_id", id, "from", alert.Status, "to", status)
	return s.GetByID(ctx, id)
}

// Patch carries the operator-editable fields for Update. Nil pointers leave
// the stored value untouched.
type Patch struct {
	Status         *models.AlertStatus
	Severity       *models.Severity
	Details        *models.Details
	Recommendation *string
}

// Update applies a partial patch. Status changes go through the same
// transition rules as UpdateStatus; first_seen_at is never modified.
func (s *Store) Update(ctx context.Context, id uint, patch Patch) (*models.Alert, error) {
	alert, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if patch.Status != nil && *patch.Status != alert.Status {
		if !validTransition(alert.Status, *patch.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, alert.Status, *patch.Status)
		}
		updates["status"] = *patch.Status
		if patch.Status.Terminal() {
			now := time.Now()
			updates["resolved_at"] = &now
		}
	}
	if patch.Severity != nil {
		updates["severity"] = *patch.Severity
	}
	if patch.Details != nil {
		updates["details"] = *patch.Details
	}
	if patch.Recommendation != nil {
		updates["recommendation"] = *patch.Recommendation
	}

	if len(updates) == 0 {
		return alert, nil
	}

	if err := s.db.WithContext(ctx).Model(alert).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("updating alert %d: %w", id, err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes an alert row. Evaluation never deletes; this is an explicit
// operator action.
func (s *Store) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Alert{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting alert %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
