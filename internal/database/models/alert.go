package models

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for threshold comparisons.
var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// IsValid reports whether s is a known severity level.
func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is min or more severe.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

type AlertStatus string

const (
	AlertStatusOpen         AlertStatus = "open"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusIgnored      AlertStatus = "ignored"
)

func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusOpen, AlertStatusAcknowledged, AlertStatusResolved, AlertStatusIgnored:
		return true
	}
	return false
}

// Terminal reports whether the status ends the alert's triage lifecycle.
// A finding that reappears for a terminal alert opens a fresh row instead
// of reopening the old one.
func (s AlertStatus) Terminal() bool {
	return s == AlertStatusResolved || s == AlertStatusIgnored
}

// Alert is the persisted, deduplicated record of a policy violation across
// scans. At most one open alert exists per (provider, resource_id, policy_id);
// the partial unique index created in database.AutoMigrate enforces this.
type Alert struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Provider     string `gorm:"not null;index:idx_alerts_key" json:"provider"`
	ResourceID   string `gorm:"not null;index:idx_alerts_key" json:"resource_id"`
	ResourceKind string `json:"resource_kind"`
	PolicyID     string `gorm:"not null;index:idx_alerts_key" json:"policy_id"`
	AccountID    string `gorm:"index" json:"account_id"`
	Region       string `json:"region,omitempty"`

	Title          string      `gorm:"not null" json:"title"`
	Description    string      `gorm:"type:text" json:"description,omitempty"`
	Severity       Severity    `gorm:"not null;index" json:"severity"`
	Status         AlertStatus `gorm:"not null;index;default:'open'" json:"status"`
	Details        Details     `gorm:"type:jsonb;default:'{}'" json:"details"`
	Recommendation string      `gorm:"type:text" json:"recommendation,omitempty"`

	FirstSeenAt time.Time  `json:"first_seen_at"`
	LastSeenAt  time.Time  `gorm:"index" json:"last_seen_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

func (Alert) TableName() string {
	return "alerts"
}
