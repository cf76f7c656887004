package types

import "time"

// AlertType identifies the condition that raised a safety alert.
type AlertType string

// Alert type constants.
const (
	AlertRateLimitHourly AlertType = "rate_limit_hourly"
	AlertRateLimitDaily  AlertType = "rate_limit_daily"
)

// AlertSeverity represents how urgent a safety alert is.
type AlertSeverity string

// Alert severity constants.
const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// SafetyAlert is a derived, mutable record signaling rate-limit pressure.
//
// Invariant: at most one unresolved alert of a given AlertType exists at a
// time. Creation is idempotent while an unresolved alert of the same type
// exists. Alerts are never auto-resolved; an operator must resolve them.
//
// Lifecycle: open -> acknowledged -> resolved, or open -> resolved directly.
// Acknowledgement is optional and does not gate resolution.
type SafetyAlert struct {
	ID                string        `json:"id"` // UUID
	AlertType         AlertType     `json:"alert_type"`
	Severity          AlertSeverity `json:"severity"`
	Message           string        `json:"message"`
	RiskScore         float64       `json:"risk_score"`
	RecommendedAction string        `json:"recommended_action"`

	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	Resolved       bool       `json:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
