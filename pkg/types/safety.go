package types

import "time"

// SafetyState is the overall state reported by a safety-status snapshot.
type SafetyState string

// Safety state constants, ordered from worst to best.
const (
	StateLimitReached SafetyState = "limit_reached" // either utilization >= 100%
	StateWarning      SafetyState = "warning"       // either utilization >= 80%
	StateAlertsActive SafetyState = "alerts_active" // unresolved alerts exist
	StateSafe         SafetyState = "safe"
)

// AdmissionDecision is the result of asking whether a proposed action is
// currently permitted under the configured rate limits.
type AdmissionDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`

	// WaitHint is a rough suggestion for how long to back off before
	// retrying. Zero when the action is allowed.
	WaitHint time.Duration `json:"wait_hint,omitempty"`
}

// ActivityCounts holds windowed activity totals.
type ActivityCounts struct {
	LastHour int `json:"last_hour"`
	Last24h  int `json:"last_24h"`
	Last7d   int `json:"last_7d"`
}

// SafetyLimits echoes the configured caps back in status snapshots.
type SafetyLimits struct {
	HourlyMax           int `json:"hourly_max"`
	DailyMax            int `json:"daily_max"`
	PostsDailyMax       int `json:"posts_daily_max"`
	CommentsDailyMax    int `json:"comments_daily_max"`
	ConnectionsDailyMax int `json:"connections_daily_max"`
}

// Utilization expresses windowed counts as a percentage of their limits.
type Utilization struct {
	HourlyPercent float64 `json:"hourly_percent"`
	DailyPercent  float64 `json:"daily_percent"`
}

// SafetyStatus is a point-in-time snapshot of activity pressure, limits,
// utilization, and unresolved alerts.
type SafetyStatus struct {
	Status         SafetyState    `json:"status"`
	ActivityCounts ActivityCounts `json:"activity_counts"`
	Limits         SafetyLimits   `json:"limits"`
	Utilization    Utilization    `json:"utilization"`

	// RiskScore is the mean risk weight of all activity in the last 24
	// hours, rounded to two decimals.
	RiskScore float64 `json:"risk_score"`

	ActiveAlerts int           `json:"active_alerts"`
	AlertDetails []SafetyAlert `json:"alert_details"`
}
