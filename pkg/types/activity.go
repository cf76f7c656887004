// Package types defines the core data structures for the Cadence outreach
// engine: activity events, safety alerts, prospects, lead scores, and
// network connections.
package types

import "time"

// ActionType represents a category of automated outreach activity.
type ActionType string

// Action type constants. Each carries a static risk weight assigned at
// event creation time (see the ledger package).
const (
	ActionPost              ActionType = "post"
	ActionComment           ActionType = "comment"
	ActionLike              ActionType = "like"
	ActionView              ActionType = "view"
	ActionConnectionRequest ActionType = "connection_request"
	ActionMessage           ActionType = "message"

	// Inbound engagement events recorded against our own content.
	// These feed the lead scorer's engagement history, not rate limits.
	ActionReceivedLike    ActionType = "received_like"
	ActionReceivedComment ActionType = "received_comment"
)

// ActivityEvent is an immutable record of one attempted action.
// Events are created once by the ledger and never mutated or deleted.
type ActivityEvent struct {
	ID         string     `json:"id"`          // UUID assigned at creation
	ActionType ActionType `json:"action_type"` // Category of the action
	TargetType string     `json:"target_type"` // What was acted on (post, profile, company)
	TargetID   string     `json:"target_id"`   // ID or URL of the target

	// RiskScore is in [0,1], assigned from the static per-action-type
	// weight table when the event is recorded.
	RiskScore float64 `json:"risk_score"`

	PerformedAt     time.Time `json:"performed_at"`
	Success         bool      `json:"success"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"` // Informational only
}
