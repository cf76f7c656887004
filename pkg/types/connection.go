package types

import "time"

// EngagementLevel buckets a connection's quality score.
type EngagementLevel string

// Engagement level constants.
const (
	EngagementHigh   EngagementLevel = "high"   // quality >= 7.0
	EngagementMedium EngagementLevel = "medium" // quality >= 4.0
	EngagementLow    EngagementLevel = "low"    // quality > 0
	EngagementNone   EngagementLevel = "none"
)

// Connection is an accepted network connection with tracked engagement and
// a derived 0-10 quality score. High-quality connections (quality >= 7.0)
// feed the lead scorer's mutual-connection bonus.
type Connection struct {
	ID         string `json:"id"` // UUID
	Name       string `json:"name"`
	ProfileURL string `json:"profile_url"` // Unique key for upserts
	Title      string `json:"title,omitempty"`
	Company    string `json:"company,omitempty"`
	Location   string `json:"location,omitempty"`

	// Engagement counters, incremented via UpdateEngagement.
	MessagesSent      int `json:"messages_sent"`
	MessagesReceived  int `json:"messages_received"`
	PostsEngaged      int `json:"posts_engaged"`
	MutualConnections int `json:"mutual_connections"`

	QualityScore    float64         `json:"quality_score"` // 0-10
	EngagementLevel EngagementLevel `json:"engagement_level"`

	ConnectionSource string     `json:"connection_source"` // manual, automated, imported
	IsActive         bool       `json:"is_active"`
	ConnectedAt      time.Time  `json:"connected_at"`
	LastInteraction  *time.Time `json:"last_interaction,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
