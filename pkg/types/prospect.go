package types

import "time"

// Prospect is the attribute bundle the lead scorer consumes. Prospects are
// supplied by the caller and are not persisted by the scoring engine itself.
//
// Optional fields degrade the corresponding sub-scores toward neutral or
// zero when absent; they never cause scoring to fail.
type Prospect struct {
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	Company    string `json:"company,omitempty"`
	Industry   string `json:"industry,omitempty"`
	Location   string `json:"location,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`

	MutualConnections     int      `json:"mutual_connections"`
	MutualConnectionNames []string `json:"mutual_connection_names,omitempty"`

	HasProfilePhoto bool `json:"has_profile_photo"`

	// ConnectionCount is nil when the prospect's network size is unknown.
	ConnectionCount *int `json:"connection_count,omitempty"`

	// RecentActivity is the timestamp of the prospect's last observed post
	// or interaction. Nil means no activity data, which scores neutral.
	RecentActivity *time.Time `json:"recent_activity,omitempty"`
}
