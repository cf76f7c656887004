package types

// Priority is the outreach priority tier derived from a total lead score.
type Priority string

// Priority tier constants, highest first.
const (
	PriorityCritical Priority = "critical" // >= 80: reach out immediately
	PriorityHigh     Priority = "high"     // >= 60
	PriorityMedium   Priority = "medium"   // >= 40
	PriorityLow      Priority = "low"      // >= 20
	PriorityIgnore   Priority = "ignore"   // below 20
)

// ScoreBreakdown holds the five independent sub-scores, each on a 0-100
// scale before weighting.
type ScoreBreakdown struct {
	ProfileQuality    float64 `json:"profile_quality"`
	EngagementHistory float64 `json:"engagement_history"`
	MutualConnections float64 `json:"mutual_connections"`
	CompanyTargeting  float64 `json:"company_targeting"`
	ActivityLevel     float64 `json:"activity_level"`
}

// ScoreResult is the output of scoring one prospect. The caller decides
// whether and where to persist it.
type ScoreResult struct {
	Prospect       Prospect       `json:"prospect"`
	TotalScore     float64        `json:"total_score"` // 0-100, weighted
	Breakdown      ScoreBreakdown `json:"scores_breakdown"`
	Priority       Priority       `json:"priority"`
	Recommendation string         `json:"recommendation"`
}

// ScoreStats aggregates a batch of score results.
type ScoreStats struct {
	Total        int              `json:"total_prospects"`
	AverageScore float64          `json:"average_score"`
	HighestScore float64          `json:"highest_score"`
	LowestScore  float64          `json:"lowest_score"`
	ByPriority   map[Priority]int `json:"counts_by_priority"`
}
