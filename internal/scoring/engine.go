// Package scoring implements the lead-scoring engine. It produces a
// reproducible, explainable 0-100 score for a prospect from five weighted
// sub-scores, plus a priority tier and an actionable recommendation.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/outboundlab/cadence/internal/config"
	"github.com/outboundlab/cadence/internal/ledger"
	"github.com/outboundlab/cadence/internal/storage"
	"github.com/outboundlab/cadence/pkg/types"
)

// Sub-score weights. They sum to 100, so the weighted total stays on a
// 0-100 scale.
const (
	weightProfileQuality    = 30
	weightEngagementHistory = 25
	weightMutualConnections = 20
	weightCompanyTargeting  = 15
	weightActivityLevel     = 10
)

// highQualityThreshold is the 0-10 connection quality score at or above
// which a mutual connection earns the quality bonus.
const highQualityThreshold = 7.0

// engagementWindow is how far back engagement history counts.
const engagementWindow = 30 * 24 * time.Hour

// Engine scores prospects for targeted outreach. It is a pure function of
// its inputs plus the ledger's engagement history and the connection
// store's quality records: identical inputs and unchanged store state yield
// identical results.
type Engine struct {
	targeting   config.TargetingConfig
	ledger      *ledger.Ledger
	connections storage.ConnectionStore
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a scoring engine. The connection store may be nil, in
// which case the mutual-connection quality bonus is skipped.
func NewEngine(targeting config.TargetingConfig, led *ledger.Ledger, connections storage.ConnectionStore, opts ...Option) *Engine {
	e := &Engine{
		targeting:   targeting,
		ledger:      led,
		connections: connections,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScoreProspect computes all five sub-scores, the weighted total, the
// priority tier, and a recommendation. Missing optional prospect fields
// degrade the corresponding sub-scores toward neutral or zero; scoring
// never fails on incomplete data.
func (e *Engine) ScoreProspect(ctx context.Context, prospect types.Prospect) (*types.ScoreResult, error) {
	engagement, err := e.scoreEngagementHistory(ctx, prospect)
	if err != nil {
		return nil, err
	}
	mutual, err := e.scoreMutualConnections(ctx, prospect)
	if err != nil {
		return nil, err
	}

	breakdown := types.ScoreBreakdown{
		ProfileQuality:    e.scoreProfileQuality(prospect),
		EngagementHistory: engagement,
		MutualConnections: mutual,
		CompanyTargeting:  e.scoreCompanyTargeting(prospect),
		ActivityLevel:     e.scoreActivityLevel(prospect),
	}

	total := breakdown.ProfileQuality*weightProfileQuality/100 +
		breakdown.EngagementHistory*weightEngagementHistory/100 +
		breakdown.MutualConnections*weightMutualConnections/100 +
		breakdown.CompanyTargeting*weightCompanyTargeting/100 +
		breakdown.ActivityLevel*weightActivityLevel/100

	return &types.ScoreResult{
		Prospect:       prospect,
		TotalScore:     round1(total),
		Breakdown:      breakdown,
		Priority:       priorityTier(total),
		Recommendation: recommendation(total, breakdown),
	}, nil
}

// scoreProfileQuality scores photo presence, title relevance, company
// signal, and profile completeness (0-100).
func (e *Engine) scoreProfileQuality(p types.Prospect) float64 {
	score := 0.0

	if p.HasProfilePhoto {
		score += 10
	}

	// Title relevance, best match wins: target title 40, own interest
	// keyword 20, any non-trivial title 10.
	title := strings.ToLower(p.Title)
	switch {
	case title == "":
	case containsAny(title, e.targeting.TargetTitles):
		score += 40
	case containsAny(title, e.targeting.Interests):
		score += 20
	case len(title) > 5:
		score += 10
	}

	// Company signal.
	if p.Company != "" {
		score += 10
		if p.ConnectionCount != nil && *p.ConnectionCount > 500 {
			score += 10
		}
		if len(p.Company) > 3 {
			score += 10
		}
	}

	// Completeness indicators.
	if p.Location != "" {
		score += 5
	}
	if p.Industry != "" {
		score += 5
	}
	if p.ConnectionCount != nil && *p.ConnectionCount > 100 {
		score += 10
	}

	return math.Min(score, 100)
}

// scoreEngagementHistory scores likes and comments this prospect left on
// our content in the trailing 30 days (0-100). A prospect without a
// profile URL scores zero because nothing can be attributed to them.
func (e *Engine) scoreEngagementHistory(ctx context.Context, p types.Prospect) (float64, error) {
	if p.ProfileURL == "" {
		return 0, nil
	}

	cutoff := e.now().Add(-engagementWindow)

	likes, err := e.ledger.CountForTarget(ctx, cutoff, types.ActionReceivedLike, p.ProfileURL)
	if err != nil {
		return 0, fmt.Errorf("scoring: failed to count received likes: %w", err)
	}
	comments, err := e.ledger.CountForTarget(ctx, cutoff, types.ActionReceivedComment, p.ProfileURL)
	if err != nil {
		return 0, fmt.Errorf("scoring: failed to count received comments: %w", err)
	}

	score := math.Min(float64(likes)*5, 25) + math.Min(float64(comments)*15, 60)
	if likes > 0 && comments > 0 {
		score += 15
	}
	return math.Min(score, 100), nil
}

// scoreMutualConnections scores the count of shared connections plus a
// quality bonus for names that match high-quality connections we already
// hold (0-100).
func (e *Engine) scoreMutualConnections(ctx context.Context, p types.Prospect) (float64, error) {
	var score float64
	switch {
	case p.MutualConnections <= 0:
		score = 0
	case p.MutualConnections == 1:
		score = 20
	case p.MutualConnections == 2:
		score = 35
	case p.MutualConnections <= 5:
		score = 50
	case p.MutualConnections <= 10:
		score = 70
	default:
		score = 85
	}

	if len(p.MutualConnectionNames) > 0 && e.connections != nil {
		matches, err := e.connections.CountHighQualityByNames(ctx, p.MutualConnectionNames, highQualityThreshold)
		if err != nil {
			return 0, fmt.Errorf("scoring: failed to match mutual connections: %w", err)
		}
		// +5 per high-quality mutual, capped at +15.
		score += math.Min(float64(matches)*5, 15)
	}

	return math.Min(score, 100), nil
}

// scoreCompanyTargeting scores company and industry matches against the
// targeting lists (0-100). The +30 bonus requires both a company and an
// industry match to have fired independently.
func (e *Engine) scoreCompanyTargeting(p types.Prospect) float64 {
	score := 0.0

	companyMatch := p.Company != "" && containsAny(strings.ToLower(p.Company), e.targeting.TargetCompanies)
	industryMatch := p.Industry != "" && containsAny(strings.ToLower(p.Industry), e.targeting.TargetIndustries)

	if companyMatch {
		score += 70
	}
	if industryMatch {
		score += 40
	}
	if companyMatch && industryMatch {
		score += 30
	}

	return math.Min(score, 100)
}

// scoreActivityLevel scores recency of the prospect's last observed
// activity (0-100). No data scores a neutral 50.
func (e *Engine) scoreActivityLevel(p types.Prospect) float64 {
	if p.RecentActivity == nil {
		return 50
	}

	daysAgo := int(e.now().Sub(*p.RecentActivity).Hours() / 24)
	switch {
	case daysAgo <= 1:
		return 100
	case daysAgo <= 3:
		return 90
	case daysAgo <= 7:
		return 80
	case daysAgo <= 14:
		return 70
	case daysAgo <= 30:
		return 60
	case daysAgo <= 90:
		return 40
	default:
		return 20
	}
}

// priorityTier maps an unrounded total score to its tier.
func priorityTier(total float64) types.Priority {
	switch {
	case total >= 80:
		return types.PriorityCritical
	case total >= 60:
		return types.PriorityHigh
	case total >= 40:
		return types.PriorityMedium
	case total >= 20:
		return types.PriorityLow
	default:
		return types.PriorityIgnore
	}
}

// recommendation picks a message by tier and, in the high tier, by which
// sub-score dominates.
func recommendation(total float64, b types.ScoreBreakdown) string {
	switch {
	case total >= 80:
		return "Hot lead! Send personalized connection request ASAP"
	case total >= 60:
		switch {
		case b.EngagementHistory >= 50:
			return "Has engaged with your content - mention this in your message"
		case b.MutualConnections >= 70:
			return "Strong mutual connections - ask for an introduction"
		case b.CompanyTargeting >= 70:
			return "Target company employee - personalize around their company"
		default:
			return "High-quality prospect - send personalized request"
		}
	case total >= 40:
		return "Worth connecting - use standard personalized template"
	case total >= 20:
		return "Low priority - consider waiting for engagement first"
	default:
		return "Not recommended - score too low"
	}
}

// BatchScore scores all prospects and returns the results sorted by total
// score descending. The sort is stable, so ties keep input order.
func (e *Engine) BatchScore(ctx context.Context, prospects []types.Prospect) ([]*types.ScoreResult, error) {
	results := make([]*types.ScoreResult, 0, len(prospects))
	for _, p := range prospects {
		result, err := e.ScoreProspect(ctx, p)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScore > results[j].TotalScore
	})
	return results, nil
}

// Stats aggregates a batch of score results.
func Stats(results []*types.ScoreResult) types.ScoreStats {
	stats := types.ScoreStats{
		ByPriority: map[types.Priority]int{},
	}
	if len(results) == 0 {
		return stats
	}

	stats.Total = len(results)
	stats.HighestScore = results[0].TotalScore
	stats.LowestScore = results[0].TotalScore

	sum := 0.0
	for _, r := range results {
		sum += r.TotalScore
		stats.HighestScore = math.Max(stats.HighestScore, r.TotalScore)
		stats.LowestScore = math.Min(stats.LowestScore, r.TotalScore)
		stats.ByPriority[r.Priority]++
	}
	stats.AverageScore = round1(sum / float64(len(results)))
	return stats
}

// containsAny reports whether haystack (already lowercased) contains any of
// the needles, case-insensitively.
func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
