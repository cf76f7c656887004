// Package safety gates automated actions against configured rate limits and
// maintains alert state. It also provides the pacing and failure-breaker
// guards the automation layer consults before touching the real world.
package safety

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/outboundlab/cadence/internal/config"
	"github.com/outboundlab/cadence/internal/ledger"
	"github.com/outboundlab/cadence/internal/storage"
	"github.com/outboundlab/cadence/pkg/types"
)

// warningFraction is the share of a limit at which a warning alert fires.
const warningFraction = 0.8

// AlertRaisedFunc is invoked after a new alert is created. Used to fan
// alerts out to notification writers and websocket feeds.
type AlertRaisedFunc func(alert *types.SafetyAlert)

// Monitor gates new actions against the configured limits and raises
// idempotent alerts when utilization crosses the warning threshold.
//
// LogActivity and the threshold evaluation it triggers run as one critical
// section, so two workers sharing a store cannot both slip past a limit
// between check and log.
type Monitor struct {
	cfg     config.SafetyConfig
	ledger  *ledger.Ledger
	alerts  storage.AlertStore
	metrics MetricsRecorder

	onAlertRaised AlertRaisedFunc

	mu sync.Mutex
}

// MetricsRecorder receives monitor events for instrumentation. A nil-safe
// no-op recorder is used when metrics are disabled.
type MetricsRecorder interface {
	ActivityLogged(actionType types.ActionType, success bool)
	AdmissionDecided(actionType types.ActionType, allowed bool)
	AlertRaised(alertType types.AlertType)
}

// NewMonitor creates a safety monitor over the given ledger and alert store.
func NewMonitor(cfg config.SafetyConfig, led *ledger.Ledger, alerts storage.AlertStore) *Monitor {
	return &Monitor{
		cfg:    cfg,
		ledger: led,
		alerts: alerts,
	}
}

// SetMetrics attaches a metrics recorder. Call before the monitor is shared
// between goroutines.
func (m *Monitor) SetMetrics(rec MetricsRecorder) {
	m.metrics = rec
}

// OnAlertRaised registers a callback for newly created alerts. Call before
// the monitor is shared between goroutines.
func (m *Monitor) OnAlertRaised(fn AlertRaisedFunc) {
	m.onAlertRaised = fn
}

// LogActivity records an attempted action and evaluates the rate-limit
// thresholds. This is the only way activity enters the system. It always
// succeeds at the ledger layer; a failed real-world action is recorded via
// Success=false and ErrorMessage, never surfaced as an error here.
func (m *Monitor) LogActivity(ctx context.Context, params ledger.RecordParams) (*types.ActivityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	event, err := m.ledger.Record(ctx, params)
	if err != nil {
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.ActivityLogged(params.ActionType, params.Success)
	}

	if err := m.evaluateThresholds(ctx); err != nil {
		return nil, err
	}
	return event, nil
}

// EvaluateThresholds re-checks the hourly and daily windows and raises
// alerts as needed. LogActivity calls this automatically; it is exported
// for operator tooling that wants a re-check without logging.
func (m *Monitor) EvaluateThresholds(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluateThresholds(ctx)
}

func (m *Monitor) evaluateThresholds(ctx context.Context) error {
	now := m.ledger.Now()

	hourly, err := m.ledger.CountSince(ctx, now.Add(-time.Hour), "", true)
	if err != nil {
		return fmt.Errorf("safety: failed to count hourly activity: %w", err)
	}

	if m.cfg.MaxActionsPerHour > 0 && float64(hourly) >= warningFraction*float64(m.cfg.MaxActionsPerHour) {
		severity := types.SeverityMedium
		if hourly >= m.cfg.MaxActionsPerHour {
			severity = types.SeverityHigh
		}
		err := m.raiseAlert(ctx, types.AlertRateLimitHourly, severity,
			fmt.Sprintf("Approaching hourly action limit: %d/%d", hourly, m.cfg.MaxActionsPerHour),
			float64(hourly)/float64(m.cfg.MaxActionsPerHour),
			"Slow down activity. Consider pausing for 30-60 minutes.")
		if err != nil {
			return err
		}
	}

	daily, err := m.ledger.CountSince(ctx, now.Add(-24*time.Hour), "", true)
	if err != nil {
		return fmt.Errorf("safety: failed to count daily activity: %w", err)
	}

	if m.cfg.MaxActionsPerDay > 0 && float64(daily) >= warningFraction*float64(m.cfg.MaxActionsPerDay) {
		severity := types.SeverityMedium
		if daily >= m.cfg.MaxActionsPerDay {
			severity = types.SeverityHigh
		}
		err := m.raiseAlert(ctx, types.AlertRateLimitDaily, severity,
			fmt.Sprintf("Approaching daily action limit: %d/%d", daily, m.cfg.MaxActionsPerDay),
			float64(daily)/float64(m.cfg.MaxActionsPerDay),
			"Consider stopping activity for today.")
		if err != nil {
			return err
		}
	}

	return nil
}

// raiseAlert creates an alert unless an unresolved one of the same type
// already exists. Creation is idempotent per the alert-store contract.
func (m *Monitor) raiseAlert(ctx context.Context, alertType types.AlertType, severity types.AlertSeverity, message string, riskScore float64, recommended string) error {
	alert := &types.SafetyAlert{
		ID:                uuid.New().String(),
		AlertType:         alertType,
		Severity:          severity,
		Message:           message,
		RiskScore:         riskScore,
		RecommendedAction: recommended,
		CreatedAt:         m.ledger.Now(),
	}

	stored, created, err := m.alerts.CreateIfAbsent(ctx, alert)
	if err != nil {
		return fmt.Errorf("safety: failed to raise %s alert: %w", alertType, err)
	}
	if created {
		if m.metrics != nil {
			m.metrics.AlertRaised(alertType)
		}
		if m.onAlertRaised != nil {
			m.onAlertRaised(stored)
		}
	}
	return nil
}

// CheckActionAllowed evaluates whether an action of the given type is
// currently permitted. The check is read-only: it never logs an event, so
// a denied check does not pollute the ledger. The automation layer must
// call LogActivity afterward to record the attempt, successful or not.
func (m *Monitor) CheckActionAllowed(ctx context.Context, actionType types.ActionType) (types.AdmissionDecision, error) {
	decision, err := m.checkActionAllowed(ctx, actionType)
	if err == nil && m.metrics != nil {
		m.metrics.AdmissionDecided(actionType, decision.Allowed)
	}
	return decision, err
}

func (m *Monitor) checkActionAllowed(ctx context.Context, actionType types.ActionType) (types.AdmissionDecision, error) {
	now := m.ledger.Now()
	dayAgo := now.Add(-24 * time.Hour)

	hourly, err := m.ledger.CountSince(ctx, now.Add(-time.Hour), "", true)
	if err != nil {
		return types.AdmissionDecision{}, fmt.Errorf("safety: failed to count hourly activity: %w", err)
	}
	if m.cfg.MaxActionsPerHour > 0 && hourly >= m.cfg.MaxActionsPerHour {
		return types.AdmissionDecision{
			Reason:   fmt.Sprintf("Hourly limit reached (%d/%d). Wait until next hour.", hourly, m.cfg.MaxActionsPerHour),
			WaitHint: time.Hour,
		}, nil
	}

	daily, err := m.ledger.CountSince(ctx, dayAgo, "", true)
	if err != nil {
		return types.AdmissionDecision{}, fmt.Errorf("safety: failed to count daily activity: %w", err)
	}
	if m.cfg.MaxActionsPerDay > 0 && daily >= m.cfg.MaxActionsPerDay {
		return types.AdmissionDecision{
			Reason:   fmt.Sprintf("Daily limit reached (%d/%d). Wait until tomorrow.", daily, m.cfg.MaxActionsPerDay),
			WaitHint: 24 * time.Hour,
		}, nil
	}

	// Per-action daily caps. Action types without a specific cap (like,
	// view, message) only face the generic limits above.
	type actionCap struct {
		limit int
		noun  string
	}
	caps := map[types.ActionType]actionCap{
		types.ActionPost:              {m.cfg.MaxPostsPerDay, "post"},
		types.ActionComment:           {m.cfg.MaxCommentsPerDay, "comment"},
		types.ActionConnectionRequest: {m.cfg.MaxConnectionRequestsPerDay, "connection request"},
	}
	if c, ok := caps[actionType]; ok && c.limit > 0 {
		count, err := m.ledger.CountSince(ctx, dayAgo, actionType, true)
		if err != nil {
			return types.AdmissionDecision{}, fmt.Errorf("safety: failed to count %s activity: %w", actionType, err)
		}
		if count >= c.limit {
			return types.AdmissionDecision{
				Reason:   fmt.Sprintf("Daily %s limit reached (%d/%d).", c.noun, count, c.limit),
				WaitHint: 24 * time.Hour,
			}, nil
		}
	}

	return types.AdmissionDecision{Allowed: true, Reason: "Action permitted"}, nil
}

// GetSafetyStatus returns a point-in-time snapshot of activity pressure,
// configured limits, utilization, 24h average risk, and unresolved alerts.
func (m *Monitor) GetSafetyStatus(ctx context.Context) (*types.SafetyStatus, error) {
	now := m.ledger.Now()

	hourly, err := m.ledger.CountSince(ctx, now.Add(-time.Hour), "", false)
	if err != nil {
		return nil, fmt.Errorf("safety: failed to count hourly activity: %w", err)
	}
	daily, err := m.ledger.CountSince(ctx, now.Add(-24*time.Hour), "", false)
	if err != nil {
		return nil, fmt.Errorf("safety: failed to count daily activity: %w", err)
	}
	weekly, err := m.ledger.CountSince(ctx, now.Add(-7*24*time.Hour), "", false)
	if err != nil {
		return nil, fmt.Errorf("safety: failed to count weekly activity: %w", err)
	}

	var hourlyUtil, dailyUtil float64
	if m.cfg.MaxActionsPerHour > 0 {
		hourlyUtil = float64(hourly) / float64(m.cfg.MaxActionsPerHour) * 100
	}
	if m.cfg.MaxActionsPerDay > 0 {
		dailyUtil = float64(daily) / float64(m.cfg.MaxActionsPerDay) * 100
	}

	avgRisk, err := m.ledger.AverageRiskSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("safety: failed to average risk: %w", err)
	}

	unresolved, err := m.alerts.ListUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("safety: failed to list unresolved alerts: %w", err)
	}

	var state types.SafetyState
	switch {
	case hourlyUtil >= 100 || dailyUtil >= 100:
		state = types.StateLimitReached
	case hourlyUtil >= 80 || dailyUtil >= 80:
		state = types.StateWarning
	case len(unresolved) > 0:
		state = types.StateAlertsActive
	default:
		state = types.StateSafe
	}

	details := make([]types.SafetyAlert, 0, len(unresolved))
	for _, a := range unresolved {
		details = append(details, *a)
	}

	return &types.SafetyStatus{
		Status: state,
		ActivityCounts: types.ActivityCounts{
			LastHour: hourly,
			Last24h:  daily,
			Last7d:   weekly,
		},
		Limits: types.SafetyLimits{
			HourlyMax:           m.cfg.MaxActionsPerHour,
			DailyMax:            m.cfg.MaxActionsPerDay,
			PostsDailyMax:       m.cfg.MaxPostsPerDay,
			CommentsDailyMax:    m.cfg.MaxCommentsPerDay,
			ConnectionsDailyMax: m.cfg.MaxConnectionRequestsPerDay,
		},
		Utilization: types.Utilization{
			HourlyPercent: round1(hourlyUtil),
			DailyPercent:  round1(dailyUtil),
		},
		RiskScore:    round2(avgRisk),
		ActiveAlerts: len(unresolved),
		AlertDetails: details,
	}, nil
}

// AcknowledgeAlert marks an alert acknowledged. Acknowledgement is optional
// and does not gate resolution.
func (m *Monitor) AcknowledgeAlert(ctx context.Context, id string) error {
	return m.alerts.AcknowledgeAlert(ctx, id, m.ledger.Now())
}

// ResolveAlert marks an alert resolved. Alerts never resolve on their own,
// even when utilization drops back below the threshold.
func (m *Monitor) ResolveAlert(ctx context.Context, id string) error {
	return m.alerts.ResolveAlert(ctx, id, m.ledger.Now())
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
