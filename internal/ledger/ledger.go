// Package ledger provides the append-only activity ledger. It records
// attempted actions with a static risk weight per action type and answers
// the time-windowed queries the safety monitor and lead scorer are built on.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/outboundlab/cadence/internal/storage"
	"github.com/outboundlab/cadence/pkg/types"
)

// defaultRiskWeight is applied to action types not in the weight table.
// Unknown types are admitted at moderate risk rather than rejected so that
// new action types never crash the automation layer.
const defaultRiskWeight = 0.3

// riskWeights maps action types to their static risk weight in [0,1].
// Higher-risk actions are the ones most likely to trip platform defenses.
var riskWeights = map[types.ActionType]float64{
	types.ActionConnectionRequest: 0.8,
	types.ActionMessage:           0.7,
	types.ActionPost:              0.5,
	types.ActionComment:           0.4,
	types.ActionLike:              0.2,
	types.ActionView:              0.1,
}

// RiskWeight returns the static risk weight for an action type.
func RiskWeight(actionType types.ActionType) float64 {
	if w, ok := riskWeights[actionType]; ok {
		return w
	}
	return defaultRiskWeight
}

// Ledger records action attempts and answers windowed aggregate queries.
// Appends never fail from the caller's perspective beyond storage errors;
// events are immutable once recorded.
type Ledger struct {
	store storage.ActivityStore
	now   func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the ledger's time source. Used in tests to pin
// windows to a fixed instant.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New creates a Ledger backed by the given activity store.
func New(store storage.ActivityStore, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the ledger's current time. Windows are anchored to this value
// independently on every call.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// RecordParams describes one action attempt to record.
type RecordParams struct {
	ActionType      types.ActionType
	TargetType      string
	TargetID        string
	DurationSeconds float64
	Success         bool
	ErrorMessage    string
}

// Record assigns the risk weight and timestamp, appends the event, and
// returns the created record.
func (l *Ledger) Record(ctx context.Context, params RecordParams) (*types.ActivityEvent, error) {
	event := &types.ActivityEvent{
		ID:              uuid.New().String(),
		ActionType:      params.ActionType,
		TargetType:      params.TargetType,
		TargetID:        params.TargetID,
		RiskScore:       RiskWeight(params.ActionType),
		PerformedAt:     l.now(),
		Success:         params.Success,
		ErrorMessage:    params.ErrorMessage,
		DurationSeconds: params.DurationSeconds,
	}

	if err := l.store.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("ledger: failed to record activity: %w", err)
	}
	return event, nil
}

// CountSince returns the number of events with performed_at >= cutoff.
// An empty actionType counts all types; successOnly restricts the count to
// successful events.
func (l *Ledger) CountSince(ctx context.Context, cutoff time.Time, actionType types.ActionType, successOnly bool) (int, error) {
	return l.store.CountSince(ctx, cutoff, storage.ActivityFilter{
		ActionType:  actionType,
		SuccessOnly: successOnly,
	})
}

// CountForTarget returns the number of events of one action type against a
// specific target with performed_at >= cutoff. Used for engagement-history
// scoring against a prospect's profile URL.
func (l *Ledger) CountForTarget(ctx context.Context, cutoff time.Time, actionType types.ActionType, targetID string) (int, error) {
	return l.store.CountSince(ctx, cutoff, storage.ActivityFilter{
		ActionType: actionType,
		TargetID:   targetID,
	})
}

// AverageRiskSince returns the mean risk score of events with
// performed_at >= cutoff, or 0.0 when there are none.
func (l *Ledger) AverageRiskSince(ctx context.Context, cutoff time.Time) (float64, error) {
	return l.store.AverageRiskSince(ctx, cutoff)
}

// Recent returns up to limit events, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]*types.ActivityEvent, error) {
	return l.store.ListRecent(ctx, limit)
}
