package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outboundlab/cadence/internal/storage"
	"github.com/outboundlab/cadence/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func makeEvent(actionType types.ActionType, performedAt time.Time, success bool) *types.ActivityEvent {
	return &types.ActivityEvent{
		ID:          "evt-" + string(actionType) + performedAt.Format("150405.000000000"),
		ActionType:  actionType,
		TargetType:  "profile",
		TargetID:    "https://example.com/in/someone",
		RiskScore:   0.5,
		PerformedAt: performedAt,
		Success:     success,
	}
}

func TestCountSince_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, makeEvent(types.ActionLike, now.Add(-10*time.Minute), true)))
	require.NoError(t, store.Append(ctx, makeEvent(types.ActionPost, now.Add(-20*time.Minute), true)))
	require.NoError(t, store.Append(ctx, makeEvent(types.ActionPost, now.Add(-30*time.Minute), false)))
	require.NoError(t, store.Append(ctx, makeEvent(types.ActionPost, now.Add(-2*time.Hour), true)))

	count, err := store.CountSince(ctx, now.Add(-time.Hour), storage.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, count, "all events in the last hour")

	count, err = store.CountSince(ctx, now.Add(-time.Hour), storage.ActivityFilter{ActionType: types.ActionPost})
	require.NoError(t, err)
	assert.Equal(t, 2, count, "posts in the last hour")

	count, err = store.CountSince(ctx, now.Add(-time.Hour), storage.ActivityFilter{ActionType: types.ActionPost, SuccessOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "successful posts in the last hour")

	count, err = store.CountSince(ctx, now.Add(-3*time.Hour), storage.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, count, "wider window includes the old post")
}

func TestCountSince_TargetFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	liked := makeEvent(types.ActionReceivedLike, now.Add(-time.Hour), true)
	liked.TargetID = "https://example.com/in/alice"
	require.NoError(t, store.Append(ctx, liked))

	other := makeEvent(types.ActionReceivedLike, now.Add(-2*time.Hour), true)
	other.ID = "evt-other"
	other.TargetID = "https://example.com/in/bob"
	require.NoError(t, store.Append(ctx, other))

	count, err := store.CountSince(ctx, now.Add(-24*time.Hour), storage.ActivityFilter{
		ActionType: types.ActionReceivedLike,
		TargetID:   "https://example.com/in/alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAverageRiskSince(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	avg, err := store.AverageRiskSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg, "empty window averages to zero")

	e1 := makeEvent(types.ActionConnectionRequest, now.Add(-10*time.Minute), true)
	e1.RiskScore = 0.8
	e2 := makeEvent(types.ActionLike, now.Add(-20*time.Minute), true)
	e2.RiskScore = 0.2
	require.NoError(t, store.Append(ctx, e1))
	require.NoError(t, store.Append(ctx, e2))

	avg, err = store.AverageRiskSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, avg, 0.001)
}

func TestListRecent_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		e := makeEvent(types.ActionView, now.Add(-time.Duration(i)*time.Minute), true)
		require.NoError(t, store.Append(ctx, e))
	}

	events, err := store.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].PerformedAt.After(events[i-1].PerformedAt),
			"events should be ordered newest first")
	}
}

func makeAlert(alertType types.AlertType) *types.SafetyAlert {
	return &types.SafetyAlert{
		ID:                "alert-" + string(alertType),
		AlertType:         alertType,
		Severity:          types.SeverityMedium,
		Message:           "Approaching hourly action limit: 8/10",
		RiskScore:         0.8,
		RecommendedAction: "Slow down activity.",
		CreatedAt:         time.Now().UTC(),
	}
}

func TestCreateIfAbsent_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := makeAlert(types.AlertRateLimitHourly)
	stored, created, err := store.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.ID, stored.ID)

	// Same type again while unresolved: no new alert, existing returned.
	dup := makeAlert(types.AlertRateLimitHourly)
	dup.ID = "alert-duplicate"
	stored, created, err = store.CreateIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, stored.ID)

	// A different type is independent.
	daily := makeAlert(types.AlertRateLimitDaily)
	_, created, err = store.CreateIfAbsent(ctx, daily)
	require.NoError(t, err)
	assert.True(t, created)

	unresolved, err := store.ListUnresolved(ctx)
	require.NoError(t, err)
	assert.Len(t, unresolved, 2)
}

func TestCreateIfAbsent_AfterResolve(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := makeAlert(types.AlertRateLimitHourly)
	_, created, err := store.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	require.True(t, created)

	require.NoError(t, store.ResolveAlert(ctx, first.ID, time.Now().UTC()))

	// Once resolved, the same condition can raise a fresh alert.
	second := makeAlert(types.AlertRateLimitHourly)
	second.ID = "alert-second"
	stored, created, err := store.CreateIfAbsent(ctx, second)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alert-second", stored.ID)
}

func TestAlertLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alert := makeAlert(types.AlertRateLimitDaily)
	_, _, err := store.CreateIfAbsent(ctx, alert)
	require.NoError(t, err)

	ackAt := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	require.NoError(t, store.AcknowledgeAlert(ctx, alert.ID, ackAt))

	got, err := store.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.True(t, got.Acknowledged)
	require.NotNil(t, got.AcknowledgedAt)
	assert.False(t, got.Resolved)

	require.NoError(t, store.ResolveAlert(ctx, alert.ID, ackAt.Add(time.Minute)))
	got, err = store.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.True(t, got.Resolved)
	require.NotNil(t, got.ResolvedAt)

	unresolved, err := store.ListUnresolved(ctx)
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestAlertTransitions_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.AcknowledgeAlert(ctx, "missing", time.Now().UTC())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.ResolveAlert(ctx, "missing", time.Now().UTC())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetAlert(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func makeConnection(name, profileURL string, quality float64) *types.Connection {
	now := time.Now().UTC()
	return &types.Connection{
		ID:               "conn-" + name,
		Name:             name,
		ProfileURL:       profileURL,
		QualityScore:     quality,
		EngagementLevel:  types.EngagementMedium,
		ConnectionSource: "manual",
		IsActive:         true,
		ConnectedAt:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestUpsertConnection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conn := makeConnection("Alice Chen", "https://example.com/in/alice", 5.0)
	stored, err := store.UpsertConnection(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, "Alice Chen", stored.Name)

	// Same profile URL updates in place, keeping the row count at one.
	conn.Title = "VP Engineering"
	conn.QualityScore = 7.5
	stored, err = store.UpsertConnection(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, "VP Engineering", stored.Title)
	assert.Equal(t, 7.5, stored.QualityScore)

	top, err := store.ListTopConnections(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestGetConnection_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetConnection(context.Background(), "https://example.com/in/nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCountHighQualityByNames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertConnection(ctx, makeConnection("Alice Chen", "https://example.com/in/alice", 8.0))
	require.NoError(t, err)
	_, err = store.UpsertConnection(ctx, makeConnection("Bob Park", "https://example.com/in/bob", 3.0))
	require.NoError(t, err)

	inactive := makeConnection("Carol Diaz", "https://example.com/in/carol", 9.0)
	inactive.IsActive = false
	_, err = store.UpsertConnection(ctx, inactive)
	require.NoError(t, err)

	// Matching is case-insensitive; Bob is below the quality bar, Carol is
	// inactive, and empty names are skipped.
	matched, err := store.CountHighQualityByNames(ctx,
		[]string{"alice chen", "Bob Park", "Carol Diaz", "", "Nobody"}, 7.0)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)
}

func TestListTopConnections_Ordering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, c := range []struct {
		name    string
		quality float64
	}{
		{"Low", 2.0},
		{"High", 9.0},
		{"Mid", 5.0},
	} {
		_, err := store.UpsertConnection(ctx,
			makeConnection(c.name, "https://example.com/in/"+c.name, c.quality))
		require.NoError(t, err)
	}

	top, err := store.ListTopConnections(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "High", top[0].Name)
	assert.Equal(t, "Mid", top[1].Name)

	top, err = store.ListTopConnections(ctx, 10, 4.0)
	require.NoError(t, err)
	assert.Len(t, top, 2, "quality floor excludes the low connection")
}
