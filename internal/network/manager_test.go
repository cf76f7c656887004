package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outboundlab/cadence/internal/storage"
	"github.com/outboundlab/cadence/internal/storage/sqlite"
	"github.com/outboundlab/cadence/pkg/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewManager(store)
}

func TestAddConnection(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	conn, err := manager.AddConnection(ctx, AddParams{
		Name:       "Alice Chen",
		ProfileURL: "https://example.com/in/alice",
		Title:      "VP Engineering",
		Company:    "TechCorp",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, conn.ID)
	assert.Equal(t, "manual", conn.ConnectionSource, "source defaults to manual")
	assert.True(t, conn.IsActive)
	assert.Equal(t, 0.0, conn.QualityScore)
	assert.Equal(t, types.EngagementNone, conn.EngagementLevel)
}

func TestAddConnection_RequiresProfileURL(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.AddConnection(context.Background(), AddParams{Name: "No URL"})
	assert.Error(t, err)
}

func TestAddConnection_RefreshPreservesEngagement(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	first, err := manager.AddConnection(ctx, AddParams{
		Name:              "Alice Chen",
		ProfileURL:        "https://example.com/in/alice",
		MutualConnections: 4,
	})
	require.NoError(t, err)

	_, err = manager.UpdateEngagement(ctx, first.ProfileURL, 3, 2, 1)
	require.NoError(t, err)

	// Re-adding the same profile refreshes the profile fields but keeps
	// the identity, counters, and connect date.
	refreshed, err := manager.AddConnection(ctx, AddParams{
		Name:       "Alice Chen",
		ProfileURL: "https://example.com/in/alice",
		Title:      "SVP Engineering",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, refreshed.ID)
	assert.Equal(t, "SVP Engineering", refreshed.Title)
	assert.Equal(t, 3, refreshed.MessagesSent)
	assert.Equal(t, 2, refreshed.MessagesReceived)
	assert.Equal(t, 1, refreshed.PostsEngaged)
	assert.Equal(t, 4, refreshed.MutualConnections, "zero mutuals in a refresh keeps the known count")
	assert.True(t, refreshed.ConnectedAt.Equal(first.ConnectedAt))
}

func TestUpdateEngagement_QualityScore(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	_, err := manager.AddConnection(ctx, AddParams{
		Name:       "Bob Park",
		ProfileURL: "https://example.com/in/bob",
	})
	require.NoError(t, err)

	// 2*2.0 sent + 1*3.0 received + 1*1.5 engaged = 8.5
	conn, err := manager.UpdateEngagement(ctx, "https://example.com/in/bob", 2, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 8.5, conn.QualityScore)
	assert.Equal(t, types.EngagementHigh, conn.EngagementLevel)
	require.NotNil(t, conn.LastInteraction)

	// Further engagement caps at 10.
	conn, err = manager.UpdateEngagement(ctx, "https://example.com/in/bob", 5, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, 10.0, conn.QualityScore)
}

func TestUpdateEngagement_Levels(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	_, err := manager.AddConnection(ctx, AddParams{
		Name:       "Carol Diaz",
		ProfileURL: "https://example.com/in/carol",
	})
	require.NoError(t, err)

	// One engaged post: 1.5 quality, low.
	conn, err := manager.UpdateEngagement(ctx, "https://example.com/in/carol", 0, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, types.EngagementLow, conn.EngagementLevel)

	// One message each way on top: 1.5 + 2.0 + 3.0 = 6.5, medium.
	conn, err = manager.UpdateEngagement(ctx, "https://example.com/in/carol", 1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, types.EngagementMedium, conn.EngagementLevel)
}

func TestUpdateEngagement_NotFound(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.UpdateEngagement(context.Background(), "https://example.com/in/nobody", 1, 0, 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTopConnections(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	seed := []struct {
		name     string
		received int
	}{
		{"Quiet", 0},
		{"Warm", 1},
		{"Close", 3},
	}
	for _, s := range seed {
		_, err := manager.AddConnection(ctx, AddParams{
			Name:       s.name,
			ProfileURL: "https://example.com/in/" + s.name,
		})
		require.NoError(t, err)
		if s.received > 0 {
			_, err = manager.UpdateEngagement(ctx, "https://example.com/in/"+s.name, 0, s.received, 0)
			require.NoError(t, err)
		}
	}

	top, err := manager.TopConnections(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Close", top[0].Name)
	assert.Equal(t, "Warm", top[1].Name)

	// Quality floor excludes everyone but the closest connection.
	top, err = manager.TopConnections(ctx, 10, 7.0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Close", top[0].Name)
}

func TestWithClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	manager := NewManager(store, WithClock(func() time.Time { return fixed }))

	conn, err := manager.AddConnection(context.Background(), AddParams{
		Name:       "Clock Test",
		ProfileURL: "https://example.com/in/clock",
	})
	require.NoError(t, err)
	assert.True(t, conn.ConnectedAt.Equal(fixed))
}
