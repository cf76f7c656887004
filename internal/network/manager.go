// Package network manages accepted connections and their engagement-derived
// quality scores. High-quality connections feed the lead scorer's
// mutual-connection bonus.
package network

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/outboundlab/cadence/internal/storage"
	"github.com/outboundlab/cadence/pkg/types"
)

// Engagement weights for the 0-10 quality score. Received messages weigh
// most: someone writing back is the strongest signal of a live relationship.
const (
	weightMessagesSent      = 2.0
	weightMessagesReceived  = 3.0
	weightPostsEngaged      = 1.5
	weightMutualConnections = 0.5
)

// Manager manages network connections and their quality scores.
type Manager struct {
	store storage.ConnectionStore
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the manager's time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a connection manager over the given store.
func NewManager(store storage.ConnectionStore, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddParams describes a connection to add or refresh.
type AddParams struct {
	Name              string
	ProfileURL        string
	Title             string
	Company           string
	Location          string
	MutualConnections int
	Source            string // manual, automated, imported (default: manual)
}

// AddConnection inserts a new connection or refreshes the profile fields of
// an existing one with the same profile URL. Engagement counters on an
// existing connection are preserved.
func (m *Manager) AddConnection(ctx context.Context, params AddParams) (*types.Connection, error) {
	if params.ProfileURL == "" {
		return nil, errors.New("network: profile URL is required")
	}
	if params.Source == "" {
		params.Source = "manual"
	}

	now := m.now()
	conn := &types.Connection{
		ID:                uuid.New().String(),
		Name:              params.Name,
		ProfileURL:        params.ProfileURL,
		Title:             params.Title,
		Company:           params.Company,
		Location:          params.Location,
		MutualConnections: params.MutualConnections,
		ConnectionSource:  params.Source,
		IsActive:          true,
		ConnectedAt:       now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	existing, err := m.store.GetConnection(ctx, params.ProfileURL)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("network: failed to look up connection: %w", err)
	}
	if existing != nil {
		conn.ID = existing.ID
		conn.ConnectedAt = existing.ConnectedAt
		conn.CreatedAt = existing.CreatedAt
		conn.ConnectionSource = existing.ConnectionSource
		conn.MessagesSent = existing.MessagesSent
		conn.MessagesReceived = existing.MessagesReceived
		conn.PostsEngaged = existing.PostsEngaged
		conn.LastInteraction = existing.LastInteraction
		if params.MutualConnections == 0 {
			conn.MutualConnections = existing.MutualConnections
		}
	}

	applyQuality(conn)
	return m.store.UpsertConnection(ctx, conn)
}

// UpdateEngagement increments the engagement counters for a connection,
// stamps the interaction time, and recomputes the quality score. Returns
// storage.ErrNotFound when no connection has the given profile URL.
func (m *Manager) UpdateEngagement(ctx context.Context, profileURL string, messagesSent, messagesReceived, postsEngaged int) (*types.Connection, error) {
	conn, err := m.store.GetConnection(ctx, profileURL)
	if err != nil {
		return nil, err
	}

	conn.MessagesSent += messagesSent
	conn.MessagesReceived += messagesReceived
	conn.PostsEngaged += postsEngaged

	now := m.now()
	conn.LastInteraction = &now
	conn.UpdatedAt = now

	applyQuality(conn)
	return m.store.UpsertConnection(ctx, conn)
}

// GetConnection retrieves a connection by profile URL.
func (m *Manager) GetConnection(ctx context.Context, profileURL string) (*types.Connection, error) {
	return m.store.GetConnection(ctx, profileURL)
}

// TopConnections returns the best connections by quality score.
func (m *Manager) TopConnections(ctx context.Context, limit int, minQuality float64) ([]*types.Connection, error) {
	if limit <= 0 {
		limit = 10
	}
	return m.store.ListTopConnections(ctx, limit, minQuality)
}

// applyQuality recomputes the 0-10 quality score and engagement level from
// the connection's counters.
func applyQuality(conn *types.Connection) {
	raw := float64(conn.MessagesSent)*weightMessagesSent +
		float64(conn.MessagesReceived)*weightMessagesReceived +
		float64(conn.PostsEngaged)*weightPostsEngaged +
		float64(conn.MutualConnections)*weightMutualConnections

	// Normalize to 0-10, capping heavy engagement at 10.
	quality := math.Min(10, raw/10*10)
	conn.QualityScore = math.Round(quality*100) / 100

	switch {
	case conn.QualityScore >= 7.0:
		conn.EngagementLevel = types.EngagementHigh
	case conn.QualityScore >= 4.0:
		conn.EngagementLevel = types.EngagementMedium
	case conn.QualityScore > 0:
		conn.EngagementLevel = types.EngagementLow
	default:
		conn.EngagementLevel = types.EngagementNone
	}
}
