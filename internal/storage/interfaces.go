// Package storage provides composable storage interfaces for the Cadence
// engine.
//
// The storage layer is split into small, focused interfaces that can be
// implemented independently and composed as needed. Two backends are
// provided: sqlite (default, CGO-free) and postgres (for shared
// deployments).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/outboundlab/cadence/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ActivityFilter narrows windowed activity queries.
type ActivityFilter struct {
	// ActionType restricts the count to one action type when non-empty.
	ActionType types.ActionType

	// SuccessOnly restricts the count to successful events.
	SuccessOnly bool

	// TargetID restricts the count to events against one target when
	// non-empty. Used by engagement-history scoring.
	TargetID string
}

// ActivityStore persists activity events. Appends are append-only: events
// are never updated or deleted.
type ActivityStore interface {
	// Append stores a new activity event.
	Append(ctx context.Context, event *types.ActivityEvent) error

	// CountSince returns the number of events with performed_at >= cutoff
	// matching the filter.
	CountSince(ctx context.Context, cutoff time.Time, filter ActivityFilter) (int, error)

	// AverageRiskSince returns the mean risk score of events with
	// performed_at >= cutoff, or 0.0 when there are none.
	AverageRiskSince(ctx context.Context, cutoff time.Time) (float64, error)

	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]*types.ActivityEvent, error)
}

// AlertStore persists safety alerts and enforces the at-most-one-unresolved-
// per-type invariant at the storage boundary.
type AlertStore interface {
	// CreateIfAbsent stores the alert unless an unresolved alert of the
	// same type already exists. It returns the stored or existing alert
	// and whether a new one was created.
	CreateIfAbsent(ctx context.Context, alert *types.SafetyAlert) (*types.SafetyAlert, bool, error)

	// GetAlert retrieves an alert by ID. Returns ErrNotFound if missing.
	GetAlert(ctx context.Context, id string) (*types.SafetyAlert, error)

	// ListUnresolved returns all unresolved alerts, oldest first.
	ListUnresolved(ctx context.Context) ([]*types.SafetyAlert, error)

	// AcknowledgeAlert marks an alert acknowledged at the given time.
	// Returns ErrNotFound if the alert does not exist.
	AcknowledgeAlert(ctx context.Context, id string, at time.Time) error

	// ResolveAlert marks an alert resolved at the given time.
	// Returns ErrNotFound if the alert does not exist.
	ResolveAlert(ctx context.Context, id string, at time.Time) error
}

// ConnectionStore persists network connections keyed by profile URL.
type ConnectionStore interface {
	// UpsertConnection inserts the connection or, when one with the same
	// profile URL exists, updates its mutable fields in place.
	UpsertConnection(ctx context.Context, conn *types.Connection) (*types.Connection, error)

	// GetConnection retrieves a connection by profile URL.
	// Returns ErrNotFound if missing.
	GetConnection(ctx context.Context, profileURL string) (*types.Connection, error)

	// CountHighQualityByNames returns how many of the given names match an
	// active connection with quality_score >= minQuality. Name matching is
	// case-insensitive substring, mirroring how scraped mutual-connection
	// names line up against stored full names.
	CountHighQualityByNames(ctx context.Context, names []string, minQuality float64) (int, error)

	// ListTopConnections returns up to limit active connections with
	// quality_score >= minQuality, best first.
	ListTopConnections(ctx context.Context, limit int, minQuality float64) ([]*types.Connection, error)
}

// Store combines all storage interfaces. Both backends implement it.
type Store interface {
	ActivityStore
	AlertStore
	ConnectionStore

	// Close releases the underlying database handle.
	Close() error
}
