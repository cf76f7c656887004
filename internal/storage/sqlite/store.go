// Package sqlite provides a SQLite implementation of the storage interfaces
// using the CGO-free modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/outboundlab/cadence/internal/storage"
	"github.com/outboundlab/cadence/pkg/types"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at the given DSN (a file path or
// ":memory:"), configures WAL mode, and applies the embedded schema.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open
	// connection serialises writes and avoids SQLITE_BUSY errors under
	// concurrent load. WAL mode lets readers proceed without blocking
	// the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}

	// Wait instead of returning SQLITE_BUSY when the connection is held
	// by another goroutine.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB exposes the underlying handle for diagnostics endpoints.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Append stores a new activity event.
func (s *Store) Append(ctx context.Context, event *types.ActivityEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (
			id, action_type, target_type, target_id, risk_score,
			performed_at, success, error_message, duration_seconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, string(event.ActionType), event.TargetType, event.TargetID,
		event.RiskScore, event.PerformedAt.UTC(), boolToInt(event.Success),
		event.ErrorMessage, event.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to append activity: %w", err)
	}
	return nil
}

// CountSince returns the number of events with performed_at >= cutoff
// matching the filter.
func (s *Store) CountSince(ctx context.Context, cutoff time.Time, filter storage.ActivityFilter) (int, error) {
	query := "SELECT COUNT(*) FROM activities WHERE performed_at >= ?"
	args := []interface{}{cutoff.UTC()}

	if filter.ActionType != "" {
		query += " AND action_type = ?"
		args = append(args, string(filter.ActionType))
	}
	if filter.SuccessOnly {
		query += " AND success = 1"
	}
	if filter.TargetID != "" {
		query += " AND target_id = ?"
		args = append(args, filter.TargetID)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count activities: %w", err)
	}
	return count, nil
}

// AverageRiskSince returns the mean risk score of events with
// performed_at >= cutoff, or 0.0 when there are none.
func (s *Store) AverageRiskSince(ctx context.Context, cutoff time.Time) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		"SELECT AVG(risk_score) FROM activities WHERE performed_at >= ?",
		cutoff.UTC(),
	).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to average risk: %w", err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

// ListRecent returns up to limit events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*types.ActivityEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_type, target_type, target_id, risk_score,
		       performed_at, success, error_message, duration_seconds
		FROM activities
		ORDER BY performed_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list activities: %w", err)
	}
	defer rows.Close()

	var events []*types.ActivityEvent
	for rows.Next() {
		var e types.ActivityEvent
		var actionType string
		var success int
		if err := rows.Scan(&e.ID, &actionType, &e.TargetType, &e.TargetID,
			&e.RiskScore, &e.PerformedAt, &success, &e.ErrorMessage,
			&e.DurationSeconds); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan activity: %w", err)
		}
		e.ActionType = types.ActionType(actionType)
		e.Success = success != 0
		events = append(events, &e)
	}
	return events, rows.Err()
}

// CreateIfAbsent stores the alert unless an unresolved alert of the same
// type already exists. The no-op path realises the at-most-one-unresolved-
// per-type invariant.
func (s *Store) CreateIfAbsent(ctx context.Context, alert *types.SafetyAlert) (*types.SafetyAlert, bool, error) {
	existing, err := s.unresolvedByType(ctx, alert.AlertType)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO safety_alerts (
			id, alert_type, severity, message, risk_score,
			recommended_action, acknowledged, resolved, created_at
		) VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?)`,
		alert.ID, string(alert.AlertType), string(alert.Severity),
		alert.Message, alert.RiskScore, alert.RecommendedAction,
		alert.CreatedAt.UTC(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: failed to create alert: %w", err)
	}
	return alert, true, nil
}

func (s *Store) unresolvedByType(ctx context.Context, alertType types.AlertType) (*types.SafetyAlert, error) {
	row := s.db.QueryRowContext(ctx, alertSelect+`
		WHERE alert_type = ? AND resolved = 0
		ORDER BY created_at ASC LIMIT 1`, string(alertType))
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query unresolved alert: %w", err)
	}
	return alert, nil
}

const alertSelect = `
	SELECT id, alert_type, severity, message, risk_score,
	       recommended_action, acknowledged, acknowledged_at,
	       resolved, resolved_at, created_at
	FROM safety_alerts`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*types.SafetyAlert, error) {
	var a types.SafetyAlert
	var alertType, severity string
	var acknowledged, resolved int
	var ackAt, resAt sql.NullTime
	err := row.Scan(&a.ID, &alertType, &severity, &a.Message, &a.RiskScore,
		&a.RecommendedAction, &acknowledged, &ackAt, &resolved, &resAt,
		&a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.AlertType = types.AlertType(alertType)
	a.Severity = types.AlertSeverity(severity)
	a.Acknowledged = acknowledged != 0
	a.Resolved = resolved != 0
	if ackAt.Valid {
		t := ackAt.Time
		a.AcknowledgedAt = &t
	}
	if resAt.Valid {
		t := resAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}

// GetAlert retrieves an alert by ID.
func (s *Store) GetAlert(ctx context.Context, id string) (*types.SafetyAlert, error) {
	row := s.db.QueryRowContext(ctx, alertSelect+" WHERE id = ?", id)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get alert: %w", err)
	}
	return alert, nil
}

// ListUnresolved returns all unresolved alerts, oldest first.
func (s *Store) ListUnresolved(ctx context.Context) ([]*types.SafetyAlert, error) {
	rows, err := s.db.QueryContext(ctx, alertSelect+`
		WHERE resolved = 0 ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list unresolved alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*types.SafetyAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert marks an alert acknowledged at the given time.
func (s *Store) AcknowledgeAlert(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE safety_alerts SET acknowledged = 1, acknowledged_at = ? WHERE id = ?",
		at.UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to acknowledge alert: %w", err)
	}
	return requireRow(res)
}

// ResolveAlert marks an alert resolved at the given time.
func (s *Store) ResolveAlert(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE safety_alerts SET resolved = 1, resolved_at = ? WHERE id = ?",
		at.UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to resolve alert: %w", err)
	}
	return requireRow(res)
}

// UpsertConnection inserts the connection or updates the existing row with
// the same profile URL.
func (s *Store) UpsertConnection(ctx context.Context, conn *types.Connection) (*types.Connection, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connections (
			id, name, profile_url, title, company, location,
			messages_sent, messages_received, posts_engaged, mutual_connections,
			quality_score, engagement_level, connection_source, is_active,
			connected_at, last_interaction, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_url) DO UPDATE SET
			name = excluded.name,
			title = excluded.title,
			company = excluded.company,
			location = excluded.location,
			messages_sent = excluded.messages_sent,
			messages_received = excluded.messages_received,
			posts_engaged = excluded.posts_engaged,
			mutual_connections = excluded.mutual_connections,
			quality_score = excluded.quality_score,
			engagement_level = excluded.engagement_level,
			is_active = excluded.is_active,
			last_interaction = excluded.last_interaction,
			updated_at = excluded.updated_at`,
		conn.ID, conn.Name, conn.ProfileURL, conn.Title, conn.Company,
		conn.Location, conn.MessagesSent, conn.MessagesReceived,
		conn.PostsEngaged, conn.MutualConnections, conn.QualityScore,
		string(conn.EngagementLevel), conn.ConnectionSource,
		boolToInt(conn.IsActive), conn.ConnectedAt.UTC(),
		nullableTime(conn.LastInteraction), conn.CreatedAt.UTC(),
		conn.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to upsert connection: %w", err)
	}
	return s.GetConnection(ctx, conn.ProfileURL)
}

const connectionSelect = `
	SELECT id, name, profile_url, title, company, location,
	       messages_sent, messages_received, posts_engaged, mutual_connections,
	       quality_score, engagement_level, connection_source, is_active,
	       connected_at, last_interaction, created_at, updated_at
	FROM connections`

func scanConnection(row rowScanner) (*types.Connection, error) {
	var c types.Connection
	var level string
	var isActive int
	var lastInteraction sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.ProfileURL, &c.Title, &c.Company,
		&c.Location, &c.MessagesSent, &c.MessagesReceived, &c.PostsEngaged,
		&c.MutualConnections, &c.QualityScore, &level, &c.ConnectionSource,
		&isActive, &c.ConnectedAt, &lastInteraction, &c.CreatedAt,
		&c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.EngagementLevel = types.EngagementLevel(level)
	c.IsActive = isActive != 0
	if lastInteraction.Valid {
		t := lastInteraction.Time
		c.LastInteraction = &t
	}
	return &c, nil
}

// GetConnection retrieves a connection by profile URL.
func (s *Store) GetConnection(ctx context.Context, profileURL string) (*types.Connection, error) {
	row := s.db.QueryRowContext(ctx, connectionSelect+" WHERE profile_url = ?", profileURL)
	conn, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get connection: %w", err)
	}
	return conn, nil
}

// CountHighQualityByNames returns how many of the given names match an
// active connection with quality_score >= minQuality.
func (s *Store) CountHighQualityByNames(ctx context.Context, names []string, minQuality float64) (int, error) {
	matched := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var count int
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM connections
			WHERE is_active = 1 AND quality_score >= ?
			  AND name LIKE ? COLLATE NOCASE`,
			minQuality, "%"+name+"%",
		).Scan(&count)
		if err != nil {
			return 0, fmt.Errorf("sqlite: failed to match connection name: %w", err)
		}
		if count > 0 {
			matched++
		}
	}
	return matched, nil
}

// ListTopConnections returns up to limit active connections with
// quality_score >= minQuality, best first.
func (s *Store) ListTopConnections(ctx context.Context, limit int, minQuality float64) ([]*types.Connection, error) {
	rows, err := s.db.QueryContext(ctx, connectionSelect+`
		WHERE is_active = 1 AND quality_score >= ?
		ORDER BY quality_score DESC
		LIMIT ?`, minQuality, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list top connections: %w", err)
	}
	defer rows.Close()

	var conns []*types.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan connection: %w", err)
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
