// Package notify bridges alert state between the automation worker and
// cadence-web through a spool directory on the shared data path. The worker
// drops one file per alert transition; the web process consumes the files
// and pushes updates to connected operators.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// Alert transition kinds carried by spool events.
const (
	KindAlertRaised       = "alert_raised"
	KindAlertAcknowledged = "alert_acknowledged"
	KindAlertResolved     = "alert_resolved"
)

// AlertEvent is the payload spooled for one alert transition. AlertType and
// Severity ride along so consumers can filter without a store lookup.
type AlertEvent struct {
	Kind      string    `json:"kind"`
	AlertID   string    `json:"alert_id"`
	AlertType string    `json:"alert_type,omitempty"`
	Severity  string    `json:"severity,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Spool writes alert events into {dataPath}/alerts.spool. Writes go to a
// temp file first and are renamed into place, so a consumer never observes
// a partially written event.
type Spool struct {
	dir string
	seq atomic.Uint64
}

// NewSpool creates a spool rooted at the given data path.
func NewSpool(dataPath string) *Spool {
	return &Spool{dir: filepath.Join(dataPath, "alerts.spool")}
}

// Emit writes one alert event. Safe for concurrent use; the sequence
// counter keeps same-nanosecond events from colliding.
func (s *Spool) Emit(event AlertEvent) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("notify: mkdir %s: %w", s.dir, err)
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: marshal alert event: %w", err)
	}

	name := fmt.Sprintf("%d-%d-%s.alert",
		event.EmittedAt.UnixNano(), s.seq.Add(1), safeName(event.AlertID))
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("notify: write alert event: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("notify: publish alert event: %w", err)
	}
	return nil
}

// safeName strips characters that are unsafe in file names.
func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}
