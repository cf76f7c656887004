package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/outboundlab/cadence/internal/ledger"
	"github.com/outboundlab/cadence/internal/safety"
	"github.com/outboundlab/cadence/internal/storage"
	"github.com/outboundlab/cadence/pkg/types"
)

// SafetyHandler exposes the safety monitor over HTTP: status snapshots,
// admission checks, activity logging, and the alert lifecycle.
type SafetyHandler struct {
	monitor *safety.Monitor
	ledger  *ledger.Ledger
	hub     *WebSocketHub
}

// NewSafetyHandler creates a SafetyHandler. The hub may be nil when the
// live feed is disabled.
func NewSafetyHandler(monitor *safety.Monitor, led *ledger.Ledger, hub *WebSocketHub) *SafetyHandler {
	return &SafetyHandler{monitor: monitor, ledger: led, hub: hub}
}

// GetStatus handles GET /api/safety/status.
func (h *SafetyHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.monitor.GetSafetyStatus(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get safety status", err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// CheckAction handles GET /api/safety/check?action_type=post.
func (h *SafetyHandler) CheckAction(w http.ResponseWriter, r *http.Request) {
	actionType := types.ActionType(r.URL.Query().Get("action_type"))
	if actionType == "" {
		respondError(w, http.StatusBadRequest, "action_type is required", nil)
		return
	}

	decision, err := h.monitor.CheckActionAllowed(r.Context(), actionType)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check action", err)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

// logActivityRequest is the request body for POST /api/safety/activity.
type logActivityRequest struct {
	ActionType      string  `json:"action_type"`
	TargetType      string  `json:"target_type"`
	TargetID        string  `json:"target_id"`
	DurationSeconds float64 `json:"duration_seconds"`
	Success         *bool   `json:"success"`
	Error           string  `json:"error"`
}

// LogActivity handles POST /api/safety/activity.
func (h *SafetyHandler) LogActivity(w http.ResponseWriter, r *http.Request) {
	var req logActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ActionType == "" {
		respondError(w, http.StatusBadRequest, "action_type is required", nil)
		return
	}

	// Success defaults to true when omitted, matching the automation
	// layer's common case of logging after a successful action.
	success := true
	if req.Success != nil {
		success = *req.Success
	}

	event, err := h.monitor.LogActivity(r.Context(), ledger.RecordParams{
		ActionType:      types.ActionType(req.ActionType),
		TargetType:      req.TargetType,
		TargetID:        req.TargetID,
		DurationSeconds: req.DurationSeconds,
		Success:         success,
		ErrorMessage:    req.Error,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to log activity", err)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(FeedMessage{Type: "activity", Payload: event})
	}
	respondJSON(w, http.StatusCreated, event)
}

// ListActivity handles GET /api/safety/activity?limit=50.
func (h *SafetyHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500", nil)
			return
		}
		limit = parsed
	}

	events, err := h.ledger.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list activity", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// AcknowledgeAlert handles POST /api/safety/alerts/{id}/acknowledge.
func (h *SafetyHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	h.transitionAlert(w, r, h.monitor.AcknowledgeAlert, "acknowledged")
}

// ResolveAlert handles POST /api/safety/alerts/{id}/resolve.
func (h *SafetyHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	h.transitionAlert(w, r, h.monitor.ResolveAlert, "resolved")
}

func (h *SafetyHandler) transitionAlert(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) error, verb string) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "alert id is required", nil)
		return
	}

	if err := fn(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "alert not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update alert", err)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(FeedMessage{Type: "alert_" + verb, Payload: map[string]string{"id": id}})
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id, "state": verb})
}
