package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/outboundlab/cadence/internal/network"
	"github.com/outboundlab/cadence/internal/storage"
)

// ConnectionsHandler exposes the network connection manager over HTTP.
type ConnectionsHandler struct {
	manager *network.Manager
}

// NewConnectionsHandler creates a ConnectionsHandler.
func NewConnectionsHandler(manager *network.Manager) *ConnectionsHandler {
	return &ConnectionsHandler{manager: manager}
}

// addConnectionRequest is the request body for POST /api/connections.
type addConnectionRequest struct {
	Name              string `json:"name"`
	ProfileURL        string `json:"profile_url"`
	Title             string `json:"title"`
	Company           string `json:"company"`
	Location          string `json:"location"`
	MutualConnections int    `json:"mutual_connections"`
	Source            string `json:"source"`
}

// Add handles POST /api/connections.
func (h *ConnectionsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" || req.ProfileURL == "" {
		respondError(w, http.StatusBadRequest, "name and profile_url are required", nil)
		return
	}

	conn, err := h.manager.AddConnection(r.Context(), network.AddParams{
		Name:              req.Name,
		ProfileURL:        req.ProfileURL,
		Title:             req.Title,
		Company:           req.Company,
		Location:          req.Location,
		MutualConnections: req.MutualConnections,
		Source:            req.Source,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to add connection", err)
		return
	}
	respondJSON(w, http.StatusCreated, conn)
}

// engagementUpdateRequest is the request body for POST
// /api/connections/engagement.
type engagementUpdateRequest struct {
	ProfileURL       string `json:"profile_url"`
	MessagesSent     int    `json:"messages_sent"`
	MessagesReceived int    `json:"messages_received"`
	PostsEngaged     int    `json:"posts_engaged"`
}

// UpdateEngagement handles POST /api/connections/engagement.
func (h *ConnectionsHandler) UpdateEngagement(w http.ResponseWriter, r *http.Request) {
	var req engagementUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ProfileURL == "" {
		respondError(w, http.StatusBadRequest, "profile_url is required", nil)
		return
	}

	conn, err := h.manager.UpdateEngagement(r.Context(), req.ProfileURL,
		req.MessagesSent, req.MessagesReceived, req.PostsEngaged)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "connection not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update engagement", err)
		return
	}
	respondJSON(w, http.StatusOK, conn)
}

// Top handles GET /api/connections/top?limit=10&min_quality=0.
func (h *ConnectionsHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 200", nil)
			return
		}
		limit = parsed
	}

	minQuality := 0.0
	if raw := r.URL.Query().Get("min_quality"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 10 {
			respondError(w, http.StatusBadRequest, "min_quality must be between 0 and 10", nil)
			return
		}
		minQuality = parsed
	}

	conns, err := h.manager.TopConnections(r.Context(), limit, minQuality)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list connections", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connections": conns,
		"count":       len(conns),
	})
}
