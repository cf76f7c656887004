package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/outboundlab/cadence/internal/scoring"
	"github.com/outboundlab/cadence/pkg/types"
)

// ProspectsHandler exposes lead scoring over HTTP.
type ProspectsHandler struct {
	engine       *scoring.Engine
	minLeadScore float64
}

// NewProspectsHandler creates a ProspectsHandler. minLeadScore is the
// configured threshold below which a prospect is marked as not worth a
// connection request.
func NewProspectsHandler(engine *scoring.Engine, minLeadScore float64) *ProspectsHandler {
	return &ProspectsHandler{engine: engine, minLeadScore: minLeadScore}
}

// scoredProspect augments a score result with the admission gate outcome.
type scoredProspect struct {
	*types.ScoreResult
	MeetsThreshold bool `json:"meets_threshold"`
}

// ScoreOne handles POST /api/prospects/score with a single prospect body.
func (h *ProspectsHandler) ScoreOne(w http.ResponseWriter, r *http.Request) {
	var prospect types.Prospect
	if err := json.NewDecoder(r.Body).Decode(&prospect); err != nil {
		respondError(w, http.StatusBadRequest, "invalid prospect body", err)
		return
	}

	result, err := h.engine.ScoreProspect(r.Context(), prospect)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to score prospect", err)
		return
	}
	respondJSON(w, http.StatusOK, scoredProspect{
		ScoreResult:    result,
		MeetsThreshold: result.TotalScore >= h.minLeadScore,
	})
}

// batchScoreRequest is the request body for POST /api/prospects/batch.
type batchScoreRequest struct {
	Prospects []types.Prospect `json:"prospects"`
}

// ScoreBatch handles POST /api/prospects/batch. Results come back sorted
// by total score descending with aggregate stats.
func (h *ProspectsHandler) ScoreBatch(w http.ResponseWriter, r *http.Request) {
	var req batchScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Prospects) == 0 {
		respondError(w, http.StatusBadRequest, "prospects is required", nil)
		return
	}

	results, err := h.engine.BatchScore(r.Context(), req.Prospects)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to score prospects", err)
		return
	}

	scored := make([]scoredProspect, 0, len(results))
	for _, result := range results {
		scored = append(scored, scoredProspect{
			ScoreResult:    result,
			MeetsThreshold: result.TotalScore >= h.minLeadScore,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": scored,
		"stats":   scoring.Stats(results),
	})
}
