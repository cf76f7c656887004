package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outboundlab/cadence/internal/config"
	"github.com/outboundlab/cadence/internal/ledger"
	"github.com/outboundlab/cadence/internal/scoring"
	"github.com/outboundlab/cadence/internal/storage/sqlite"
	"github.com/outboundlab/cadence/pkg/types"
)

func newProspectsMux(t *testing.T) *http.ServeMux {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := scoring.NewEngine(config.TargetingConfig{
		TargetCompanies:  []string{"TechCorp"},
		TargetTitles:     []string{"CTO"},
		TargetIndustries: []string{"Software"},
	}, ledger.New(store), store)

	handler := NewProspectsHandler(engine, 40)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/prospects/score", handler.ScoreOne)
	mux.HandleFunc("POST /api/prospects/batch", handler.ScoreBatch)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestScoreOne(t *testing.T) {
	mux := newProspectsMux(t)

	rec := postJSON(t, mux, "/api/prospects/score",
		`{"name":"Sam Rivera","title":"CTO","company":"TechCorp","industry":"Software",
		  "has_profile_photo":true,"mutual_connections":6}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		TotalScore     float64        `json:"total_score"`
		Priority       types.Priority `json:"priority"`
		MeetsThreshold bool           `json:"meets_threshold"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Greater(t, result.TotalScore, 40.0)
	assert.True(t, result.MeetsThreshold)
}

func TestScoreOne_BelowThreshold(t *testing.T) {
	mux := newProspectsMux(t)

	rec := postJSON(t, mux, "/api/prospects/score", `{"name":"Nobody"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		TotalScore     float64 `json:"total_score"`
		MeetsThreshold bool    `json:"meets_threshold"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Less(t, result.TotalScore, 40.0)
	assert.False(t, result.MeetsThreshold)
}

func TestScoreOne_BadBody(t *testing.T) {
	mux := newProspectsMux(t)
	rec := postJSON(t, mux, "/api/prospects/score", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreBatch(t *testing.T) {
	mux := newProspectsMux(t)

	rec := postJSON(t, mux, "/api/prospects/batch",
		`{"prospects":[
			{"name":"Weak"},
			{"name":"Strong","title":"CTO","company":"TechCorp","industry":"Software","has_profile_photo":true,"mutual_connections":6}
		]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []struct {
			Prospect       types.Prospect `json:"prospect"`
			TotalScore     float64        `json:"total_score"`
			MeetsThreshold bool           `json:"meets_threshold"`
		} `json:"results"`
		Stats types.ScoreStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 2)
	assert.Equal(t, "Strong", body.Results[0].Prospect.Name, "results sorted best first")
	assert.Equal(t, 2, body.Stats.Total)
	assert.Equal(t, body.Results[0].TotalScore, body.Stats.HighestScore)
}

func TestScoreBatch_EmptyProspects(t *testing.T) {
	mux := newProspectsMux(t)
	rec := postJSON(t, mux, "/api/prospects/batch", `{"prospects":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
