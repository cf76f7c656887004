package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outboundlab/cadence/internal/config"
	"github.com/outboundlab/cadence/internal/ledger"
	"github.com/outboundlab/cadence/internal/metrics"
	"github.com/outboundlab/cadence/internal/network"
	"github.com/outboundlab/cadence/internal/safety"
	"github.com/outboundlab/cadence/internal/scoring"
	"github.com/outboundlab/cadence/internal/server"
	"github.com/outboundlab/cadence/internal/storage/sqlite"
	"github.com/outboundlab/cadence/pkg/types"
)

// startTestServer starts a server on a random port over an in-memory store
// and returns its base URL. Shutdown is registered with t.Cleanup.
func startTestServer(t *testing.T, cfg *config.Config) string {
	t.Helper()

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	cfg.Server.Port = 0

	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)

	led := ledger.New(store)
	deps := server.Deps{
		Ledger:      led,
		Monitor:     safety.NewMonitor(cfg.Safety, led, store),
		Engine:      scoring.NewEngine(cfg.Targeting, led, store),
		Connections: network.NewManager(store),
	}

	collector, err := metrics.NewCollector()
	require.NoError(t, err)
	deps.Metrics = collector
	deps.Monitor.SetMetrics(collector)

	ctx, cancel := context.WithCancel(context.Background())
	addr, _ := server.Start(ctx, cfg, deps)

	time.Sleep(100 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		time.Sleep(100 * time.Millisecond)
		_ = store.Close()
	})

	return "http://" + addr
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1"},
		Safety: config.SafetyConfig{
			MaxActionsPerHour:           10,
			MaxActionsPerDay:            50,
			MaxPostsPerDay:              3,
			MaxCommentsPerDay:           15,
			MaxConnectionRequestsPerDay: 10,
		},
		Scoring:  config.ScoringConfig{MinLeadScore: 40},
		Security: config.SecurityConfig{SecurityMode: "development"},
	}
}

func TestServer_StartsOnRandomPort(t *testing.T) {
	base := startTestServer(t, testConfig())
	assert.NotEmpty(t, base)
	assert.NotContains(t, base, ":0", "a real port should be assigned")
}

func TestServer_HealthEndpoint(t *testing.T) {
	base := startTestServer(t, testConfig())

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "healthy")
}

func TestServer_SecurityHeaders(t *testing.T) {
	base := startTestServer(t, testConfig())

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestServer_ActivityRoundTrip(t *testing.T) {
	base := startTestServer(t, testConfig())

	// Log enough likes to cross the warning line, then read the status.
	for i := 0; i < 8; i++ {
		resp, err := http.Post(base+"/api/safety/activity", "application/json",
			strings.NewReader(`{"action_type":"like"}`))
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(base + "/api/safety/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status types.SafetyStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, types.StateWarning, status.Status)
	assert.Equal(t, 8, status.ActivityCounts.LastHour)
	assert.Equal(t, 1, status.ActiveAlerts)
}

func TestServer_ProductionRequiresAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security.SecurityMode = "production"
	cfg.Security.APIToken = "test-token"
	base := startTestServer(t, cfg)

	// No token: denied.
	resp, err := http.Get(base + "/api/safety/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Health stays open for monitoring.
	resp, err = http.Get(base + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Valid token: allowed.
	req, err := http.NewRequest("GET", base+"/api/safety/status", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer test-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	base := startTestServer(t, testConfig())

	// Generate a little traffic so counters exist.
	resp, err := http.Get(base + "/api/safety/status")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cadence_http_requests_total")
}
