// Package server provides HTTP server initialization and lifecycle
// management for the Cadence operator API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/outboundlab/cadence/internal/config"
	"github.com/outboundlab/cadence/internal/ledger"
	"github.com/outboundlab/cadence/internal/metrics"
	"github.com/outboundlab/cadence/internal/network"
	"github.com/outboundlab/cadence/internal/safety"
	"github.com/outboundlab/cadence/internal/scoring"
	"github.com/outboundlab/cadence/web/handlers"
)

// Deps bundles the engine components the server exposes.
type Deps struct {
	Ledger      *ledger.Ledger
	Monitor     *safety.Monitor
	Engine      *scoring.Engine
	Connections *network.Manager
	Metrics     *metrics.Collector
}

// Start initializes and starts the HTTP server. It returns the actual
// address being listened on (useful for testing with port 0) and the
// WebSocketHub for wiring alert broadcasts. The server shuts down when
// ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, deps Deps) (string, *handlers.WebSocketHub) {
	mux := http.NewServeMux()

	wsHub := handlers.NewWebSocketHub()
	go wsHub.Run()

	safetyHandler := handlers.NewSafetyHandler(deps.Monitor, deps.Ledger, wsHub)
	prospectsHandler := handlers.NewProspectsHandler(deps.Engine, cfg.Scoring.MinLeadScore)
	connectionsHandler := handlers.NewConnectionsHandler(deps.Connections)

	// API routes (require auth in production mode).
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/safety/status", safetyHandler.GetStatus)
	apiMux.HandleFunc("GET /api/safety/check", safetyHandler.CheckAction)
	apiMux.HandleFunc("GET /api/safety/activity", safetyHandler.ListActivity)
	apiMux.HandleFunc("POST /api/safety/activity", safetyHandler.LogActivity)
	apiMux.HandleFunc("POST /api/safety/alerts/{id}/acknowledge", safetyHandler.AcknowledgeAlert)
	apiMux.HandleFunc("POST /api/safety/alerts/{id}/resolve", safetyHandler.ResolveAlert)
	apiMux.HandleFunc("POST /api/prospects/score", prospectsHandler.ScoreOne)
	apiMux.HandleFunc("POST /api/prospects/batch", prospectsHandler.ScoreBatch)
	apiMux.HandleFunc("POST /api/connections", connectionsHandler.Add)
	apiMux.HandleFunc("POST /api/connections/engagement", connectionsHandler.UpdateEngagement)
	apiMux.HandleFunc("GET /api/connections/top", connectionsHandler.Top)

	// Health endpoint, no auth required, used by monitoring.
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
	})

	var apiHandler http.Handler = apiMux
	if deps.Metrics != nil {
		apiHandler = deps.Metrics.InstrumentHandler("/api/", apiHandler)
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}
	mux.Handle("/api/", handlers.Chain(apiHandler, handlers.BearerAuth(cfg.Security)))

	// WebSocket live feed (origin validation handles security).
	mux.Handle("/ws", wsHub)

	// 10 req/sec sustained with a burst of 20, applied to the whole
	// server, under the standard security headers.
	handler := handlers.Chain(mux,
		handlers.SecurityHeaders(),
		handlers.Throttle(10.0, 20),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub
}
