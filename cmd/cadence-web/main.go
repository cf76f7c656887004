// Command cadence-web runs the Cadence operator API: safety status,
// admission checks, alert lifecycle, prospect scoring, and a websocket
// live feed of activity and alerts.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outboundlab/cadence/internal/config"
	"github.com/outboundlab/cadence/internal/ledger"
	"github.com/outboundlab/cadence/internal/metrics"
	"github.com/outboundlab/cadence/internal/network"
	"github.com/outboundlab/cadence/internal/notify"
	"github.com/outboundlab/cadence/internal/safety"
	"github.com/outboundlab/cadence/internal/scoring"
	"github.com/outboundlab/cadence/internal/server"
	"github.com/outboundlab/cadence/internal/storage"
	"github.com/outboundlab/cadence/internal/storage/postgres"
	"github.com/outboundlab/cadence/internal/storage/sqlite"
	"github.com/outboundlab/cadence/pkg/types"
	"github.com/outboundlab/cadence/web/handlers"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	led := ledger.New(store)
	monitor := safety.NewMonitor(cfg.Safety, led, store)
	engine := scoring.NewEngine(cfg.Targeting, led, store)
	connections := network.NewManager(store)

	collector, err := metrics.NewCollector()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	monitor.SetMetrics(collector)

	addr, wsHub := server.Start(ctx, cfg, server.Deps{
		Ledger:      led,
		Monitor:     monitor,
		Engine:      engine,
		Connections: connections,
		Metrics:     collector,
	})

	// Alert events flow through the on-disk spool: the monitor (and any
	// external automation worker) emits a file, the consumer drains it
	// into the websocket live feed.
	spool := notify.NewSpool(cfg.Storage.DataPath)
	monitor.OnAlertRaised(func(alert *types.SafetyAlert) {
		event := notify.AlertEvent{
			Kind:      notify.KindAlertRaised,
			AlertID:   alert.ID,
			AlertType: string(alert.AlertType),
			Severity:  string(alert.Severity),
		}
		if err := spool.Emit(event); err != nil {
			log.Printf("Failed to spool alert event: %v", err)
		}
	})

	consumer := notify.NewConsumer(cfg.Storage.DataPath, func(event notify.AlertEvent) {
		wsHub.Broadcast(handlers.FeedMessage{Type: event.Kind, Payload: event})
	})
	if err := consumer.Start(); err != nil {
		log.Printf("Failed to start alert event consumer: %v", err)
	} else {
		defer consumer.Stop()
	}

	log.Printf("Cadence API running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStore opens the configured storage backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		return postgres.NewStore(cfg.Storage.PostgresDSN)
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, err
		}
		return sqlite.NewStore(cfg.Storage.DataPath + "/cadence.db")
	}
}
