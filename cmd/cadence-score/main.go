// Command cadence-score scores a batch of prospects from a JSON file and
// prints the ranked results. Useful for dry-running targeting changes
// without going through the API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/outboundlab/cadence/internal/config"
	"github.com/outboundlab/cadence/internal/ledger"
	"github.com/outboundlab/cadence/internal/scoring"
	"github.com/outboundlab/cadence/internal/storage/sqlite"
	"github.com/outboundlab/cadence/pkg/types"
)

var (
	prospectsPath = flag.String("prospects", "", "Path to a JSON file containing an array of prospects")
	targetingPath = flag.String("targeting", "", "Path to a targeting profile YAML file (overrides env config)")
	dbPath        = flag.String("db", "", "Path to database file (overrides config)")
	jsonOut       = flag.Bool("json", false, "Emit results as JSON instead of a table")
	allResults    = flag.Bool("all", false, "Print prospects below the minimum lead score too")
)

func main() {
	flag.Parse()

	if *prospectsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: cadence-score -prospects prospects.json [-targeting targeting.yaml] [-json]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *targetingPath != "" {
		targeting, err := config.LoadTargetingFile(*targetingPath)
		if err != nil {
			log.Fatalf("Failed to load targeting profile: %v", err)
		}
		cfg.Targeting = *targeting
	}

	dbPathFinal := cfg.Storage.DataPath + "/cadence.db"
	if *dbPath != "" {
		dbPathFinal = *dbPath
	}

	store, err := sqlite.NewStore(dbPathFinal)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	prospects, err := readProspects(*prospectsPath)
	if err != nil {
		log.Fatalf("Failed to read prospects: %v", err)
	}

	engine := scoring.NewEngine(cfg.Targeting, ledger.New(store), store)
	results, err := engine.BatchScore(context.Background(), prospects)
	if err != nil {
		log.Fatalf("Failed to score prospects: %v", err)
	}

	minScore := cfg.Scoring.MinLeadScore
	if *jsonOut {
		printJSON(results, minScore)
		return
	}
	printTable(results, minScore, *allResults)
}

func readProspects(path string) ([]types.Prospect, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var prospects []types.Prospect
	if err := json.Unmarshal(data, &prospects); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return prospects, nil
}

func printJSON(results []*types.ScoreResult, minScore float64) {
	stats := scoring.Stats(results)
	out := struct {
		MinLeadScore float64              `json:"min_lead_score"`
		Results      []*types.ScoreResult `json:"results"`
		Stats        types.ScoreStats     `json:"stats"`
	}{minScore, results, stats}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Failed to encode results: %v", err)
	}
}

func printTable(results []*types.ScoreResult, minScore float64, showAll bool) {
	stats := scoring.Stats(results)

	fmt.Printf("Scored %d prospects (avg %.1f, minimum lead score %.0f)\n\n",
		stats.Total, stats.AverageScore, minScore)
	fmt.Printf("%-30s %-8s %-10s %s\n", "NAME", "SCORE", "PRIORITY", "RECOMMENDATION")
	for _, r := range results {
		if !showAll && r.TotalScore < minScore {
			continue
		}
		fmt.Printf("%-30s %-8.1f %-10s %s\n",
			truncate(r.Prospect.Name, 30), r.TotalScore, r.Priority, r.Recommendation)
	}

	fmt.Println()
	for _, p := range []types.Priority{
		types.PriorityCritical, types.PriorityHigh, types.PriorityMedium,
		types.PriorityLow, types.PriorityIgnore,
	} {
		if n := stats.ByPriority[p]; n > 0 {
			fmt.Printf("  %s: %d\n", p, n)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
