// Package config provides configuration management for Cadence.
// It loads settings from environment variables with the CADENCE_ prefix and
// provides sensible defaults for all configuration options.
//
// Targeting lists (companies, titles, industries, interest keywords) are
// long and user-specific, so they load from a YAML profile file referenced
// by CADENCE_TARGETING_FILE in addition to the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Cadence engine.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Safety    SafetyConfig
	Scoring   ScoringConfig
	Security  SecurityConfig
	Targeting TargetingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 6464)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory (default: ./data)
	PostgresDSN   string // Connection string when StorageEngine is postgres
}

// SafetyConfig contains rate limits and guard settings for the safety
// monitor. All limits are per trailing window, not calendar-aligned.
type SafetyConfig struct {
	MaxActionsPerHour           int // Default: 10
	MaxActionsPerDay            int // Default: 50
	MaxPostsPerDay              int // Default: 3
	MaxCommentsPerDay           int // Default: 15
	MaxConnectionRequestsPerDay int // Default: 10

	// PacerActionsPerMinute is the sustained real-world action rate
	// enforced by the pacer (default: 2).
	PacerActionsPerMinute float64

	// BreakerMaxFailures is the number of consecutive failed actions that
	// trips the action breaker (default: 3). BreakerCooldown is how long
	// it stays open, in minutes (default: 30).
	BreakerMaxFailures     int
	BreakerCooldownMinutes int
}

// ScoringConfig contains lead-scoring thresholds.
type ScoringConfig struct {
	// MinLeadScore is the minimum total score required before the
	// automation layer sends a connection request (default: 40).
	MinLeadScore float64
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// TargetingConfig contains the prospect-targeting lists consumed by the
// lead scorer. Loaded from the YAML profile file when one is configured;
// environment variables hold comma-separated fallbacks.
type TargetingConfig struct {
	TargetCompanies  []string `yaml:"target_companies"`
	TargetTitles     []string `yaml:"target_titles"`
	TargetIndustries []string `yaml:"target_industries"`
	Interests        []string `yaml:"interests"`
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the CADENCE_ prefix. When
// CADENCE_TARGETING_FILE is set, the targeting lists are read from that
// YAML file and override the environment values.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("CADENCE_PORT", 6464),
			Host: getEnv("CADENCE_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("CADENCE_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("CADENCE_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("CADENCE_POSTGRES_DSN", ""),
		},
		Safety: SafetyConfig{
			MaxActionsPerHour:           getEnvInt("CADENCE_MAX_ACTIONS_PER_HOUR", 10),
			MaxActionsPerDay:            getEnvInt("CADENCE_MAX_ACTIONS_PER_DAY", 50),
			MaxPostsPerDay:              getEnvInt("CADENCE_MAX_POSTS_PER_DAY", 3),
			MaxCommentsPerDay:           getEnvInt("CADENCE_MAX_COMMENTS_PER_DAY", 15),
			MaxConnectionRequestsPerDay: getEnvInt("CADENCE_MAX_CONNECTION_REQUESTS_PER_DAY", 10),
			PacerActionsPerMinute:       getEnvFloat("CADENCE_PACER_ACTIONS_PER_MINUTE", 2),
			BreakerMaxFailures:          getEnvInt("CADENCE_BREAKER_MAX_FAILURES", 3),
			BreakerCooldownMinutes:      getEnvInt("CADENCE_BREAKER_COOLDOWN_MINUTES", 30),
		},
		Scoring: ScoringConfig{
			MinLeadScore: getEnvFloat("CADENCE_MIN_LEAD_SCORE", 40),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("CADENCE_SECURITY_MODE", "development"),
			APIToken:     getEnv("CADENCE_API_TOKEN", ""),
		},
		Targeting: TargetingConfig{
			TargetCompanies:  getEnvList("CADENCE_TARGET_COMPANIES"),
			TargetTitles:     getEnvList("CADENCE_TARGET_TITLES"),
			TargetIndustries: getEnvList("CADENCE_TARGET_INDUSTRIES"),
			Interests:        getEnvList("CADENCE_INTERESTS"),
		},
	}

	if path := getEnv("CADENCE_TARGETING_FILE", ""); path != "" {
		targeting, err := LoadTargetingFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Targeting = *targeting
	}

	return cfg, nil
}

// LoadTargetingFile reads a targeting profile from a YAML file.
func LoadTargetingFile(path string) (*TargetingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read targeting file %s: %w", path, err)
	}

	var targeting TargetingConfig
	if err := yaml.Unmarshal(data, &targeting); err != nil {
		return nil, fmt.Errorf("config: failed to parse targeting file %s: %w", path, err)
	}
	return &targeting, nil
}

// getEnv retrieves an environment variable with a fallback default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable with a fallback.
// Invalid values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvFloat retrieves a float environment variable with a fallback.
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvList retrieves a comma-separated environment variable as a list.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
