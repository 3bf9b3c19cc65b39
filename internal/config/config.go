// Package config provides application configuration management.
// It loads settings from environment variables (optionally via a .env file)
// and applies defaults for the server, the matching engine and backups.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	DataDir         string // Data directory for the SQLite database
	APIToken        string // Bearer token for /v1 routes (empty = no auth)

	// LINE push notifications (empty token = log-only notifier)
	LineChannelToken string
	LinePushRPS      float64

	Match MatchConfig

	// Observability
	BetterStackToken    string
	BetterStackEndpoint string
	SentryDSN           string
	SentryEnvironment   string
	SentrySampleRate    float64
	MetricsUsername     string // Username for /metrics Basic Auth (default: "prometheus")
	MetricsPassword     string // Password for /metrics Basic Auth (empty = no auth)

	R2 R2Config
}

// MatchConfig tunes the matching engine and its dispatcher.
type MatchConfig struct {
	CandidateLimit       int           // Max candidates fetched per source intent (default: 50)
	StoreTimeout         time.Duration // Deadline for each store call
	NotifyTimeout        time.Duration // Deadline for each notification
	Workers              int           // Concurrent matching passes
	QueueSize            int           // Pending trigger capacity before drops
	SweepInterval        time.Duration // Secondary pass period (0 = disabled)
	SweepLimit           int           // Intents re-evaluated per sweep
	PurgeMatchesOnDelete bool          // Remove match records when their intent is deleted
}

// R2Config configures snapshot backups and the leader lock.
type R2Config struct {
	Enabled         bool
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	SnapshotKey     string
	LockKey         string
	LockTTL         time.Duration
	BackupInterval  time.Duration
}

// Endpoint returns the S3 API endpoint of the Cloudflare account.
func (r R2Config) Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.AccountID)
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		DataDir:         getEnv(EnvDataDir, getDefaultDataDir()),
		APIToken:        getEnv(EnvAPIToken, ""),

		LineChannelToken: getEnv(EnvLineChannelAccessToken, ""),
		LinePushRPS:      getFloatEnv(EnvLinePushRPS, 20),

		Match: MatchConfig{
			CandidateLimit:       getIntEnv(EnvMatchCandidateLimit, 50),
			StoreTimeout:         getDurationEnv(EnvMatchStoreTimeout, StoreCall),
			NotifyTimeout:        getDurationEnv(EnvMatchNotifyTimeout, NotifyCall),
			Workers:              getIntEnv(EnvMatchWorkers, 4),
			QueueSize:            getIntEnv(EnvMatchQueueSize, 256),
			SweepInterval:        getDurationEnv(EnvMatchSweepInterval, 15*time.Minute),
			SweepLimit:           getIntEnv(EnvMatchSweepLimit, 500),
			PurgeMatchesOnDelete: getBoolEnv(EnvPurgeMatchesOnDelete, true),
		},

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, "https://in.logs.betterstack.com"),
		SentryDSN:           getEnv(EnvSentryDSN, ""),
		SentryEnvironment:   getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:    getFloatEnv(EnvSentrySampleRate, 1.0),
		MetricsUsername:     getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:     getEnv(EnvMetricsPassword, ""),

		R2: R2Config{
			Enabled:         getBoolEnv(EnvR2Enabled, false),
			AccountID:       getEnv(EnvR2AccountID, ""),
			AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
			BucketName:      getEnv(EnvR2BucketName, ""),
			SnapshotKey:     getEnv(EnvR2SnapshotKey, "snapshots/swap.db.zst"),
			LockKey:         getEnv(EnvR2LockKey, "locks/leader.json"),
			LockTTL:         getDurationEnv(EnvR2LockTTL, time.Hour),
			BackupInterval:  getDurationEnv(EnvBackupInterval, 6*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New(EnvPort+" is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New(EnvDataDir+" is required"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	if c.LinePushRPS <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvLinePushRPS, c.LinePushRPS))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}
	if err := c.Match.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("match config: %w", err))
	}
	if c.R2.Enabled {
		if err := c.R2.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("r2 config: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Validate checks the matching settings.
func (m MatchConfig) Validate() error {
	var errs []error
	if m.CandidateLimit <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMatchCandidateLimit, m.CandidateLimit))
	}
	if m.StoreTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvMatchStoreTimeout, m.StoreTimeout))
	}
	if m.NotifyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvMatchNotifyTimeout, m.NotifyTimeout))
	}
	if m.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMatchWorkers, m.Workers))
	}
	if m.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMatchQueueSize, m.QueueSize))
	}
	if m.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvMatchSweepInterval, m.SweepInterval))
	}
	if m.SweepLimit <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMatchSweepLimit, m.SweepLimit))
	}
	return errors.Join(errs...)
}

// Validate checks the R2 settings; only called when R2 is enabled.
func (r R2Config) Validate() error {
	var errs []error
	for key, value := range map[string]string{
		EnvR2AccountID:       r.AccountID,
		EnvR2AccessKeyID:     r.AccessKeyID,
		EnvR2SecretAccessKey: r.SecretAccessKey,
		EnvR2BucketName:      r.BucketName,
		EnvR2SnapshotKey:     r.SnapshotKey,
		EnvR2LockKey:         r.LockKey,
	} {
		if value == "" {
			errs = append(errs, errors.New(key+" is required when R2 is enabled"))
		}
	}
	if r.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvR2LockTTL, r.LockTTL))
	}
	if r.BackupInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvBackupInterval, r.BackupInterval))
	}
	return errors.Join(errs...)
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv accepts the strconv.ParseBool spellings plus yes/no/on/off.
func getBoolEnv(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return defaultValue
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "swap.db")
}

// HasLineNotifier reports whether LINE push delivery is configured.
func (c *Config) HasLineNotifier() bool {
	return c.LineChannelToken != ""
}
