// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the document store backend.
	StoreDriver string `koanf:"store_driver"`
	BoltPath    string `koanf:"bolt_path"`
	PostgresDSN string `koanf:"postgres_dsn"`

	// Per-call store budgets.
	StoreReadTimeoutMS  int `koanf:"store_read_timeout_ms"`
	StoreWriteTimeoutMS int `koanf:"store_write_timeout_ms"`
	StoreBulkTimeoutMS  int `koanf:"store_bulk_timeout_ms"`

	// MaxUploadRows caps a bulk upload; MaxUploadBytes caps its body.
	MaxUploadRows  int   `koanf:"max_upload_rows"`
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// BatchWriteLimit is the chunk size of multi-document writes.
	BatchWriteLimit int `koanf:"batch_write_limit"`

	// Per-principal token bucket.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// ProfileCacheTTLSec is the profile cache bucket width.
	ProfileCacheTTLSec int `koanf:"profile_cache_ttl_sec"`

	// ReconcileIntervalSec enables the periodic summary sweep when > 0.
	ReconcileIntervalSec int `koanf:"reconcile_interval_sec"`
	ReconcileWorkers     int `koanf:"reconcile_workers"`
	ReconcileQueueSize   int `koanf:"reconcile_queue_size"`

	// Upload archive; an empty bucket disables archiving.
	ArchiveBucket    string `koanf:"archive_bucket"`
	ArchiveEndpoint  string `koanf:"archive_endpoint"`
	ArchiveRegion    string `koanf:"archive_region"`
	ArchiveAccessKey string `koanf:"archive_access_key"`
	ArchiveSecretKey string `koanf:"archive_secret_key"`

	// DrillTemplate is used by events that do not name one.
	DrillTemplate string `koanf:"drill_template"`
	// DefaultWeights overrides the template's ranking weights.
	DefaultWeights map[string]float64 `koanf:"default_weights"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		StoreDriver:          DriverMemory,
		BoltPath:             "data/combine.db",
		StoreReadTimeoutMS:   3000,
		StoreWriteTimeoutMS:  5000,
		StoreBulkTimeoutMS:   15000,
		MaxUploadRows:        5000,
		MaxUploadBytes:       10 << 20,
		BatchWriteLimit:      400,
		RateLimitRPS:         20,
		RateLimitBurst:       40,
		ProfileCacheTTLSec:   300,
		ReconcileIntervalSec: 0,
		ReconcileWorkers:     4,
		ReconcileQueueSize:   10000,
		DrillTemplate:        "football",
	}
}

// ReadTimeout returns the store read budget.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.StoreReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns the store write budget.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.StoreWriteTimeoutMS) * time.Millisecond
}

// BulkTimeout returns the store batch budget.
func (c *Config) BulkTimeout() time.Duration {
	return time.Duration(c.StoreBulkTimeoutMS) * time.Millisecond
}

// ReconcileInterval returns the sweep interval, zero when disabled.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSec) * time.Second
}

// ProfileCacheTTL returns the profile cache bucket width.
func (c *Config) ProfileCacheTTL() time.Duration {
	return time.Duration(c.ProfileCacheTTLSec) * time.Second
}
