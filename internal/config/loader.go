package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/combine/internal/domain/drills"
)

// EnvPrefix prefixes every environment key.
const EnvPrefix = "COMBINE_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if COMBINE_CONFIG is set
//  3. env (prefix COMBINE_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// COMBINE_STORE_DRIVER -> store_driver. Keys are flat so underscores
	// are kept as they are.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would make the service misbehave.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("%w: bolt_path must not be empty", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.StoreReadTimeoutMS <= 0 || c.StoreWriteTimeoutMS <= 0 || c.StoreBulkTimeoutMS <= 0 {
		return fmt.Errorf("%w: store timeouts must be positive", ErrInvalidConfig)
	}
	if c.MaxUploadRows <= 0 || c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: upload limits must be positive", ErrInvalidConfig)
	}
	if c.BatchWriteLimit <= 0 || c.BatchWriteLimit > 500 {
		return fmt.Errorf("%w: batch_write_limit must be in 1..500", ErrInvalidConfig)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	}
	if c.ReconcileIntervalSec < 0 {
		return fmt.Errorf("%w: reconcile_interval_sec must not be negative", ErrInvalidConfig)
	}
	tpl, err := drills.Builtin().Template(c.DrillTemplate)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if len(c.DefaultWeights) > 0 {
		sum := 0.0
		for _, key := range tpl.Keys() {
			w, ok := c.DefaultWeights[key]
			if !ok {
				return fmt.Errorf("%w: default_weights missing %s", ErrInvalidConfig, key)
			}
			if w < 0 || w > 1 {
				return fmt.Errorf("%w: default_weights.%s must be in [0,1]", ErrInvalidConfig, key)
			}
			sum += w
		}
		if len(c.DefaultWeights) != len(tpl.Keys()) {
			return fmt.Errorf("%w: default_weights has unknown drills", ErrInvalidConfig)
		}
		if math.Abs(sum-1) > drills.WeightTolerance {
			return fmt.Errorf("%w: default_weights must sum to 1.0, got %.6f", ErrInvalidConfig, sum)
		}
	}
	return nil
}
