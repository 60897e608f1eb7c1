package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/combine/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
				convey.So(cfg.StoreReadTimeoutMS, convey.ShouldEqual, 3000)
				convey.So(cfg.RateLimitBurst, convey.ShouldEqual, 40)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("COMBINE_ADDR", ":8080")
			_ = os.Setenv("COMBINE_STORE_DRIVER", "bolt")
			_ = os.Setenv("COMBINE_BOLT_PATH", "/tmp/combine.db")
			_ = os.Setenv("COMBINE_MAX_UPLOAD_ROWS", "100")
			_ = os.Setenv("COMBINE_RATE_LIMIT_RPS", "2.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverBolt)
				convey.So(cfg.BoltPath, convey.ShouldEqual, "/tmp/combine.db")
				convey.So(cfg.MaxUploadRows, convey.ShouldEqual, 100)
				convey.So(cfg.RateLimitRPS, convey.ShouldEqual, 2.5)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
store_driver: postgres
postgres_dsn: "postgres://combine@localhost/combine"
reconcile_interval_sec: 60
default_weights:
  40m_dash: 0.2
  vertical_jump: 0.2
  catching: 0.2
  throwing: 0.2
  agility: 0.2
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("COMBINE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverPostgres)
				convey.So(cfg.ReconcileIntervalSec, convey.ShouldEqual, 60)
				convey.So(cfg.DefaultWeights["agility"], convey.ShouldEqual, 0.2)
				convey.So(cfg.MaxUploadRows, convey.ShouldEqual, 5000) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nbatch_write_limit: 200\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("COMBINE_CONFIG", tmpFile)
			_ = os.Setenv("COMBINE_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BatchWriteLimit, convey.ShouldEqual, 200)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("COMBINE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("COMBINE_CONFIG", "/non/existent/combine.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("COMBINE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("COMBINE_MAX_UPLOAD_ROWS", "lots")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the driver is unknown", func() {
			cfg.StoreDriver = "mongo"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When postgres has no DSN", func() {
			cfg.StoreDriver = config.DriverPostgres
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a timeout is zero", func() {
			cfg.StoreWriteTimeoutMS = 0
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the batch limit exceeds the store cap", func() {
			cfg.BatchWriteLimit = 501
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the drill template is unknown", func() {
			cfg.DrillTemplate = "curling"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When default weights are partial", func() {
			cfg.DefaultWeights = map[string]float64{"agility": 1}
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "missing")
		})

		convey.Convey("When default weights do not sum to one", func() {
			cfg.DefaultWeights = map[string]float64{
				"40m_dash": 0.3, "vertical_jump": 0.2, "catching": 0.15, "throwing": 0.15, "agility": 0.199,
			}
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "sum to 1.0")
		})

		convey.Convey("When default weights name an unknown drill", func() {
			cfg.DefaultWeights = map[string]float64{
				"40m_dash": 0.3, "vertical_jump": 0.2, "catching": 0.15, "throwing": 0.15, "agility": 0.2, "bench": 0,
			}
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"COMBINE_CONFIG",
		"COMBINE_ADDR",
		"COMBINE_STORE_DRIVER",
		"COMBINE_BOLT_PATH",
		"COMBINE_MAX_UPLOAD_ROWS",
		"COMBINE_RATE_LIMIT_RPS",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "combine-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
