package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/triage/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars(t)

			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DependencyTimeoutMS, convey.ShouldEqual, 15_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			clearConfigEnvVars(t)
			t.Setenv("TRIAGE_ADDR", ":8080")
			t.Setenv("TRIAGE_TEXT_WEIGHT", "0.6")
			t.Setenv("TRIAGE_VITALS_WEIGHT", "0.4")
			t.Setenv("TRIAGE_LLM_PROVIDER", "anthropic")
			t.Setenv("TRIAGE_LLM_MAX_RETRIES", "2")
			t.Setenv("TRIAGE_DEPENDENCY_TIMEOUT_MS", "2500")

			cfg, err := config.Load()

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TextWeight, convey.ShouldEqual, 0.6)
				convey.So(cfg.VitalsWeight, convey.ShouldEqual, 0.4)
				convey.So(cfg.LLMProvider, convey.ShouldEqual, config.ProviderAnthropic)
				convey.So(cfg.LLMMaxRetries, convey.ShouldEqual, 2)
				convey.So(cfg.DependencyTimeoutMS, convey.ShouldEqual, 2500)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			clearConfigEnvVars(t)
			path := writeTempConfig(t, `
addr: ":9090"
integrity_tolerance: 0.01
catalog_source: sqlite
db_path: /tmp/triage.db
catalog_reload_schedule: "@every 5m"
`)
			t.Setenv("TRIAGE_CONFIG", path)

			cfg, err := config.Load()

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.IntegrityTolerance, convey.ShouldEqual, 0.01)
				convey.So(cfg.CatalogSource, convey.ShouldEqual, config.CatalogSourceSQLite)
				convey.So(cfg.CatalogReloadSchedule, convey.ShouldEqual, "@every 5m")
			})

			convey.Convey("And env overrides the file", func() {
				t.Setenv("TRIAGE_ADDR", ":7070")

				cfg, err := config.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			clearConfigEnvVars(t)
			t.Setenv("TRIAGE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load()

			convey.Convey("Then it fails with ErrLoadConfig", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When env produces an invalid config", func() {
			clearConfigEnvVars(t)
			t.Setenv("TRIAGE_TEXT_WEIGHT", "0.9")

			_, err := config.Load()

			convey.Convey("Then it fails with ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "triage.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// clearConfigEnvVars unsets every TRIAGE_ variable for the duration of the test.
func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
}
