// Package config defines service configuration and its validation.
package config

import (
	"fmt"
	"math"
)

// LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Waterfall presentation orders.
const (
	OrderMagnitude = "magnitude"
	OrderSigned    = "signed"
)

// Catalog sources.
const (
	CatalogSourceCSV    = "csv"
	CatalogSourceSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// TextWeight and VitalsWeight are the fusion weights; they must sum to 1.
	TextWeight   float64 `koanf:"text_weight"`
	VitalsWeight float64 `koanf:"vitals_weight"`

	// IntegrityTolerance is the absolute waterfall reconciliation tolerance.
	IntegrityTolerance float64 `koanf:"integrity_tolerance"`
	// WaterfallOrder ranks features by |contribution| (magnitude) or by signed contribution.
	WaterfallOrder string `koanf:"waterfall_order"`

	// DependencyTimeoutMS bounds every collaborator call.
	DependencyTimeoutMS int `koanf:"dependency_timeout_ms"`

	ClassifierURL   string `koanf:"classifier_url"`
	ClassifierToken string `koanf:"classifier_token"`

	VitalsModelPath  string `koanf:"vitals_model_path"`
	VitalsScalerPath string `koanf:"vitals_scaler_path"`
	// VitalsORTLibrary is the onnxruntime shared library path.
	VitalsORTLibrary string `koanf:"vitals_ort_library"`

	// LLMModel and LLMBaseURL empty select the provider defaults.
	LLMProvider     string `koanf:"llm_provider"`
	LLMModel        string `koanf:"llm_model"`
	LLMBaseURL      string `koanf:"llm_base_url"`
	AnthropicAPIKey string `koanf:"anthropic_api_key"`
	OpenAIAPIKey    string `koanf:"openai_api_key"`
	LLMMaxRetries   int    `koanf:"llm_max_retries"`

	CatalogPath   string `koanf:"catalog_path"`
	CatalogSource string `koanf:"catalog_source"`
	// DBPath is the SQLite database for reports (and the catalog when catalog_source is sqlite).
	// Empty disables report persistence.
	DBPath string `koanf:"db_path"`
	// CatalogReloadSchedule is a cron spec; empty disables scheduled reloads.
	CatalogReloadSchedule string `koanf:"catalog_reload_schedule"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		TextWeight:          0.5,
		VitalsWeight:        0.5,
		IntegrityTolerance:  1e-3,
		WaterfallOrder:      OrderMagnitude,
		DependencyTimeoutMS: 15_000,
		ClassifierURL:       "https://api-inference.huggingface.co/models/facebook/bart-large-mnli",
		VitalsModelPath:     "models/vitals.onnx",
		VitalsScalerPath:    "models/scaler.yaml",
		LLMProvider:         ProviderOpenAI,
		CatalogPath:         "data/departments.csv",
		CatalogSource:       CatalogSourceCSV,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TextWeight < 0 || c.VitalsWeight < 0:
		return fmt.Errorf("%w: fusion weights must be non-negative", ErrInvalidConfig)
	case math.Abs(c.TextWeight+c.VitalsWeight-1) > 1e-9:
		return fmt.Errorf("%w: text_weight + vitals_weight must equal 1, got %g", ErrInvalidConfig, c.TextWeight+c.VitalsWeight)
	case c.IntegrityTolerance <= 0:
		return fmt.Errorf("%w: integrity_tolerance must be positive", ErrInvalidConfig)
	case c.DependencyTimeoutMS <= 0:
		return fmt.Errorf("%w: dependency_timeout_ms must be positive", ErrInvalidConfig)
	case c.LLMMaxRetries < 0:
		return fmt.Errorf("%w: llm_max_retries must not be negative", ErrInvalidConfig)
	}
	switch c.LLMProvider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown llm_provider %q", ErrInvalidConfig, c.LLMProvider)
	}
	switch c.WaterfallOrder {
	case OrderMagnitude, OrderSigned:
	default:
		return fmt.Errorf("%w: unknown waterfall_order %q", ErrInvalidConfig, c.WaterfallOrder)
	}
	switch c.CatalogSource {
	case CatalogSourceCSV:
		if c.CatalogPath == "" {
			return fmt.Errorf("%w: catalog_path is required for the csv source", ErrInvalidConfig)
		}
	case CatalogSourceSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("%w: db_path is required for the sqlite catalog", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown catalog_source %q", ErrInvalidConfig, c.CatalogSource)
	}
	return nil
}
