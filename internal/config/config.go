package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Forecast  ForecastConfig  `mapstructure:"forecast"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// APIConfig holds the curated data endpoint configuration
type APIConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
}

// DashboardConfig holds refresh and aggregation configuration
type DashboardConfig struct {
	WindowDays       int           `mapstructure:"window_days"`
	Brand            string        `mapstructure:"brand"`
	DigitalChannel   string        `mapstructure:"digital_channel"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
	DenominatorFloor float64       `mapstructure:"denominator_floor"`
}

// AlertsConfig holds DQ alert derivation configuration
type AlertsConfig struct {
	NullSuffix string  `mapstructure:"null_suffix"`
	Threshold  float64 `mapstructure:"threshold"`
	ImpactMode string  `mapstructure:"impact_mode"` // constant or magnitude
	Impact     string  `mapstructure:"impact"`      // used when impact_mode is constant
	ImpactLow  float64 `mapstructure:"impact_low"`
	ImpactHigh float64 `mapstructure:"impact_high"`
}

// ForecastConfig holds forecast composition configuration
type ForecastConfig struct {
	HistoricalCount int     `mapstructure:"historical_count"`
	ForecastCount   int     `mapstructure:"forecast_count"`
	ConfidenceBand  float64 `mapstructure:"confidence_band"`
	ScenarioUplift  float64 `mapstructure:"scenario_uplift"` // percent, 0 mirrors the forecast
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds the report archive configuration
type StorageConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DBPath     string `mapstructure:"db_path"`
	MaxReports int    `mapstructure:"max_reports"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EnvPrefix is prepended to every environment override, e.g.
// DCOMPULSE_API_BASE_URL for api.base_url.
const EnvPrefix = "DCOMPULSE"

// Load reads configuration from file and environment variables.
// An empty path skips the file and relies on defaults and environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about
	if err := v.BindEnv("api.base_url"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}
	for _, key := range []string{"telegram.bot_token", "telegram.chat_id"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.max_idle_conns", 100)
	v.SetDefault("api.max_idle_conns_per_host", 32)
	v.SetDefault("api.idle_conn_timeout", "90s")

	// Dashboard defaults
	v.SetDefault("dashboard.window_days", 91)
	v.SetDefault("dashboard.brand", "all")
	v.SetDefault("dashboard.digital_channel", "digital")
	v.SetDefault("dashboard.refresh_interval", "15m")
	v.SetDefault("dashboard.fetch_concurrency", 16)
	v.SetDefault("dashboard.denominator_floor", 1.0)

	// Alert defaults
	v.SetDefault("alerts.null_suffix", "_null_pct")
	v.SetDefault("alerts.threshold", 0.05)
	v.SetDefault("alerts.impact_mode", "constant")
	v.SetDefault("alerts.impact", "medium")
	v.SetDefault("alerts.impact_low", 0.10)
	v.SetDefault("alerts.impact_high", 0.25)

	// Forecast defaults
	v.SetDefault("forecast.historical_count", 6)
	v.SetDefault("forecast.forecast_count", 6)
	v.SetDefault("forecast.confidence_band", 0.05)
	v.SetDefault("forecast.scenario_uplift", 0.0)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.max_reports", 500)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate API config
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http or https URL")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	// Validate Dashboard config
	if c.Dashboard.WindowDays < 1 || c.Dashboard.WindowDays > 366 {
		return fmt.Errorf("dashboard.window_days must be between 1 and 366")
	}
	if c.Dashboard.DigitalChannel == "" {
		return fmt.Errorf("dashboard.digital_channel is required")
	}
	if c.Dashboard.RefreshInterval < 1*time.Minute {
		return fmt.Errorf("dashboard.refresh_interval must be at least 1 minute")
	}
	if c.Dashboard.FetchConcurrency < 1 {
		return fmt.Errorf("dashboard.fetch_concurrency must be at least 1")
	}
	if c.Dashboard.DenominatorFloor <= 0 {
		return fmt.Errorf("dashboard.denominator_floor must be positive")
	}

	// Validate Alerts config
	if c.Alerts.NullSuffix == "" {
		return fmt.Errorf("alerts.null_suffix is required")
	}
	if c.Alerts.Threshold < 0.0 || c.Alerts.Threshold > 1.0 {
		return fmt.Errorf("alerts.threshold must be between 0.0 and 1.0")
	}
	switch c.Alerts.ImpactMode {
	case "constant":
		validImpacts := map[string]bool{"low": true, "medium": true, "high": true}
		if !validImpacts[strings.ToLower(c.Alerts.Impact)] {
			return fmt.Errorf("alerts.impact must be one of: low, medium, high")
		}
	case "magnitude":
		if c.Alerts.ImpactLow > c.Alerts.ImpactHigh {
			return fmt.Errorf("alerts.impact_low must not exceed alerts.impact_high")
		}
	default:
		return fmt.Errorf("alerts.impact_mode must be one of: constant, magnitude")
	}

	// Validate Forecast config
	if c.Forecast.HistoricalCount < 0 || c.Forecast.ForecastCount < 0 {
		return fmt.Errorf("forecast counts must not be negative")
	}
	if c.Forecast.ConfidenceBand < 0.0 || c.Forecast.ConfidenceBand >= 1.0 {
		return fmt.Errorf("forecast.confidence_band must be in [0.0, 1.0)")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.Enabled && c.Storage.MaxReports < 1 {
		return fmt.Errorf("storage.max_reports must be at least 1")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
