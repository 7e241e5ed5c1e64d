package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"hotel-rate-intel/internal/logging"
)

// EnvPrefix namespaces environment overrides, e.g. RATEINTEL_SOURCE_KIND.
const EnvPrefix = "RATEINTEL"

// Source kinds accepted by source.kind.
const (
	SourceHTTP    = "http"
	SourceBrowser = "browser"
	SourceMock    = "mock"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Collector CollectorConfig `mapstructure:"collector"`
	Source    SourceConfig    `mapstructure:"source"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Seasonal  SeasonalConfig  `mapstructure:"seasonal"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SchedulerConfig governs refresh cadence.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
	// TickTimeout bounds one refresh; zero falls back to the interval.
	TickTimeout   time.Duration `mapstructure:"tick_timeout"`
}

// CollectorConfig paces and bounds rate collection.
type CollectorConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RequestDelay   time.Duration `mapstructure:"request_delay"`
	FallbackSeed   int64         `mapstructure:"fallback_seed"`
}

// SourceConfig selects and configures the rate source.
type SourceConfig struct {
	Kind          string        `mapstructure:"kind"`
	URLTemplate   string        `mapstructure:"url_template"`
	UserAgent     string        `mapstructure:"user_agent"`
	BrowserSettle time.Duration `mapstructure:"browser_settle"`
}

// CatalogConfig points at an alternative hotel dataset.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// SeasonalConfig points at an alternative seasonal dataset.
type SeasonalConfig struct {
	DatasetPath string `mapstructure:"dataset_path"`
}

// DetectorConfig tunes opportunity merging.
type DetectorConfig struct {
	Limit           int           `mapstructure:"limit"`
	SeasonalHorizon time.Duration `mapstructure:"seasonal_horizon"`
}

// CacheConfig sets how long aggregated results stay fresh.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AnalysisConfig bounds the in-memory observation history.
type AnalysisConfig struct {
	HistorySize int `mapstructure:"history_size"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Cooldown time.Duration  `mapstructure:"cooldown"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// HTTPConfig controls the JSON API started by the run command.
type HTTPConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	Dir         string `mapstructure:"dir"`
	ChartWidth  int    `mapstructure:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rateintel")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("scheduler.interval", "6h")
	v.SetDefault("scheduler.align_to_bucket", false)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.tick_timeout", "30m")

	v.SetDefault("collector.request_timeout", "20s")
	v.SetDefault("collector.request_delay", "2s")
	v.SetDefault("collector.fallback_seed", int64(0))

	v.SetDefault("source.kind", SourceHTTP)
	v.SetDefault("source.url_template", "")
	v.SetDefault("source.user_agent", "")
	v.SetDefault("source.browser_settle", "3s")

	v.SetDefault("catalog.path", "")
	v.SetDefault("seasonal.dataset_path", "")

	v.SetDefault("detector.limit", 5)
	v.SetDefault("detector.seasonal_horizon", "2160h")

	v.SetDefault("cache.ttl", "4h")
	v.SetDefault("analysis.history_size", 28)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.cooldown", "24h")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.chart_width", 1024)
	v.SetDefault("export.chart_height", 512)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.TickTimeout < 0 {
		return fmt.Errorf("scheduler.tick_timeout must not be negative")
	}
	if t := c.Collector.RequestTimeout; t != 0 && (t < 10*time.Second || t > 30*time.Second) {
		return fmt.Errorf("collector.request_timeout must be between 10s and 30s, got %s", t)
	}
	if c.Collector.RequestDelay < 0 {
		return fmt.Errorf("collector.request_delay cannot be negative")
	}
	switch strings.ToLower(c.Source.Kind) {
	case SourceHTTP, SourceBrowser, SourceMock:
		c.Source.Kind = strings.ToLower(c.Source.Kind)
	default:
		return fmt.Errorf("source.kind must be one of http, browser, mock; got %q", c.Source.Kind)
	}
	if c.Detector.Limit <= 0 {
		return fmt.Errorf("detector.limit must be greater than zero")
	}
	if c.Detector.SeasonalHorizon <= 0 {
		return fmt.Errorf("detector.seasonal_horizon must be greater than zero")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be greater than zero")
	}
	if c.Analysis.HistorySize <= 0 {
		return fmt.Errorf("analysis.history_size must be greater than zero")
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr must be set when http.enabled")
	}
	if c.Export.ChartWidth <= 0 || c.Export.ChartHeight <= 0 {
		return fmt.Errorf("export.chart_width and export.chart_height must be greater than zero")
	}
	return nil
}

// ResolveLimit returns either the CLI override or the detector default.
func (c *Config) ResolveLimit(override int) int {
	if override > 0 {
		return override
	}
	return c.Detector.Limit
}
