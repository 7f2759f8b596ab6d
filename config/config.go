package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/orbtrader/internal/domain"
)

// Config is the full configuration for a session or backtest run. Read
// once at start; the core treats it as immutable input.
type Config struct {
	Trading  TradingConfig  `yaml:"trading"`
	SkipDays SkipDaysConfig `yaml:"skip_days"`
	API      APIConfig      `yaml:"api"`
	Notify   NotifyConfig   `yaml:"notify"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// TradingConfig carries the session window and instrument parameters.
// All clock fields are HH:MM in Timezone (venue-local).
type TradingConfig struct {
	Symbol   string `yaml:"symbol"`
	Timezone string `yaml:"timezone"`

	MarketOpen      string `yaml:"market_open"`
	RangeEnd        string `yaml:"range_end"`
	BreakevenCheck  string `yaml:"be_check_time"`
	EODExit         string `yaml:"eod_exit"`
	PrevCloseWindow string `yaml:"prev_close_window"` // start of the prior session's final sub-window

	TargetPoints float64 `yaml:"target_points"`
	EntryBuffer  float64 `yaml:"entry_buffer_points"`
	TickSize     float64 `yaml:"tick_size"`
	PointValue   float64 `yaml:"point_value"`
	Qty          int     `yaml:"qty"`

	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	MaxStaleSeconds     int `yaml:"max_stale_seconds"`
}

// SkipDaysConfig carries the stand-down thresholds.
type SkipDaysConfig struct {
	FOMCDates       []string `yaml:"fomc_dates"`
	GapThresholdPct float64  `yaml:"gap_threshold_pct"`
	MaxRangePoints  float64  `yaml:"max_range_points"`
}

// APIConfig holds the market-data vendor endpoint. The bearer token comes
// from the environment, never from the YAML file.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"-"`
}

// NotifyConfig configures the Campfire chat sink. Empty BotKey disables it.
type NotifyConfig struct {
	CampfireBaseURL string `yaml:"campfire_base_url"`
	CampfireRoomID  string `yaml:"campfire_room_id"`
	CampfireBotKey  string `yaml:"-"`
}

// StorageConfig controls the trade journal. Empty DSN disables persistence.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig controls log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML config and the .env file if present. Environment
// values override YAML for secrets and log settings.
func Load(path string) (*Config, error) {
	// Load .env if it exists (errors silenced when there is no file).
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields the core cannot default its way around.
func (c *Config) Validate() error {
	for _, f := range []struct{ name, hhmm string }{
		{"market_open", c.Trading.MarketOpen},
		{"range_end", c.Trading.RangeEnd},
		{"be_check_time", c.Trading.BreakevenCheck},
		{"eod_exit", c.Trading.EODExit},
		{"prev_close_window", c.Trading.PrevCloseWindow},
	} {
		if _, _, err := domain.ParseHHMM(f.hhmm); err != nil {
			return fmt.Errorf("trading.%s: %w", f.name, err)
		}
	}
	if c.Trading.TickSize <= 0 {
		return fmt.Errorf("trading.tick_size must be > 0, got %v", c.Trading.TickSize)
	}
	if c.Trading.PointValue <= 0 {
		return fmt.Errorf("trading.point_value must be > 0, got %v", c.Trading.PointValue)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the venue time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Trading.Timezone)
	if err != nil {
		return nil, fmt.Errorf("trading.timezone %q: %w", c.Trading.Timezone, err)
	}
	return loc, nil
}

// PollInterval returns the live loop's sleep between ticks.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trading.PollIntervalSeconds) * time.Second
}

// MaxStale returns the quote staleness threshold.
func (c *Config) MaxStale() time.Duration {
	return time.Duration(c.Trading.MaxStaleSeconds) * time.Second
}

// SkipConfig converts the YAML section into the domain policy input.
func (c *Config) SkipConfig() domain.SkipConfig {
	return domain.SkipConfig{
		FOMCDates:       c.SkipDays.FOMCDates,
		GapThresholdPct: c.SkipDays.GapThresholdPct,
		MaxRangePoints:  c.SkipDays.MaxRangePoints,
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCHWAB_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("CAMPFIRE_BOT_KEY"); v != "" {
		cfg.Notify.CampfireBotKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Trading.Symbol == "" {
		cfg.Trading.Symbol = "/ES"
	}
	if cfg.Trading.Timezone == "" {
		cfg.Trading.Timezone = "America/New_York"
	}
	if cfg.Trading.MarketOpen == "" {
		cfg.Trading.MarketOpen = "09:30"
	}
	if cfg.Trading.RangeEnd == "" {
		cfg.Trading.RangeEnd = "09:45"
	}
	if cfg.Trading.BreakevenCheck == "" {
		cfg.Trading.BreakevenCheck = "10:00"
	}
	if cfg.Trading.EODExit == "" {
		cfg.Trading.EODExit = "16:00"
	}
	if cfg.Trading.PrevCloseWindow == "" {
		cfg.Trading.PrevCloseWindow = "15:45"
	}
	if cfg.Trading.TargetPoints <= 0 {
		cfg.Trading.TargetPoints = 20
	}
	if cfg.Trading.TickSize <= 0 {
		cfg.Trading.TickSize = domain.TickSizeFor(cfg.Trading.Symbol)
	}
	if cfg.Trading.PointValue <= 0 {
		cfg.Trading.PointValue = 50 // /ES
	}
	if cfg.Trading.Qty <= 0 {
		cfg.Trading.Qty = 1
	}
	if cfg.Trading.PollIntervalSeconds <= 0 {
		cfg.Trading.PollIntervalSeconds = 2
	}
	if cfg.Trading.MaxStaleSeconds <= 0 {
		cfg.Trading.MaxStaleSeconds = 30
	}
	if cfg.SkipDays.MaxRangePoints <= 0 {
		cfg.SkipDays.MaxRangePoints = 38
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
