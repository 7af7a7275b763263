// Package config loads the bot configuration from a YAML file, applies
// environment variable overrides, and validates everything that must be
// fatal at startup rather than mid-day.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"daybot/internal/calendar"
)

type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

const (
	paperBaseURL = "https://paper-api.alpaca.markets"
	liveBaseURL  = "https://api.alpaca.markets"
)

// Config is the top-level configuration.
type Config struct {
	Mode     Mode           `yaml:"mode"`
	Symbols  SymbolsConfig  `yaml:"symbols"`
	Quantity int            `yaml:"quantity"`
	Timezone string         `yaml:"timezone"`
	Triggers TriggersConfig `yaml:"triggers"`
	Holidays []string       `yaml:"holidays"`

	Alpaca     AlpacaConfig    `yaml:"alpaca"`
	Checkpoint string          `yaml:"checkpoint_path"`
	Journal    string          `yaml:"journal_path"`
	Summary    SummaryConfig   `yaml:"summary"`
	Telegram   TelegramConfig  `yaml:"telegram"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
	Logging    LoggingConfig   `yaml:"logging"`
	KillSwitch bool            `yaml:"kill_switch"`

	loc      *time.Location
	triggers calendar.Triggers
}

// SymbolsConfig names the quoted reference instrument and the two
// instruments the entry decision routes between.
type SymbolsConfig struct {
	Reference string `yaml:"reference"`
	Long      string `yaml:"long"`
	Short     string `yaml:"short"`
}

// TriggersConfig holds the three daily instants as "HH:MM" market-local
// clock times.
type TriggersConfig struct {
	OpenCapture string `yaml:"open_capture"`
	Entry       string `yaml:"entry"`
	Exit        string `yaml:"exit"`
}

// AlpacaConfig holds credentials and the trading endpoint.
type AlpacaConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// SummaryConfig selects the daily summary backend: "noop", "json", or
// "sqlite".
type SummaryConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// TelegramConfig enables the Telegram notification sink when both fields
// are set.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// TelemetryConfig enables the websocket event hub when Addr is set.
type TelemetryConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML file at path (a missing file is not an error, env
// and defaults may cover everything), loads .env, applies env overrides,
// and fills defaults. Call Validate before using the result.
func Load(path string) (*Config, error) {
	loadDotEnvIfPresent(".env")

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("DAYBOT_MODE"); v != "" {
		cfg.Mode = Mode(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
}

// Defaults mirror the strategy this bot runs: compare TQQQ at 06:30 PT
// against 07:00 PT, hold TQQQ or SQQQ, flatten at 12:59 PT.
func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = ModePaper
	}
	if cfg.Symbols.Reference == "" {
		cfg.Symbols.Reference = "TQQQ"
	}
	if cfg.Symbols.Long == "" {
		cfg.Symbols.Long = "TQQQ"
	}
	if cfg.Symbols.Short == "" {
		cfg.Symbols.Short = "SQQQ"
	}
	if cfg.Quantity == 0 {
		cfg.Quantity = 1
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/Los_Angeles"
	}
	if cfg.Triggers.OpenCapture == "" {
		cfg.Triggers.OpenCapture = "06:30"
	}
	if cfg.Triggers.Entry == "" {
		cfg.Triggers.Entry = "07:00"
	}
	if cfg.Triggers.Exit == "" {
		cfg.Triggers.Exit = "12:59"
	}
	if cfg.Alpaca.BaseURL == "" {
		if cfg.Mode == ModeLive {
			cfg.Alpaca.BaseURL = liveBaseURL
		} else {
			cfg.Alpaca.BaseURL = paperBaseURL
		}
	}
	if cfg.Checkpoint == "" {
		cfg.Checkpoint = "day_checkpoint.json"
	}
	if cfg.Journal == "" {
		cfg.Journal = "events.ndjson"
	}
	if cfg.Summary.Backend == "" {
		cfg.Summary.Backend = "json"
	}
	if cfg.Summary.Path == "" {
		if cfg.Summary.Backend == "sqlite" {
			cfg.Summary.Path = "summaries.db"
		} else {
			cfg.Summary.Path = "summaries"
		}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks everything except credentials and caches the parsed
// timezone and trigger times.
func (c *Config) Validate() error {
	if c.Mode != ModePaper && c.Mode != ModeLive {
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	if c.Quantity <= 0 {
		return fmt.Errorf("quantity must be > 0")
	}
	if c.Symbols.Reference == "" || c.Symbols.Long == "" || c.Symbols.Short == "" {
		return fmt.Errorf("symbols.reference, symbols.long and symbols.short are required")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.loc = loc

	open, err := calendar.ParseClockTime(c.Triggers.OpenCapture)
	if err != nil {
		return fmt.Errorf("triggers.open_capture: %w", err)
	}
	entry, err := calendar.ParseClockTime(c.Triggers.Entry)
	if err != nil {
		return fmt.Errorf("triggers.entry: %w", err)
	}
	exit, err := calendar.ParseClockTime(c.Triggers.Exit)
	if err != nil {
		return fmt.Errorf("triggers.exit: %w", err)
	}
	if !open.Before(entry) || !entry.Before(exit) {
		return fmt.Errorf("triggers must be ordered open_capture < entry < exit, got %s %s %s", open, entry, exit)
	}
	c.triggers = calendar.Triggers{OpenCapture: open, Entry: entry, Exit: exit}

	for _, h := range c.Holidays {
		if _, err := time.ParseInLocation("2006-01-02", h, loc); err != nil {
			return fmt.Errorf("invalid holiday %q: %w", h, err)
		}
	}

	switch c.Summary.Backend {
	case "noop", "json", "sqlite":
	default:
		return fmt.Errorf("invalid summary backend: %s", c.Summary.Backend)
	}
	return nil
}

// ValidateCredentials is checked only when the bot will talk to the
// brokerage; the validate-only mode skips it.
func (c *Config) ValidateCredentials() error {
	if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
		return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required in %s mode", c.Mode)
	}
	return nil
}

// Location returns the market reference timezone. Valid after Validate.
func (c *Config) Location() *time.Location {
	return c.loc
}

// TriggerTimes returns the parsed trigger instants. Valid after Validate.
func (c *Config) TriggerTimes() calendar.Triggers {
	return c.triggers
}
