package config

import (
	"time"

	"contract-announcer/pkg/config"
)

// SAM holds the configuration for the SAM.gov opportunities API.
type SAM struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	PageSize            int           `mapstructure:"page_size"`
	MaxPages            int           `mapstructure:"max_pages"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff"`
	Timeout             time.Duration `mapstructure:"timeout"`
	NoticeTypes         []string      `mapstructure:"notice_types"`
	SetAsideCodes       []string      `mapstructure:"set_aside_codes"`
}

// Telegram holds configuration for the channel the announcements are posted to.
type Telegram struct {
	BotToken    string        `mapstructure:"bot_token"`
	ChatID      int64         `mapstructure:"chat_id"`
	APIEndpoint string        `mapstructure:"api_endpoint"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Pipeline holds the knobs of a single announce run.
type Pipeline struct {
	TopN              int           `mapstructure:"top_n"`
	LookbackDays      int           `mapstructure:"lookback_days"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	PublishDelay      time.Duration `mapstructure:"publish_delay"`
	MessageMaxLen     int           `mapstructure:"message_max_len"`
	RunTimeout        time.Duration `mapstructure:"run_timeout"`
	AnnouncedCacheTTL time.Duration `mapstructure:"announced_cache_ttl"`
}

// Scoring overrides the default relevance weights. Zero values keep the defaults.
type Scoring struct {
	SetAsideWeights   map[string]float64 `mapstructure:"set_aside_weights"`
	UrgencyMax        float64            `mapstructure:"urgency_max"`
	UrgencyWindowDays int                `mapstructure:"urgency_window_days"`
	ValueMax          float64            `mapstructure:"value_max"`
	ValueUnit         float64            `mapstructure:"value_unit"`
	ValuePerUnit      float64            `mapstructure:"value_per_unit"`
}

// Schedule holds the cron expression for the schedule command.
type Schedule struct {
	Cron string `mapstructure:"cron"`
}

// RunLock guards against overlapping runs when Redis is available.
type RunLock struct {
	Enabled bool          `mapstructure:"enabled"`
	Key     string        `mapstructure:"key"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Config holds the full configuration for the announcer.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	SAM      SAM             `mapstructure:"sam"`
	Telegram Telegram        `mapstructure:"telegram"`
	Pipeline Pipeline        `mapstructure:"pipeline"`
	Scoring  Scoring         `mapstructure:"scoring"`
	Schedule Schedule        `mapstructure:"schedule"`
	RunLock  RunLock         `mapstructure:"run_lock"`
}

// Load loads the announcer configuration from the given path and fills in defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset knob with its documented default.
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "contract-announcer"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Encoding == "" {
		c.Logger.Encoding = "json"
	}

	if c.SAM.BaseURL == "" {
		c.SAM.BaseURL = "https://api.sam.gov/opportunities/v2/search"
	}
	if c.SAM.PageSize <= 0 {
		c.SAM.PageSize = 100
	}
	if c.SAM.MaxPages <= 0 {
		c.SAM.MaxPages = 10
	}
	if c.SAM.MaxRequestPerMinute <= 0 {
		c.SAM.MaxRequestPerMinute = 30
	}
	if c.SAM.MaxRetries <= 0 {
		c.SAM.MaxRetries = 3
	}
	if c.SAM.RetryBackoff <= 0 {
		c.SAM.RetryBackoff = 2 * time.Second
	}
	if c.SAM.Timeout <= 0 {
		c.SAM.Timeout = 30 * time.Second
	}

	if c.Telegram.Timeout <= 0 {
		c.Telegram.Timeout = 15 * time.Second
	}

	if c.Pipeline.TopN <= 0 {
		c.Pipeline.TopN = 5
	}
	if c.Pipeline.LookbackDays <= 0 {
		c.Pipeline.LookbackDays = 1
	}
	if c.Pipeline.MaxRetries <= 0 {
		c.Pipeline.MaxRetries = 3
	}
	if c.Pipeline.RetryBackoff <= 0 {
		c.Pipeline.RetryBackoff = 5 * time.Second
	}
	if c.Pipeline.PublishDelay <= 0 {
		c.Pipeline.PublishDelay = 3 * time.Second
	}
	if c.Pipeline.MessageMaxLen <= 0 {
		c.Pipeline.MessageMaxLen = 280
	}
	if c.Pipeline.RunTimeout <= 0 {
		c.Pipeline.RunTimeout = 10 * time.Minute
	}
	if c.Pipeline.AnnouncedCacheTTL <= 0 {
		c.Pipeline.AnnouncedCacheTTL = time.Hour
	}

	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 */4 * * *"
	}

	if c.RunLock.Key == "" {
		c.RunLock.Key = "contract-announcer:run-lock"
	}
	if c.RunLock.TTL <= 0 {
		c.RunLock.TTL = c.Pipeline.RunTimeout + time.Minute
	}
}
