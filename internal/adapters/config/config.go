package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"dealwatch/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	App           AppConfig
	Ebay          EbayConfig
	Scraper       ScraperConfig
	Ledger        LedgerConfig
	Telegram      TelegramConfig
	Webhook       WebhookConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

// AppConfig holds general application settings
type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"dealwatch"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

// EbayConfig holds marketplace API credentials and request settings
type EbayConfig struct {
	AppID       string        `envconfig:"EBAY_APP_ID" required:"true"`
	CertID      string        `envconfig:"EBAY_CERT_ID" required:"true"`
	Marketplace string        `envconfig:"EBAY_MARKETPLACE" default:"EBAY_US"`
	Limit       int           `envconfig:"EBAY_SEARCH_LIMIT" default:"50"`
	HTTPTimeout time.Duration `envconfig:"EBAY_HTTP_TIMEOUT" default:"30s"`
}

// ScraperConfig holds poll loop timing and matching toggles
type ScraperConfig struct {
	RulesPath      string        `envconfig:"RULES_PATH" default:"config/rules.yaml"`
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"5m"`
	StartOnCommand bool          `envconfig:"START_ON_COMMAND" default:"false"`

	// Sleep window bounds in "HH:MM±HH:MM" form; both empty disables the
	// window.
	SleepStart string `envconfig:"SLEEP_START" default:""`
	SleepEnd   string `envconfig:"SLEEP_END" default:""`

	IncludeShippingInPriceFilter    bool `envconfig:"INCLUDE_SHIPPING_IN_PRICE_FILTER" default:"false"`
	IncludeShippingInDealEvaluation bool `envconfig:"INCLUDE_SHIPPING_IN_DEAL_EVALUATION" default:"false"`

	NotifyInterval     time.Duration `envconfig:"NOTIFY_INTERVAL" default:"1s"`
	BackoffDelay       time.Duration `envconfig:"BACKOFF_DELAY" default:"20s"`
	PauseCheckInterval time.Duration `envconfig:"PAUSE_CHECK_INTERVAL" default:"5s"`
}

// LedgerConfig holds seen-item storage settings
type LedgerConfig struct {
	Path            string        `envconfig:"LEDGER_PATH" default:"data/seen-listings.db"`
	RetentionDays   int           `envconfig:"LEDGER_RETENTION_DAYS" default:"30"`
	CleanupInterval time.Duration `envconfig:"LEDGER_CLEANUP_INTERVAL" default:"24h"`
}

// TelegramConfig holds the Telegram notification sink settings
type TelegramConfig struct {
	Enabled  bool   `envconfig:"TELEGRAM_ENABLED" default:"false"`
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID" default:"0"`
}

// WebhookConfig holds the webhook notification sink settings
type WebhookConfig struct {
	Enabled bool   `envconfig:"WEBHOOK_ENABLED" default:"false"`
	URL     string `envconfig:"WEBHOOK_URL" default:""`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

// ErrorTrackingConfig holds error tracker settings
type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN" default:""`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
}

// Load reads configuration from the environment, with .env as a fallback
// source for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process environment config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Scraper.PollInterval <= 0 {
		return errors.Wrap(errors.ErrInvalidInput, "poll interval must be positive")
	}
	if c.Ebay.Limit <= 0 || c.Ebay.Limit > 200 {
		return errors.Wrap(errors.ErrInvalidInput, "search limit must be in 1..200")
	}
	if (c.Scraper.SleepStart == "") != (c.Scraper.SleepEnd == "") {
		return errors.Wrap(errors.ErrInvalidInput, "sleep window needs both start and end")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		return errors.Wrap(errors.ErrInvalidInput, "telegram sink needs bot token and chat id")
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return errors.Wrap(errors.ErrInvalidInput, "webhook sink needs a url")
	}
	if c.ErrorTracking.Enabled && c.ErrorTracking.SentryDSN == "" {
		return errors.Wrap(errors.ErrInvalidInput, "error tracking needs a dsn")
	}
	if c.Ledger.RetentionDays <= 0 {
		return errors.Wrap(errors.ErrInvalidInput, "ledger retention must be positive")
	}
	return nil
}
