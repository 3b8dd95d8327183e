package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Exchange  ExchangeConfig  `envconfig:"EXCHANGE"`
	Engine    EngineConfig    `envconfig:"ENGINE"`
	Sentiment SentimentConfig `envconfig:"SENTIMENT"`
	NLP       NLPConfig       `envconfig:"NLP"`
	Web       WebConfig       `envconfig:"WEB"`
	Telegram  TelegramConfig  `envconfig:"TELEGRAM"`
	Logging   LoggingConfig   `envconfig:"LOGGING"`
}

// ExchangeConfig represents Binance futures connection parameters
type ExchangeConfig struct {
	APIKey         string        `envconfig:"BINANCE_API_KEY" required:"false"`
	Secret         string        `envconfig:"BINANCE_API_SECRET" required:"false"`
	Testnet        bool          `envconfig:"BINANCE_TESTNET" default:"true"`
	Paper          bool          `envconfig:"EXCHANGE_PAPER" default:"false"`
	RequestTimeout time.Duration `envconfig:"EXCHANGE_REQUEST_TIMEOUT" default:"15s"`
	RequestsPerSec float64       `envconfig:"EXCHANGE_REQUESTS_PER_SEC" default:"8"`
	RequestBurst   int           `envconfig:"EXCHANGE_REQUEST_BURST" default:"16"`
}

// EngineConfig represents strategy engine tuning parameters
type EngineConfig struct {
	GridPollInterval time.Duration `envconfig:"ENGINE_GRID_POLL_INTERVAL" default:"5s"`
	MaxRetries       int           `envconfig:"ENGINE_MAX_RETRIES" default:"3"`
	RetryBackoff     time.Duration `envconfig:"ENGINE_RETRY_BACKOFF" default:"2s"`
	MaxSkips         int           `envconfig:"ENGINE_MAX_SKIPS" default:"10"`
	RSIPeriod        int           `envconfig:"ENGINE_RSI_PERIOD" default:"14"`
	RSIInterval      string        `envconfig:"ENGINE_RSI_INTERVAL" default:"1h"`
}

// SentimentConfig represents the background sentiment worker
type SentimentConfig struct {
	Enabled         bool          `envconfig:"SENTIMENT_ENABLED" default:"true"`
	PollInterval    time.Duration `envconfig:"SENTIMENT_POLL_INTERVAL" default:"15m"`
	HistoryWindow   time.Duration `envconfig:"SENTIMENT_HISTORY_WINDOW" default:"24h"`
	CoinDeskEnabled bool          `envconfig:"SENTIMENT_COINDESK_ENABLED" default:"true"`
	RedditEnabled   bool          `envconfig:"SENTIMENT_REDDIT_ENABLED" default:"true"`
	Subreddits      []string      `envconfig:"SENTIMENT_SUBREDDITS" default:"CryptoCurrency,Bitcoin,ethereum"`
	Keywords        []string      `envconfig:"SENTIMENT_KEYWORDS" default:"bitcoin,btc,crypto,cryptocurrency,ethereum,eth,solana,sol"`
}

// NLPConfig represents the LLM command parser
type NLPConfig struct {
	Enabled bool    `envconfig:"NLP_ENABLED" default:"false"`
	APIKey  string  `envconfig:"NLP_API_KEY" required:"false"`
	BaseURL string  `envconfig:"NLP_BASE_URL" required:"false"`
	Model   string  `envconfig:"NLP_MODEL" default:"gpt-4o-mini"`
	MinConf float64 `envconfig:"NLP_MIN_CONFIDENCE" default:"0.5"`
}

// WebConfig represents the dashboard HTTP server
type WebConfig struct {
	Enabled bool   `envconfig:"WEB_ENABLED" default:"true"`
	Port    string `envconfig:"WEB_PORT" default:"8080"`
}

// TelegramConfig represents Telegram bot configuration
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" default:""`
}

// Load reads configuration from .env (if present) and environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if !c.Exchange.Paper && (c.Exchange.APIKey == "" || c.Exchange.Secret == "") {
		return fmt.Errorf("missing API credentials: set BINANCE_API_KEY and BINANCE_API_SECRET or enable EXCHANGE_PAPER")
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.Engine.MaxSkips < 1 {
		return fmt.Errorf("max_skips must be at least 1")
	}
	if c.Engine.GridPollInterval <= 0 {
		return fmt.Errorf("grid_poll_interval must be positive")
	}
	if c.Engine.RSIPeriod < 2 {
		return fmt.Errorf("rsi_period must be at least 2")
	}
	if c.NLP.Enabled && c.NLP.APIKey == "" {
		return fmt.Errorf("NLP parser enabled but NLP_API_KEY is empty")
	}
	return nil
}
