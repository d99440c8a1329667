// Package config loads the bot configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"flag"
	"fmt"
	"time"

	pkgRetry "github.com/InternetOfUs/app-telegram-bot-sub000/internal/pkg/retry"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	// Callback server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Telegram bot configuration
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// WeNet platform configuration
	WeNetCfg WeNetConfig `envPrefix:"WENET_"`

	// Dialogue configuration
	BotCfg BotConfig `envPrefix:"BOT_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// TelegramConfig holds Telegram transport configuration.
type TelegramConfig struct {
	BotToken           string `env:"BOT_TOKEN,notEmpty"`
	UpdateTimeout      int    `env:"UPDATE_TIMEOUT" envDefault:"30"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST" envDefault:"5"`
	ShutdownTimeout    int    `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
}

// WeNetConfig holds the service API endpoints and the app's OAuth
// credentials.
type WeNetConfig struct {
	BaseURL      string `env:"SERVICE_URL,notEmpty"`
	TokenURL     string `env:"TOKEN_URL,notEmpty"`
	ClientID     string `env:"CLIENT_ID,notEmpty"`
	ClientSecret string `env:"CLIENT_SECRET,notEmpty"`
	APIKey       string `env:"API_KEY"`

	RequestTimeout time.Duration        `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// BotConfig holds the dialogue-level settings.
type BotConfig struct {
	AppID       string `env:"APP_ID,notEmpty"`
	CommunityID string `env:"COMMUNITY_ID,notEmpty"`
	TaskTypeID  string `env:"TASK_TYPE_ID,notEmpty"`
	LoginURL    string `env:"LOGIN_URL,notEmpty"`

	LocalesDir    string `env:"LOCALES_DIR" envDefault:"locales"`
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en"`

	PayloadTTL      time.Duration `env:"PAYLOAD_TTL" envDefault:"1h"`
	AnsweredFlagTTL time.Duration `env:"ANSWERED_FLAG_TTL" envDefault:"720h"`
	ReminderWindow  time.Duration `env:"REMINDER_WINDOW" envDefault:"1h"`
	JobInterval     time.Duration `env:"JOB_INTERVAL" envDefault:"5m"`
}

// LoadConfig parses the environment into a validated Config.
func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Missing env files are fine: containerized environments set variables
	// externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		return fmt.Errorf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute)
	}
	if cfg.TelegramCfg.ShutdownTimeout < 1 || cfg.TelegramCfg.ShutdownTimeout > 300 {
		return fmt.Errorf("TELEGRAM_SHUTDOWN_TIMEOUT must be between 1 and 300 seconds, got %d", cfg.TelegramCfg.ShutdownTimeout)
	}
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		return fmt.Errorf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns)
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.BotCfg.PayloadTTL <= 0 {
		return fmt.Errorf("BOT_PAYLOAD_TTL must be positive, got %s", cfg.BotCfg.PayloadTTL)
	}
	if cfg.BotCfg.ReminderWindow <= 0 {
		return fmt.Errorf("BOT_REMINDER_WINDOW must be positive, got %s", cfg.BotCfg.ReminderWindow)
	}
	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
