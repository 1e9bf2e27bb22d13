package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	App struct {
		Env      string `yaml:"env" envconfig:"ENV"`
		LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
		Timezone string `yaml:"timezone" envconfig:"TIMEZONE"`
	} `yaml:"app" envconfig:"APP"`
	Database struct {
		Driver string `yaml:"driver" envconfig:"DRIVER"`
		URL    string `yaml:"url" envconfig:"URL"`
	} `yaml:"database" envconfig:"DATABASE"`
	Redis struct {
		Addr     string `yaml:"addr" envconfig:"ADDR"`
		Password string `yaml:"password" envconfig:"PASSWORD"`
		DB       int    `yaml:"db" envconfig:"DB"`
	} `yaml:"redis" envconfig:"REDIS"`
	Settrade struct {
		BaseURL   string        `yaml:"base_url" envconfig:"BASE_URL"`
		AppID     string        `yaml:"app_id" envconfig:"APP_ID"`
		AppSecret string        `yaml:"app_secret" envconfig:"APP_SECRET"`
		BrokerID  string        `yaml:"broker_id" envconfig:"BROKER_ID"`
		Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	} `yaml:"settrade" envconfig:"SETTRADE"`
	TwelveData struct {
		BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL"`
		APIKey            string        `yaml:"api_key" envconfig:"API_KEY"`
		RequestsPerMinute int           `yaml:"requests_per_minute" envconfig:"RPM"`
		Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	} `yaml:"twelvedata" envconfig:"TWELVEDATA"`
	Finnhub struct {
		BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL"`
		APIKey            string        `yaml:"api_key" envconfig:"API_KEY"`
		RequestsPerMinute int           `yaml:"requests_per_minute" envconfig:"RPM"`
		Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	} `yaml:"finnhub" envconfig:"FINNHUB"`
	AI struct {
		GeminiAPIKey      string        `yaml:"gemini_api_key" envconfig:"GEMINI_API_KEY"`
		Model             string        `yaml:"model" envconfig:"GEMINI_MODEL_NAME"`
		Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
		RequestsPerMinute int           `yaml:"requests_per_minute" envconfig:"RPM"`
	} `yaml:"ai" envconfig:"AI"`
	Batch struct {
		DomesticDelay   time.Duration `yaml:"domestic_delay" envconfig:"DOMESTIC_DELAY"`
		GlobalDelay     time.Duration `yaml:"global_delay" envconfig:"GLOBAL_DELAY"`
		PolitenessPause time.Duration `yaml:"politeness_pause" envconfig:"POLITENESS_PAUSE"`
		Workers         int           `yaml:"workers" envconfig:"WORKERS"`
		Parallel        bool          `yaml:"parallel" envconfig:"PARALLEL"`
	} `yaml:"batch" envconfig:"BATCH"`
	Cache struct {
		PruneMaxAge time.Duration `yaml:"prune_max_age" envconfig:"PRUNE_MAX_AGE"`
	} `yaml:"cache" envconfig:"CACHE"`
	Schedule struct {
		CheckCron string `yaml:"check_cron" envconfig:"CHECK_CRON"`
		PruneCron string `yaml:"prune_cron" envconfig:"PRUNE_CRON"`
	} `yaml:"schedule" envconfig:"SCHEDULE"`
	Cooldown struct {
		Report time.Duration `yaml:"report" envconfig:"REPORT"`
	} `yaml:"cooldown" envconfig:"COOLDOWN"`
	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"CHAT_ID"`
	} `yaml:"telegram" envconfig:"TELEGRAM"`
	HTTP struct {
		Addr       string `yaml:"addr" envconfig:"ADDR"`
		CronSecret string `yaml:"cron_secret" envconfig:"CRON_SECRET"`
	} `yaml:"http" envconfig:"HTTP"`
	Proxy string `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then fills defaults.
func Load(path string) (*Config, error) {
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

	// Missing .env is fine
	_ = godotenv.Load()

	// Only variables that are set override the file
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "Asia/Bangkok"
	}
	if c.Database.URL == "" {
		c.Database.URL = "data/stock_sentinel.db"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DetectDriver(c.Database.URL)
	}
	if c.Settrade.BaseURL == "" {
		c.Settrade.BaseURL = "https://open-api.settrade.com"
	}
	if c.Settrade.Timeout == 0 {
		c.Settrade.Timeout = 8 * time.Second
	}
	if c.TwelveData.BaseURL == "" {
		c.TwelveData.BaseURL = "https://api.twelvedata.com"
	}
	if c.TwelveData.RequestsPerMinute == 0 {
		c.TwelveData.RequestsPerMinute = 8
	}
	if c.TwelveData.Timeout == 0 {
		c.TwelveData.Timeout = 8 * time.Second
	}
	if c.Finnhub.BaseURL == "" {
		c.Finnhub.BaseURL = "https://finnhub.io/api/v1"
	}
	if c.Finnhub.RequestsPerMinute == 0 {
		c.Finnhub.RequestsPerMinute = 60
	}
	if c.Finnhub.Timeout == 0 {
		c.Finnhub.Timeout = 3 * time.Second
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 30 * time.Second
	}
	if c.AI.RequestsPerMinute == 0 {
		c.AI.RequestsPerMinute = 15
	}
	if c.Batch.DomesticDelay == 0 {
		c.Batch.DomesticDelay = 1 * time.Second
	}
	if c.Batch.GlobalDelay == 0 {
		c.Batch.GlobalDelay = 15 * time.Second
	}
	if c.Batch.PolitenessPause == 0 {
		c.Batch.PolitenessPause = 1 * time.Second
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = 4
	}
	if c.Cache.PruneMaxAge == 0 {
		c.Cache.PruneMaxAge = 90 * 24 * time.Hour
	}
	if c.Schedule.CheckCron == "" {
		c.Schedule.CheckCron = "0 0 * * * *"
	}
	if c.Schedule.PruneCron == "" {
		c.Schedule.PruneCron = "0 30 3 * * *"
	}
	if c.Cooldown.Report == 0 {
		c.Cooldown.Report = 30 * time.Second
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}

// DetectDriver picks the SQL driver from the DSN shape.
// Both postgres:// and postgresql:// URLs select postgres.
func DetectDriver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

// Validate checks that settings are usable.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be positive")
	}
	if c.Batch.DomesticDelay < 0 || c.Batch.GlobalDelay < 0 {
		return fmt.Errorf("batch delays must not be negative")
	}
	if c.Cache.PruneMaxAge <= 0 {
		return fmt.Errorf("cache.prune_max_age must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// ValidateServe additionally checks what the long-running service needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}
