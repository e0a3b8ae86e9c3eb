package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultCeilingBytes matches the Telegram bot API upload limit.
const DefaultCeilingBytes = 50 * 1024 * 1024

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Telegram   TelegramConfig  `yaml:"telegram"`
	Fetch      FetchConfig     `yaml:"fetch"`
	Providers  ProvidersConfig `yaml:"providers"`
	Strategies StrategyConfig  `yaml:"strategies"`
	Storage    StorageConfig   `yaml:"storage"`
	Worker     WorkerConfig    `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Enabled      bool          `yaml:"enabled" envconfig:"SERVER_ENABLED" default:"true"`
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"9847"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"5m"`
}

// TelegramConfig holds bot configuration. The bot is disabled when no token is set.
type TelegramConfig struct {
	BotToken       string        `yaml:"bot_token" envconfig:"BOT_TOKEN"`
	PollTimeout    int           `yaml:"poll_timeout" envconfig:"TELEGRAM_POLL_TIMEOUT" default:"60"`
	CaptionLimit   int           `yaml:"caption_limit" envconfig:"TELEGRAM_CAPTION_LIMIT" default:"1024"`
	MaxGroupSize   int           `yaml:"max_group_size" envconfig:"TELEGRAM_MAX_GROUP_SIZE" default:"10"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"TELEGRAM_REQUEST_TIMEOUT" default:"5m"`
	Debug          bool          `yaml:"debug" envconfig:"TELEGRAM_DEBUG" default:"false"`
}

// FetchConfig holds size-gated download configuration.
type FetchConfig struct {
	CeilingBytes    int64         `yaml:"ceiling_bytes" envconfig:"FETCH_CEILING_BYTES" default:"52428800"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout" envconfig:"FETCH_PROBE_TIMEOUT" default:"15s"`
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"FETCH_DOWNLOAD_TIMEOUT" default:"60s"`
	UserAgent       string        `yaml:"user_agent" envconfig:"FETCH_USER_AGENT" default:"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
}

// ProvidersConfig holds upstream endpoints for each resolver strategy.
type ProvidersConfig struct {
	TikTok      VersionedProviderConfig `yaml:"tiktok"`
	Instagram   VersionedProviderConfig `yaml:"instagram"`
	MusicalDown ScraperConfig           `yaml:"musicaldown"`
	X           SyndicationConfig       `yaml:"x"`
}

// VersionedProviderConfig describes a structured provider with a primary and
// a single fallback API version.
type VersionedProviderConfig struct {
	BaseURL   string        `yaml:"base_url" split_words:"true"`
	Primary   string        `yaml:"primary" split_words:"true"`
	Secondary string        `yaml:"secondary" split_words:"true"`
	// Order applies to providers that return several variants per item.
	Order     string        `yaml:"order" split_words:"true"`
	Timeout   time.Duration `yaml:"timeout" split_words:"true" default:"30s"`
}

// ScraperConfig describes an HTML mirror site.
type ScraperConfig struct {
	BaseURL        string        `yaml:"base_url" envconfig:"MUSICALDOWN_BASE_URL" default:"https://musicaldown.com"`
	Order          string        `yaml:"order" envconfig:"MUSICALDOWN_ORDER" default:"largest_first"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"MUSICALDOWN_TIMEOUT" default:"30s"`
	RequestsPerSec float64       `yaml:"requests_per_sec" envconfig:"MUSICALDOWN_RPS" default:"2"`
}

// SyndicationConfig describes the X/Twitter syndication endpoint.
type SyndicationConfig struct {
	BaseURL string        `yaml:"base_url" envconfig:"X_SYNDICATION_BASE_URL" default:"https://cdn.syndication.twimg.com"`
	Order   string        `yaml:"order" envconfig:"X_ORDER" default:"smallest_first"`
	Timeout time.Duration `yaml:"timeout" envconfig:"X_TIMEOUT" default:"30s"`
}

// StrategyConfig holds the fixed strategy order per platform.
type StrategyConfig struct {
	ShortVideo []string `yaml:"short_video" envconfig:"STRATEGIES_SHORT_VIDEO"`
	Gallery    []string `yaml:"gallery" envconfig:"STRATEGIES_GALLERY"`
}

// StorageConfig holds the user registry location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" envconfig:"DATABASE_PATH" default:"/data/mediagrab.db"`
}

// WorkerConfig holds request pool configuration.
type WorkerConfig struct {
	Count     int `yaml:"count" envconfig:"WORKER_COUNT" default:"4"`
	QueueSize int `yaml:"queue_size" envconfig:"WORKER_QUEUE_SIZE" default:"64"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills values that must stay overridable from the YAML file.
// envconfig would otherwise replace them with tag defaults.
func (c *Config) applyDefaults() {
	if len(c.Strategies.ShortVideo) == 0 {
		c.Strategies.ShortVideo = []string{"tiktok-provider", "musicaldown"}
	}
	if len(c.Strategies.Gallery) == 0 {
		c.Strategies.Gallery = []string{"instagram-provider", "x-syndication"}
	}
	if c.Providers.TikTok.Primary == "" {
		c.Providers.TikTok.Primary = "v3"
	}
	if c.Providers.TikTok.Secondary == "" {
		c.Providers.TikTok.Secondary = "v2"
	}
	if c.Providers.TikTok.Order == "" {
		c.Providers.TikTok.Order = "smallest_first"
	}
	if c.Providers.Instagram.Primary == "" {
		c.Providers.Instagram.Primary = "v1"
	}
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Fetch.CeilingBytes <= 0 {
		return fmt.Errorf("FETCH_CEILING_BYTES must be positive")
	}
	if c.Server.Enabled && c.Server.APIKey == "" {
		return fmt.Errorf("API_KEY is required when the HTTP server is enabled")
	}
	if !c.Server.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("nothing to run: enable the HTTP server or set BOT_TOKEN")
	}
	if len(c.Strategies.ShortVideo) == 0 && len(c.Strategies.Gallery) == 0 {
		return fmt.Errorf("at least one resolver strategy must be configured")
	}
	if c.Telegram.CaptionLimit <= 0 {
		return fmt.Errorf("TELEGRAM_CAPTION_LIMIT must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
