package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Enabled: true, APIKey: "test-api-key"},
		Telegram: TelegramConfig{CaptionLimit: 1024},
		Fetch:    FetchConfig{CeilingBytes: DefaultCeilingBytes},
		Strategies: StrategyConfig{
			ShortVideo: []string{"tiktok-provider"},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing API key with server enabled",
			mutate:  func(c *Config) { c.Server.APIKey = "" },
			wantErr: "API_KEY",
		},
		{
			name: "bot only needs no API key",
			mutate: func(c *Config) {
				c.Server.Enabled = false
				c.Server.APIKey = ""
				c.Telegram.BotToken = "123:abc"
			},
		},
		{
			name: "nothing enabled",
			mutate: func(c *Config) {
				c.Server.Enabled = false
			},
			wantErr: "nothing to run",
		},
		{
			name:    "zero ceiling",
			mutate:  func(c *Config) { c.Fetch.CeilingBytes = 0 },
			wantErr: "FETCH_CEILING_BYTES",
		},
		{
			name:    "no strategies",
			mutate:  func(c *Config) { c.Strategies = StrategyConfig{} },
			wantErr: "strategy",
		},
		{
			name:    "zero caption limit",
			mutate:  func(c *Config) { c.Telegram.CaptionLimit = 0 },
			wantErr: "TELEGRAM_CAPTION_LIMIT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() should pass, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() should fail with %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{
			name: "default",
			cfg:  ServerConfig{Host: "0.0.0.0", Port: 9847},
			want: "0.0.0.0:9847",
		},
		{
			name: "localhost",
			cfg:  ServerConfig{Host: "localhost", Port: 8080},
			want: "localhost:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Address(); got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_KEY", "test-api-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Fetch.CeilingBytes != DefaultCeilingBytes {
		t.Errorf("CeilingBytes = %d, want %d", cfg.Fetch.CeilingBytes, DefaultCeilingBytes)
	}
	if cfg.Fetch.ProbeTimeout != 15*time.Second {
		t.Errorf("ProbeTimeout = %v, want 15s", cfg.Fetch.ProbeTimeout)
	}
	if cfg.Fetch.DownloadTimeout != 60*time.Second {
		t.Errorf("DownloadTimeout = %v, want 60s", cfg.Fetch.DownloadTimeout)
	}
	if cfg.Server.Port != 9847 {
		t.Errorf("Port = %d, want 9847", cfg.Server.Port)
	}
	if cfg.Telegram.CaptionLimit != 1024 {
		t.Errorf("CaptionLimit = %d, want 1024", cfg.Telegram.CaptionLimit)
	}
	if got := strings.Join(cfg.Strategies.ShortVideo, ","); got != "tiktok-provider,musicaldown" {
		t.Errorf("ShortVideo = %q", got)
	}
	if got := strings.Join(cfg.Strategies.Gallery, ","); got != "instagram-provider,x-syndication" {
		t.Errorf("Gallery = %q", got)
	}
	if cfg.Providers.TikTok.Primary != "v3" || cfg.Providers.TikTok.Secondary != "v2" {
		t.Errorf("TikTok versions = %q/%q, want v3/v2", cfg.Providers.TikTok.Primary, cfg.Providers.TikTok.Secondary)
	}
	if cfg.Providers.MusicalDown.Order != "largest_first" {
		t.Errorf("MusicalDown order = %q, want largest_first", cfg.Providers.MusicalDown.Order)
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Fields with a default tag are always set by envconfig, so the YAML
	// here only carries fields without one.
	yamlContent := `
server:
  api_key: "yaml-api-key"
providers:
  tiktok:
    base_url: "https://tiktok-provider.example"
    order: "largest_first"
strategies:
  short_video: ["musicaldown"]
  gallery: ["x-syndication"]
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.APIKey != "yaml-api-key" {
		t.Errorf("APIKey = %q, want %q", cfg.Server.APIKey, "yaml-api-key")
	}
	if cfg.Providers.TikTok.BaseURL != "https://tiktok-provider.example" {
		t.Errorf("TikTok BaseURL = %q", cfg.Providers.TikTok.BaseURL)
	}
	if cfg.Providers.TikTok.Order != "largest_first" {
		t.Errorf("TikTok Order = %q, want largest_first", cfg.Providers.TikTok.Order)
	}
	if len(cfg.Strategies.ShortVideo) != 1 || cfg.Strategies.ShortVideo[0] != "musicaldown" {
		t.Errorf("ShortVideo = %v, want [musicaldown]", cfg.Strategies.ShortVideo)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  api_key: "yaml-api-key"
strategies:
  short_video: ["tiktok-provider"]
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("API_KEY", "env-api-key")
	t.Setenv("STRATEGIES_SHORT_VIDEO", "musicaldown,tiktok-provider")
	t.Setenv("FETCH_CEILING_BYTES", "1048576")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.APIKey != "env-api-key" {
		t.Errorf("APIKey should be from env, got %q", cfg.Server.APIKey)
	}
	if got := strings.Join(cfg.Strategies.ShortVideo, ","); got != "musicaldown,tiktok-provider" {
		t.Errorf("ShortVideo = %q, want musicaldown,tiktok-provider", got)
	}
	if cfg.Fetch.CeilingBytes != 1048576 {
		t.Errorf("CeilingBytes = %d, want 1048576", cfg.Fetch.CeilingBytes)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
server:
  host: "localhost
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load should fail for invalid YAML")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load should fail for nonexistent file")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("BOT_TOKEN", "")

	_, err := Load("")
	if err == nil {
		t.Error("Load should fail validation without required values")
	}
}
