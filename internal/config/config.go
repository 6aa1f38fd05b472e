package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/artistlink/internal/logging"
)

// Matcher kinds.
const (
	MatcherLLM   = "llm"
	MatcherRules = "rules"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   logging.Config  `yaml:"logging"`
	Providers ProvidersConfig `yaml:"providers"`
	LLM       LLMConfig       `yaml:"llm"`
	Resolve   ResolveConfig   `yaml:"resolve"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int     `yaml:"port"`
	BasePath  string  `yaml:"base_path"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second per client IP
	RateBurst int     `yaml:"rate_burst"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path           string        `yaml:"path"`
	BackupDir      string        `yaml:"backup_dir"`      // defaults to <dir of path>/backups
	BackupInterval time.Duration `yaml:"backup_interval"` // 0 disables scheduled snapshots
	BackupKeep     int           `yaml:"backup_keep"`
}

// ProvidersConfig holds per-platform credentials.
type ProvidersConfig struct {
	Spotify SpotifyConfig `yaml:"spotify"`
	YouTube KeyConfig     `yaml:"youtube"`
	Deezer  ToggleConfig  `yaml:"deezer"`
	LastFM  KeyConfig     `yaml:"lastfm"`
}

// SpotifyConfig holds the client-credential pair.
type SpotifyConfig struct {
	Enabled      *bool  `yaml:"enabled"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// KeyConfig holds a single API key.
type KeyConfig struct {
	Enabled *bool  `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
}

// ToggleConfig is for platforms that need no credentials.
type ToggleConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// LLMConfig configures the language-model matcher.
type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	Referer        string `yaml:"referer"`
	Title          string `yaml:"title"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RetryAttempts  uint   `yaml:"retry_attempts"`
}

// ResolveConfig tunes the cross-platform search.
type ResolveConfig struct {
	AdapterTimeout time.Duration `yaml:"adapter_timeout"`
	MatcherTimeout time.Duration `yaml:"matcher_timeout"`
	Matcher        string        `yaml:"matcher"`
	TokenMargin    time.Duration `yaml:"token_margin"`
}

// On reports whether a platform toggle is enabled. Unset means enabled.
func On(enabled *bool) bool {
	return enabled == nil || *enabled
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      8080,
			BasePath:  "/",
			RateLimit: 5,
			RateBurst: 10,
		},
		Database: DatabaseConfig{
			Path:       "/data/artistlink.db",
			BackupKeep: 7,
		},
		Logging: logging.DefaultConfig(),
		LLM: LLMConfig{
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			Model:          "google/gemini-2.5-flash",
			TimeoutSeconds: 60,
			RetryAttempts:  3,
		},
		Resolve: ResolveConfig{
			AdapterTimeout: 10 * time.Second,
			MatcherTimeout: 90 * time.Second,
			Matcher:        MatcherLLM,
			TokenMargin:    5 * time.Minute,
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	strs := map[string]*string{
		"AL_BASE_PATH":             &c.Server.BasePath,
		"AL_DB_PATH":               &c.Database.Path,
		"AL_BACKUP_DIR":            &c.Database.BackupDir,
		"AL_LOG_LEVEL":             &c.Logging.Level,
		"AL_LOG_FORMAT":            &c.Logging.Format,
		"AL_LOG_FILE":              &c.Logging.FilePath,
		"AL_SPOTIFY_CLIENT_ID":     &c.Providers.Spotify.ClientID,
		"AL_SPOTIFY_CLIENT_SECRET": &c.Providers.Spotify.ClientSecret,
		"AL_YOUTUBE_API_KEY":       &c.Providers.YouTube.APIKey,
		"AL_LASTFM_API_KEY":        &c.Providers.LastFM.APIKey,
		"AL_LLM_API_KEY":           &c.LLM.APIKey,
		"AL_LLM_BASE_URL":          &c.LLM.BaseURL,
		"AL_LLM_MODEL":             &c.LLM.Model,
		"AL_MATCHER":               &c.Resolve.Matcher,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("AL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AL_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("AL_LLM_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AL_LLM_TIMEOUT_SECONDS: %w", err)
		}
		c.LLM.TimeoutSeconds = secs
	}

	durations := map[string]*time.Duration{
		"AL_ADAPTER_TIMEOUT": &c.Resolve.AdapterTimeout,
		"AL_MATCHER_TIMEOUT": &c.Resolve.MatcherTimeout,
		"AL_TOKEN_MARGIN":    &c.Resolve.TokenMargin,
		"AL_BACKUP_INTERVAL": &c.Database.BackupInterval,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Resolve.AdapterTimeout <= 0 {
		return fmt.Errorf("resolve.adapter_timeout must be positive, got %s", c.Resolve.AdapterTimeout)
	}
	if c.Resolve.MatcherTimeout <= 0 {
		return fmt.Errorf("resolve.matcher_timeout must be positive, got %s", c.Resolve.MatcherTimeout)
	}
	if c.Resolve.TokenMargin < 0 {
		return fmt.Errorf("resolve.token_margin must not be negative, got %s", c.Resolve.TokenMargin)
	}
	switch c.Resolve.Matcher {
	case MatcherLLM, MatcherRules:
	default:
		return fmt.Errorf("resolve.matcher must be %q or %q, got %q", MatcherLLM, MatcherRules, c.Resolve.Matcher)
	}
	if c.Database.BackupInterval < 0 || c.Database.BackupKeep < 0 {
		return errors.New("database backup interval and keep must not be negative")
	}
	if c.Database.BackupDir == "" {
		c.Database.BackupDir = filepath.Join(filepath.Dir(c.Database.Path), "backups")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.New("server rate limit must not be negative")
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}
