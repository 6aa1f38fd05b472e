package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sydlexius/artistlink/internal/config"
	"github.com/sydlexius/artistlink/internal/llm"
	"github.com/sydlexius/artistlink/internal/logging"
	"github.com/sydlexius/artistlink/internal/match"
	"github.com/sydlexius/artistlink/internal/metrics"
	"github.com/sydlexius/artistlink/internal/provider"
	"github.com/sydlexius/artistlink/internal/provider/deezer"
	"github.com/sydlexius/artistlink/internal/provider/lastfm"
	"github.com/sydlexius/artistlink/internal/provider/spotify"
	"github.com/sydlexius/artistlink/internal/provider/youtube"
	"github.com/sydlexius/artistlink/internal/resolve"
)

const defaultConfigPath = "/data/config.yaml"

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if p := strings.TrimSpace(*c.configFlag); p != "" {
			return p
		}
	}
	if p := os.Getenv("AL_CONFIG_PATH"); p != "" {
		return p
	}
	return defaultConfigPath
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(c.configPath())
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// logger builds the logging manager for a command with console output on
// out.
func (c *commandContext) logger(out io.Writer) (*logging.Manager, *slog.Logger) {
	cfg, _ := c.ensureConfig()
	if cfg == nil {
		cfg = config.Default()
	}
	return logging.NewManager(cfg.Logging, logging.WithOutput(out))
}

// service wires the adapters and matcher named in the configuration into
// a resolve.Service.
func (c *commandContext) service(logger *slog.Logger, m *metrics.Manager) (*resolve.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	registry := buildRegistry(cfg, logger)
	if len(registry.All()) == 0 {
		return nil, fmt.Errorf("no platform is enabled; check the providers section of %s", c.configPath())
	}
	return resolve.NewService(registry, buildMatcher(cfg, logger), logger,
		resolve.WithAdapterTimeout(cfg.Resolve.AdapterTimeout),
		resolve.WithMatcherTimeout(cfg.Resolve.MatcherTimeout),
		resolve.WithMetrics(m),
	), nil
}

// buildRegistry registers every enabled platform. Platforms missing their
// credentials are skipped with a warning.
func buildRegistry(cfg *config.Config, logger *slog.Logger) *provider.Registry {
	limiters := provider.NewRateLimiterMap()
	registry := provider.NewRegistry()
	p := cfg.Providers

	skip := func(name provider.ProviderName, reason string) {
		logger.Warn("platform disabled", slog.String("platform", string(name)), slog.String("reason", reason))
	}

	switch {
	case !config.On(p.Spotify.Enabled):
	case p.Spotify.ClientID == "" || p.Spotify.ClientSecret == "":
		skip(provider.NameSpotify, "client credentials not configured")
	default:
		tokens := spotify.NewTokenCache(p.Spotify.ClientID, p.Spotify.ClientSecret, cfg.Resolve.TokenMargin)
		registry.Register(spotify.New(limiters, tokens, logger))
	}

	switch {
	case !config.On(p.YouTube.Enabled):
	case p.YouTube.APIKey == "":
		skip(provider.NameYouTube, "api key not configured")
	default:
		registry.Register(youtube.New(limiters, p.YouTube.APIKey, logger))
	}

	if config.On(p.Deezer.Enabled) {
		registry.Register(deezer.New(limiters, logger))
	}

	switch {
	case !config.On(p.LastFM.Enabled):
	case p.LastFM.APIKey == "":
		skip(provider.NameLastFM, "api key not configured")
	default:
		registry.Register(lastfm.New(limiters, p.LastFM.APIKey, logger))
	}

	return registry
}

// buildMatcher returns the configured matcher. The language-model matcher
// falls back to the rule matcher when no API key is set.
func buildMatcher(cfg *config.Config, logger *slog.Logger) match.Matcher {
	if cfg.Resolve.Matcher == config.MatcherRules {
		return match.NewRuleMatcher()
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("llm api key not configured, using rule matcher")
		return match.NewRuleMatcher()
	}
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	},
		llm.WithRetryAttempts(cfg.LLM.RetryAttempts),
		llm.WithLogger(logger),
	)
	return match.NewLLMMatcher(client, logger)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}
