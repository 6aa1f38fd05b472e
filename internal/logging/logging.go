// Package logging builds the process-wide slog logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging configuration.
type Config struct {
	Level          string `yaml:"level" json:"level"`
	Format         string `yaml:"format" json:"format"`
	FilePath       string `yaml:"file_path" json:"file_path,omitempty"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb" json:"file_max_size_mb,omitempty"`
	FileMaxFiles   int    `yaml:"file_max_files" json:"file_max_files,omitempty"`
	FileMaxAgeDays int    `yaml:"file_max_age_days" json:"file_max_age_days,omitempty"`
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		Format:         "json",
		FileMaxSizeMB:  100,
		FileMaxFiles:   3,
		FileMaxAgeDays: 30,
	}
}

// Validate reports the first unrecognized field value.
func (c Config) Validate() error {
	if !ValidLevel(c.Level) {
		return fmt.Errorf("invalid log level %q", c.Level)
	}
	if !ValidFormat(c.Format) {
		return fmt.Errorf("invalid log format %q", c.Format)
	}
	return nil
}

func (c Config) String() string {
	s := fmt.Sprintf("level=%s format=%s", c.Level, c.Format)
	if c.FilePath != "" {
		s += fmt.Sprintf(" file=%s max_size=%dMB max_files=%d max_age=%dd",
			c.FilePath, c.FileMaxSizeMB, c.FileMaxFiles, c.FileMaxAgeDays)
	}
	return s
}

// swapHandler delegates to an inner handler that can be replaced while
// loggers derived from it stay valid.
type swapHandler struct {
	inner atomic.Pointer[slog.Handler]
}

func newSwapHandler(h slog.Handler) *swapHandler {
	s := &swapHandler{}
	s.inner.Store(&h)
	return s
}

func (s *swapHandler) swap(h slog.Handler) { s.inner.Store(&h) }

func (s *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*s.inner.Load()).Enabled(ctx, level)
}

func (s *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return (*s.inner.Load()).Handle(ctx, r)
}

func (s *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newSwapHandler((*s.inner.Load()).WithAttrs(attrs))
}

func (s *swapHandler) WithGroup(name string) slog.Handler {
	return newSwapHandler((*s.inner.Load()).WithGroup(name))
}

// Manager owns the logger lifecycle. The level changes instantly through a
// LevelVar; format or file changes rebuild the handler.
type Manager struct {
	mu       sync.Mutex
	levelVar *slog.LevelVar
	handler  *swapHandler
	config   Config
	out      io.Writer
	closer   io.Closer // rotating file, if any
}

// Option configures a Manager.
type Option func(*Manager)

// WithOutput replaces stdout as the console destination.
func WithOutput(w io.Writer) Option {
	return func(m *Manager) {
		if w != nil {
			m.out = w
		}
	}
}

// NewManager creates a Manager and the logger it controls.
func NewManager(cfg Config, opts ...Option) (*Manager, *slog.Logger) {
	m := &Manager{
		levelVar: &slog.LevelVar{},
		config:   cfg,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.levelVar.Set(parseLevel(cfg.Level))

	writer, closer := m.buildWriter(cfg)
	m.closer = closer
	m.handler = newSwapHandler(buildHandler(writer, m.levelVar, cfg.Format))
	return m, slog.New(m.handler)
}

// Reconfigure applies cfg at runtime.
func (m *Manager) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.levelVar.Set(parseLevel(cfg.Level))

	rebuild := cfg.Format != m.config.Format ||
		cfg.FilePath != m.config.FilePath ||
		cfg.FileMaxSizeMB != m.config.FileMaxSizeMB ||
		cfg.FileMaxFiles != m.config.FileMaxFiles ||
		cfg.FileMaxAgeDays != m.config.FileMaxAgeDays
	if rebuild {
		if m.closer != nil {
			m.closer.Close() //nolint:errcheck
			m.closer = nil
		}
		writer, closer := m.buildWriter(cfg)
		m.handler.swap(buildHandler(writer, m.levelVar, cfg.Format))
		m.closer = closer
	}
	m.config = cfg
}

// SetLevel changes only the level.
func (m *Manager) SetLevel(level string) error {
	if !ValidLevel(level) {
		return fmt.Errorf("invalid log level %q", level)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levelVar.Set(parseLevel(level))
	m.config.Level = level
	return nil
}

// Config returns the current configuration.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Close releases the log file, if any. It is safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closer == nil {
		return nil
	}
	err := m.closer.Close()
	m.closer = nil
	return err
}

func (m *Manager) buildWriter(cfg Config) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return m.out, nil
	}
	def := DefaultConfig()
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    positiveOr(cfg.FileMaxSizeMB, def.FileMaxSizeMB),
		MaxBackups: positiveOr(cfg.FileMaxFiles, def.FileMaxFiles),
		MaxAge:     positiveOr(cfg.FileMaxAgeDays, def.FileMaxAgeDays),
	}
	return io.MultiWriter(m.out, lj), lj
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func buildHandler(w io.Writer, leveler slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: leveler, ReplaceAttr: Redact}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// secretKeys are attribute keys and query parameters whose values never
// reach a log line.
var secretKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"key":           true,
	"client_secret": true,
	"secret":        true,
	"token":         true,
	"access_token":  true,
	"authorization": true,
	"password":      true,
}

const redacted = "[REDACTED]"

// Redact is a slog ReplaceAttr hook that masks secret attributes and the
// secret query parameters of URL-valued attributes.
func Redact(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redacted)
	}
	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); strings.Contains(s, "?") {
			return slog.String(a.Key, RedactURL(s))
		}
	}
	return a
}

// RedactURL masks the values of secret query parameters in raw. Strings
// that do not parse as URLs are returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for k := range q {
		if secretKeys[strings.ToLower(k)] {
			q.Set(k, redacted)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s is a recognized level name.
func ValidLevel(s string) bool {
	switch s {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// ValidFormat reports whether s is a recognized output format.
func ValidFormat(s string) bool {
	return s == "text" || s == "json"
}
