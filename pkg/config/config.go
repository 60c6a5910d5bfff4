// Package config loads CLI settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "CDMCHECK_"

// Log formats accepted by CDMCHECK_LOG_FORMAT.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds CLI settings. Command-line flags override these values.
type Config struct {
	RulesPath   string     `env:"RULES"`
	OutDir      string     `env:"OUT" envDefault:"out"`
	LedgerPath  string     `env:"LEDGER"`
	MetricsFile string     `env:"METRICS_FILE"`
	TraceFile   string     `env:"TRACE_FILE"`
	Strict      bool       `env:"STRICT"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"WARN"`
	LogFormat   string     `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads CDMCHECK_* variables, applying defaults for unset ones.
func Load() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.LogFormat != LogFormatText && cfg.LogFormat != LogFormatJSON {
		return nil, fmt.Errorf("parse env: %sLOG_FORMAT must be %q or %q, got %q",
			EnvPrefix, LogFormatText, LogFormatJSON, cfg.LogFormat)
	}
	return &cfg, nil
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
