package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the process logger. Output is JSON when configured,
// human-readable text otherwise; debug records are suppressed in production.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: slog.LevelDebug}
	if cfg.IsProduction() {
		opts.Level = slog.LevelInfo
	}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
