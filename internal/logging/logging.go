// Package logging builds the application's structured logger.
// Output goes to stderr and, when a file is configured, to a rotating log
// file via lumberjack.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration options.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string `yaml:"level" mapstructure:"level"`

	// JSON enables JSON output format. If false, text format is used.
	JSON bool `yaml:"json" mapstructure:"json"`

	// File is an optional log file path. It is rotated by size.
	File string `yaml:"file" mapstructure:"file"`

	// Component is an optional component name to add to all log entries.
	Component string `yaml:"-" mapstructure:"-"`

	// Quiet drops stderr output. Only the log file, if any, is written.
	Quiet bool `yaml:"-" mapstructure:"-"`
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// New creates a configured application logger.
// It standardizes common keys (e.g., "error" -> "err").
// The returned closer releases the log file, if any.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var writer io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.Quiet {
		writer = io.Discard
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, err
		}
		logFile := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50,   // megabytes
			MaxBackups: 3,    // number of old files to keep
			MaxAge:     14,   // days
			Compress:   true, // compress rotated files
		}
		writer = io.MultiWriter(writer, logFile)
		closer = logFile
	}

	logger := slog.New(newHandler(writer, level, cfg.JSON))
	if cfg.Component != "" {
		logger = logger.With("component", cfg.Component)
	}
	return logger, closer, nil
}

// NewWriter creates a logger writing to w.
func NewWriter(w io.Writer, level slog.Level, json bool) *slog.Logger {
	return slog.New(newHandler(w, level, json))
}

func newHandler(w io.Writer, level slog.Level, json bool) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	if json {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
