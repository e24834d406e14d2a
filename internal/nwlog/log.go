// Package nwlog wires the global zerolog logger used across the daemon,
// configured once from the loaded configuration file (spec.md §6).
package nwlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var Logger zerolog.Logger

func init() {
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config mirrors the `logging` block of the night-watch configuration
// file.
type Config struct {
	Level  Level
	JSON   bool
	Output io.Writer
}

// Init (re)configures the global logger. Call once at startup after the
// configuration file has been parsed.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.JSON {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagging every event with the
// originating subsystem (e.g. "scheduler", "controlapi").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithTask returns a child logger tagging every event with the task
// it concerns.
func WithTask(name string) zerolog.Logger {
	return Logger.With().Str("task", name).Logger()
}

// WithProvider returns a child logger tagging every event with the
// provider it concerns.
func WithProvider(name string) zerolog.Logger {
	return Logger.With().Str("provider", name).Logger()
}
