// Package logging configures structured logging with zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"

	// LevelOff disables logging.
	LevelOff LogLevel = "off"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration. Output is pretty
// when stderr is a terminal.
func DefaultConfig() Config {
	return Config{
		Level:  LevelWarn,
		Pretty: IsTerminal(os.Stderr),
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel validates a level name (case-insensitive; "warning" is accepted).
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "off", "none", "disabled":
		return LevelOff, nil
	default:
		return "", fmt.Errorf("unknown log level %q (want debug, info, warn, error or off)", s)
	}
}

// parseLevel converts LogLevel to zerolog.Level; unknown levels map to Info.
func parseLevel(level LogLevel) zerolog.Level {
	l, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelOff:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Log Level Guidelines:
//
// Debug: per-request detail
//   - Request URL and X-Request-ID
//   - Individual request failures (they are aggregated later)
//   - Dispatch stopped by cancellation
//   - Token store invalidation
//
// Info: batch-level events
//   - Paged fetch start (page size, total items when known)
//   - Fetch progress every N completions
//   - Fetch complete (pages/requests, failures, duration)
//
// Warn: degraded but continuing
//   - Failed listing page (planning stops after the wave)
//   - Rate limit throttling and waits
//   - Retry attempts exhausted
//   - Token store unavailable (falls back to the token endpoint)
//
// Error: the CLI reports a failed command
//
// Context Fields:
//   - component: emitting package (aiod, fetch-executor, pagination, ...)
//   - resource: catalogue resource type
//   - index / ref / offset: position of a request in its batch
//   - error_class: client, server, rate_limit, network
//   - duration: batch or request duration
