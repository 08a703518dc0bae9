// internal/logging/logging.go - Structured logger construction
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/valpere/crimegrid/internal"
)

// Options selects the level and handler of a logger
type Options struct {
	Level   string
	Format  string
	Verbose bool
}

// ParseLevel maps a level name to a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("invalid log level %q", level), nil)
	}
}

// New builds a logger writing to w. Verbose forces the debug level.
func New(opts Options, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		lvl = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		h = slog.NewJSONHandler(w, handlerOpts)
	case "", "text":
		h = slog.NewTextHandler(w, handlerOpts)
	default:
		return nil, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("invalid log format %q", opts.Format), nil)
	}
	return slog.New(h), nil
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
