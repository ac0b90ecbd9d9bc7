// Package cli implements the reportflow command-line interface.
//
// This package provides commands for laying out health report payloads,
// validating and rendering page layouts, and managing stored reports and
// their exports. The CLI is built using cobra and supports verbose logging
// via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - layout: Run the pipeline on a payload and write the result
//   - validate: Check a layout file for overlaps and out-of-bounds nodes
//   - render: Generate SVG, PDF, PNG or JSON from an accepted layout
//   - inspect: Browse pages and issues of a result interactively
//   - report: Create, list, show, regenerate and export stored reports
//   - batch: Export many reports into one zip archive
//   - serve: Run the HTTP API
//   - cache: Manage the layout and artifact cache
//
// # Configuration
//
// Store, cache and layout defaults come from a TOML file (see --config) and
// REPORTFLOW_* environment variables. Command-line flags win over both.
//
// # Logging
//
// Logs go to stderr. --verbose (-v) enables debug output and
// REPORTFLOW_LOG_FORMAT selects text (default), json or logfmt lines for
// log collectors. The logger travels to commands through context.Context.
package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// logFormatEnv selects the log line format.
const logFormatEnv = "REPORTFLOW_LOG_FORMAT"

// newLogger returns a logger writing to w at level, timestamped as
// 15:04:05.00. format is text, json or logfmt; anything else means text.
func newLogger(w io.Writer, level log.Level, format string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Formatter:       logFormatter(format),
	})
}

func logFormatter(format string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

func logFormatFromEnv() string { return os.Getenv(logFormatEnv) }

// stopwatch logs how long a command step took, as a structured "took" field
// so json and logfmt output stay machine-readable.
type stopwatch struct {
	logger *log.Logger
	start  time.Time
}

func startStopwatch(l *log.Logger) stopwatch {
	return stopwatch{logger: l, start: time.Now()}
}

func (s stopwatch) elapsed() time.Duration {
	return time.Since(s.start).Round(time.Millisecond)
}

// done logs msg at info level, e.g. `Laid out report pages=3 took=12ms`.
func (s stopwatch) done(msg string, keyvals ...any) {
	s.logger.Info(msg, append(keyvals, "took", s.elapsed())...)
}

type ctxKey struct{}

// withLogger attaches l to ctx for loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// loggerFromContext returns the logger attached by the root command, or
// log.Default when a command runs outside it (tests, completion).
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
