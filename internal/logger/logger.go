// Package logger builds the access and error loggers. Both are logr loggers
// backed by slog text handlers; debug output is logged at V(1).
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-logr/logr"
)

// Debug is the verbosity level used for debug messages.
const Debug = 1

const maxValueLength = 100

// New returns a logger writing text records to w. With debug set, V(1)
// messages are written too.
func New(w io.Writer, debug bool) logr.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source file information if in debug mode
		AddSource: debug,
	}
	return logr.FromSlogHandler(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() logr.Logger {
	return logr.Discard()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Open resolves a log destination: "stdout", "stderr", "" (discard) or a file
// path, which is appended to. Closing the result never closes stdout or stderr.
func Open(dest string) (io.WriteCloser, error) {
	switch dest {
	case "stdout":
		return nopCloser{os.Stdout}, nil
	case "stderr":
		return nopCloser{os.Stderr}, nil
	case "", "off", "none":
		return nopCloser{io.Discard}, nil
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", dest, err)
	}
	return f, nil
}

// Sanitize truncates long string values before they are logged.
func Sanitize(v any) any {
	if s, ok := v.(string); ok {
		if len(s) > maxValueLength {
			return s[:maxValueLength] + "...[truncated]"
		}
	}
	return v
}
