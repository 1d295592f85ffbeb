package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Params controls where and how the process logs.
type Params struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	// File enables a rotated log file next to stdout. Empty logs to stdout only.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Setup builds the process logger, installs it as the slog default and
// returns it. The returned closer flushes and closes the log file, if any.
func Setup(p Params) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)

	if p.File != "" {
		if !strings.HasSuffix(p.File, ".log") {
			p.File += ".log"
		}
		rotating := &lumberjack.Logger{
			Filename:   p.File,
			MaxSize:    p.MaxSizeMB, // megabytes, 0 = lumberjack default
			MaxBackups: p.MaxBackups,
			LocalTime:  false,
			Compress:   true,
		}
		out = NewCombinedWriter(os.Stdout, rotating)
		closer = rotating
	}

	logger := New(out, p.Level, p.Format)
	slog.SetDefault(logger)
	return logger, closer
}

// New returns a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
