package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/cast-bridge/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "castbridge"

// Logger is the bridge's structured logger. Components receive children
// built with Component, so every line says which part of the bridge wrote it.
//
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml.
func New(cfg config.LoggingConfig, version string) *Logger {
	return newWithWriter(outputFor(cfg.Output), cfg, version)
}

// Default is the logger used before configuration is loaded: JSON on
// stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

func newWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	handler := handlerFor(w, cfg.Format, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// outputFor maps "stderr" to os.Stderr and anything else to os.Stdout.
func outputFor(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// handlerFor returns a text handler for "text" and JSON otherwise.
func handlerFor(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel accepts debug, info, warn (or warning) and error in any case.
// Anything else is info.
func parseLevel(level string) slog.Level {
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

// With returns a child Logger carrying args on every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a child Logger tagged component=name.
//
//	log.Component("sync").Warn("fetch failed", "error", err)
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}
