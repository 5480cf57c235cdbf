package logging

import (
	"io"
	"log/slog"
	"os"
)

// ParseLevel maps LOG_LEVEL style names to a slog level.
func ParseLevel(l string, fallback slog.Level) slog.Level {
	switch l {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return fallback
}

// New builds a logger writing to w. format is "json" or "text".
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init sets the default logger from LOG_LEVEL. Client commands only show
// errors unless asked otherwise.
func Init() {
	level := slog.LevelError
	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level = ParseLevel(l, level)
	}
	slog.SetDefault(New(os.Stderr, level, os.Getenv("LOG_FORMAT")))
}

// Setup replaces the default logger for the server and returns it.
func Setup(level, format string) *slog.Logger {
	logger := New(os.Stdout, ParseLevel(level, slog.LevelInfo), format)
	slog.SetDefault(logger)
	return logger
}
