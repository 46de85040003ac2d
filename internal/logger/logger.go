package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	// Logger is the global slog logger instance
	Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
)

// Init configures the global logger from LOG_LEVEL
func Init() {
	InitWithLevel(os.Getenv("LOG_LEVEL"))
}

// InitWithLevel configures the global JSON logger on stdout at the given level.
// Unknown or empty levels fall back to info.
func InitWithLevel(levelStr string) {
	if levelStr == "" {
		levelStr = "info"
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	})

	Logger = slog.New(handler).With("service", "draft-engine")
	slog.SetDefault(Logger)

	Logger.Info("Logger initialized", "level", levelStr)
}

// ParseLevel maps a level name to a slog.Level
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
