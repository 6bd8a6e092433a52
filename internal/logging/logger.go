// Package logging настраивает глобальный slog-логгер.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup настраивает slog по уровню и формату.
//
// level: "debug", "info", "warn", "error" (по умолчанию "info").
// format: "text", "json" (по умолчанию "text").
func Setup(level, format string) *slog.Logger {
	return SetupTo(os.Stderr, level, format)
}

// SetupTo — то же, что Setup, но с явным приёмником.
func SetupTo(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel переводит строку в slog.Level.
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
