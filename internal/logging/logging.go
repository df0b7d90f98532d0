// Package logging configures process-wide structured logging. Setup is
// called once at startup; everything else asks for a component logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default slog handler. level accepts debug, info, warn
// and error; anything else means info.
func Setup(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

// Component returns a child logger tagged with the subsystem name.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
