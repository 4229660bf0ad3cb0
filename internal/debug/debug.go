package debug

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	mu     sync.Mutex
	logger *slog.Logger
)

// Configure points the singleton logger at the given file.
// An empty path discards all log records.
func Configure(path, level string) error {
	mu.Lock()
	defer mu.Unlock()
	if path == "" {
		logger = slog.New(slog.DiscardHandler)
		return nil
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return errors.Wrap(err, "opening log file")
	}
	logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: true,
	}))
	return nil
}

// GetLogger returns a singleton slog logger instance
func GetLogger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger
}

// ParseLevel maps a config level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
