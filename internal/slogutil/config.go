package slogutil

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rbmmusic/assetcache/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a config level name to a slog level. Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogRotation configures slog with log rotation using lumberjack.
// If logConfig.File is empty, it logs to console only; otherwise it logs to
// both console and the rotated file. The returned leveler can be adjusted at
// runtime without rebuilding the logger.
func SetupLogRotation(logConfig config.LogConfig, hooks ...Hook) (*slog.Logger, *DynamicLeveler) {
	var writer io.Writer = os.Stdout

	if logConfig.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   logConfig.File,
			MaxSize:    logConfig.MaxSize,    // MB
			MaxBackups: logConfig.MaxBackups, // number of old files
			MaxAge:     logConfig.MaxAge,     // days
			Compress:   logConfig.Compress,   // compress old files
		}
		writer = io.MultiWriter(os.Stdout, fileWriter)
	}

	return NewLogger(writer, logConfig.Level, hooks...)
}

// NewLogger builds a text logger on w with context data extraction and the
// given hooks.
func NewLogger(w io.Writer, level string, hooks ...Hook) (*slog.Logger, *DynamicLeveler) {
	leveler := NewDynamicLeveler(ParseLevel(level))

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: leveler,
	})

	return slog.New(WrapHandler(handler, hooks...)), leveler
}

// LevelUpdater returns a config change callback that applies log.level changes.
func LevelUpdater(leveler *DynamicLeveler) config.ChangeCallback {
	return func(oldConfig, newConfig *config.Config) {
		if oldConfig != nil && oldConfig.Log.Level == newConfig.Log.Level {
			return
		}

		leveler.SetLevel(ParseLevel(newConfig.Log.Level))
		slog.Info("Log level updated", "level", newConfig.Log.Level)
	}
}
