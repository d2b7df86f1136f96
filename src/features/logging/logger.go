package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/contre95/xiaozhi-adapter/src/features/config"
)

// SetupLogger builds the application logger from the configuration and keeps
// its level in sync with later configuration changes.
func SetupLogger(cfg *config.Manager) *slog.Logger {
	return setupLogger(os.Stderr, cfg)
}

func setupLogger(w io.Writer, cfg *config.Manager) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "Xiaozhi",
		Formatter:       formatter(cfg.Get().Logger.Format),
		Level:           level(cfg.Get().Logger.Level),
	})

	cfg.Subscribe(func(old, updated *config.Config) {
		if old == nil || old.Logger.Level != updated.Logger.Level {
			handler.SetLevel(level(updated.Logger.Level))
		}
		if old == nil || old.Logger.Format != updated.Logger.Format {
			handler.SetFormatter(formatter(updated.Logger.Format))
		}
	})

	logger := slog.New(handler)
	logger.Info("Logger initialized", "time", time.Now().Format(time.RFC3339))
	return logger
}

func formatter(format string) log.Formatter {
	switch format {
	case "json":
		return log.JSONFormatter
	case "text":
		return log.TextFormatter
	default:
		return log.LogfmtFormatter
	}
}

func level(lvl string) log.Level {
	switch lvl {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
