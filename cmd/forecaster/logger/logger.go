// Package logger builds the forecaster's slog logger from configuration.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/HatiCode/chronocast/cmd/forecaster/config"
)

// New returns a logger writing to stderr. Lambda ships stderr to CloudWatch,
// where JSON lines are queryable, so JSON is the default there.
func New(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel, os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "")
}

func newLogger(w io.Writer, format, level string, lambda bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	if format == "" {
		format = "text"
		if lambda {
			format = "json"
		}
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

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
