package observability

import (
	"io"
	"log/slog"

	"go-am-realtime-report-ui/internal/config"
)

const serviceName = "am-ops-observer"

// NewLogger builds the service logger from configuration.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	var handler slog.Handler
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: cfg.LogLevel})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: cfg.LogLevel})
	}
	return slog.New(handler).With(slog.String("service", serviceName))
}
