package http

import (
	"log/slog"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-am-realtime-report-ui/internal/benchmark"
	"go-am-realtime-report-ui/internal/observability"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	nethttp.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware tags the request with an id, starts its benchmark and
// logs the outcome.
func loggingMiddleware(logger *slog.Logger, next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		reqLogger := logger.With(slog.String("request_id", id))
		bench := benchmark.New(reqLogger)
		ctx := benchmark.NewContext(r.Context(), bench)

		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		reqLogger.LogAttrs(ctx, slog.LevelInfo, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", bench.Elapsed()),
		)
	})
}

func observabilityMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		done := observability.TrackInFlight()
		defer done()

		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)

		observability.RecordHTTPRequest(r.Method, normalizeMetricPath(r.URL.Path), rec.status, time.Since(start))
	})
}

func normalizeMetricPath(path string) string {
	switch {
	case path == "/", path == "/metrics", path == "/health", path == "/ready":
		return path
	case path == "/transfers", path == "/running-transfers", path == "/running-sips", path == "/customer-mappings":
		return path
	case path == "/api/v1/customer-mappings":
		return path
	case strings.HasPrefix(path, "/api/v1/customer-mappings/"):
		return "/api/v1/customer-mappings/{customer_id}"
	default:
		return "other"
	}
}
