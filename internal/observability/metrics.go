// Package observability wires logging and prometheus metrics.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "am_ops_http_requests_total",
			Help: "Total HTTP requests handled by this app.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "am_ops_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	httpInFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "am_ops_http_in_flight_requests",
			Help: "In-flight HTTP requests currently served by this app.",
		},
	)

	tableFetchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "am_ops_table_fetch_duration_seconds",
			Help:    "Time spent fetching one page of rows for a table.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table", "result"},
	)

	tableFetchedRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "am_ops_table_fetched_rows",
			Help: "Rows fetched by the most recent page fetch of a table.",
		},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		httpInFlightRequests,
		tableFetchDurationSeconds,
		tableFetchedRows,
	)
}

// RecordHTTPRequest observes one finished request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func TrackInFlight() func() {
	httpInFlightRequests.Inc()
	return httpInFlightRequests.Dec
}

// RecordTableFetch observes one table fetch.
func RecordTableFetch(table string, d time.Duration, rows int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	tableFetchDurationSeconds.WithLabelValues(table, result).Observe(d.Seconds())
	if err == nil {
		tableFetchedRows.WithLabelValues(table).Set(float64(rows))
	}
}
