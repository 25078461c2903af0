package http

import (
	"context"
	"encoding/json"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-am-realtime-report-ui/internal/config"
	"go-am-realtime-report-ui/internal/connectors/customermap"
	mysqlstore "go-am-realtime-report-ui/internal/connectors/mysql"
	"go-am-realtime-report-ui/internal/table"
)

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer   *nethttp.Server
	logger       *slog.Logger
	mysqlStore   *mysqlstore.Store
	mappingStore *customermap.Store
}

// NewServer creates a configured HTTP server. Backends that are not
// configured stay nil and their pages answer 503.
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var store *mysqlstore.Store
	if cfg.DBEnabled {
		createdStore, err := mysqlstore.NewStore(cfg)
		if err != nil {
			return nil, err
		}
		store = createdStore
	}
	var mappingStore *customermap.Store
	if cfg.CustomerMapSQLitePath != "" {
		createdStore, err := customermap.NewSQLiteStore(cfg.CustomerMapSQLitePath)
		if err != nil {
			if store != nil {
				_ = store.Close()
			}
			return nil, err
		}
		createdStore.SetQueryTimeout(cfg.DBQueryTimeout)
		mappingStore = createdStore
	}

	s := &Server{
		logger:       logger,
		mysqlStore:   store,
		mappingStore: mappingStore,
	}
	s.httpServer = &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(tableOptions(cfg)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

func (s *Server) routes(opts table.Options) nethttp.Handler {
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/", rootHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(s.mysqlStore, s.mappingStore))
	mux.HandleFunc("/transfers", transfersPageHandler(opts, s.mysqlStore, s.logger))
	mux.HandleFunc("/running-transfers", runningTransfersPageHandler(opts, s.mysqlStore, s.logger))
	mux.HandleFunc("/running-sips", runningSIPsPageHandler(opts, s.mysqlStore, s.logger))
	mux.HandleFunc("/customer-mappings", customerMappingsPageHandler(opts, s.mappingStore, s.logger))
	mux.HandleFunc("/api/v1/customer-mappings", customerMappingsAPIHandler(s.mappingStore, s.logger))
	mux.HandleFunc("/api/v1/customer-mappings/", customerMappingsAPIHandler(s.mappingStore, s.logger))

	return loggingMiddleware(s.logger, observabilityMiddleware(mux))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mysqlStore != nil {
		_ = s.mysqlStore.Close()
	}
	if s.mappingStore != nil {
		_ = s.mappingStore.Close()
	}
	return err
}

func tableOptions(cfg config.Config) table.Options {
	return table.Options{
		PageSize:     cfg.TablePageSize,
		DayFormatter: table.DayFormatterForLocale(cfg.TableLocale),
		Location:     cfg.TableTimezone,
	}
}

func rootHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}
	nethttp.Redirect(w, r, "/transfers", nethttp.StatusFound)
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

type pinger interface {
	Ping(ctx context.Context) error
}

func readyHandler(store *mysqlstore.Store, mappingStore *customermap.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		backends := map[string]pinger{}
		if store != nil {
			backends["mysql"] = store
		}
		if mappingStore != nil {
			backends["sqlite"] = mappingStore
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := nethttp.StatusOK
		for name, b := range backends {
			if err := b.Ping(ctx); err != nil {
				checks[name] = err.Error()
				status = nethttp.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		state := "ready"
		if status != nethttp.StatusOK {
			state = "degraded"
		}
		writeJSON(w, status, map[string]any{
			"status": state,
			"checks": checks,
		})
	}
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
