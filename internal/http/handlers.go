package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	nethttp "net/http"
	"strings"

	"go-am-realtime-report-ui/internal/connectors/customermap"
	mysqlstore "go-am-realtime-report-ui/internal/connectors/mysql"
	"go-am-realtime-report-ui/internal/table"
	"go-am-realtime-report-ui/internal/tables"
	"go-am-realtime-report-ui/internal/web"
)

type createMappingRequest struct {
	CustomerID          string `json:"customer_id"`
	SourceOfAcquisition string `json:"source_of_acquisition"`
}

func transfersPageHandler(opts table.Options, store *mysqlstore.Store, logger *slog.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "database integration disabled (set APP_DB_ENABLED=true)",
			})
			return
		}

		page := web.NewPage(r, "Completed transfers")
		tables.NewTransfersTable(store, opts).
			ApplyFilter(tables.TransferFilter(r.URL.Query())).
			RenderTo(page)
		writePage(w, r, page, logger)
	}
}

func runningTransfersPageHandler(opts table.Options, store *mysqlstore.Store, logger *slog.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "database integration disabled (set APP_DB_ENABLED=true)",
			})
			return
		}

		page := web.NewPage(r, "Running transfers")
		tables.NewRunningTransfersTable(store, opts).RenderTo(page)
		writePage(w, r, page, logger)
	}
}

func runningSIPsPageHandler(opts table.Options, store *mysqlstore.Store, logger *slog.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "database integration disabled (set APP_DB_ENABLED=true)",
			})
			return
		}

		page := web.NewPage(r, "Running SIPs")
		tables.NewRunningSIPsTable(store, opts).RenderTo(page)
		writePage(w, r, page, logger)
	}
}

func customerMappingsPageHandler(opts table.Options, store *customermap.Store, logger *slog.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "customer mapping store disabled (set APP_CUSTOMER_MAP_SQLITE_PATH)",
			})
			return
		}

		page := web.NewPage(r, "Customer mappings")
		tables.NewCustomerMappingsTable(store, opts).
			ApplyFilter(tables.CustomerMappingFilter(r.URL.Query())).
			RenderTo(page)
		writePage(w, r, page, logger)
	}
}

func writePage(w nethttp.ResponseWriter, r *nethttp.Request, page *web.Page, logger *slog.Logger) {
	if err := page.Write(r.Context(), w); err != nil {
		status := nethttp.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = nethttp.StatusGatewayTimeout
		}
		logger.ErrorContext(r.Context(), "failed to render page",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		nethttp.Error(w, nethttp.StatusText(status), status)
	}
}

// customerMappingsAPIHandler serves
//
//	POST /api/v1/customer-mappings                 create a mapping
//	GET  /api/v1/customer-mappings/{customer_id}   list the customer's sources
func customerMappingsAPIHandler(store *customermap.Store, logger *slog.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "customer mapping store disabled (set APP_CUSTOMER_MAP_SQLITE_PATH)",
			})
			return
		}

		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/customer-mappings"), "/")
		if path == "" {
			if r.Method != nethttp.MethodPost {
				writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
				return
			}
			var req createMappingRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
				return
			}
			req.CustomerID = strings.TrimSpace(req.CustomerID)
			req.SourceOfAcquisition = strings.TrimSpace(req.SourceOfAcquisition)
			if req.CustomerID == "" || req.SourceOfAcquisition == "" {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{
					"error": "customer_id and source_of_acquisition are required",
				})
				return
			}
			if err := store.CreateMapping(r.Context(), req.CustomerID, req.SourceOfAcquisition); err != nil {
				logger.ErrorContext(r.Context(), "failed to create customer mapping", slog.Any("error", err))
				writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to create customer mapping"})
				return
			}
			writeJSON(w, nethttp.StatusCreated, map[string]any{"data": req})
			return
		}

		if strings.Contains(path, "/") {
			nethttp.NotFound(w, r)
			return
		}
		if r.Method != nethttp.MethodGet {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		sources, err := store.SourcesForCustomer(r.Context(), path)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to fetch customer mappings", slog.Any("error", err))
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to fetch customer mappings"})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"customer_id": path, "count": len(sources)},
			"data": sources,
		})
	}
}
