package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"go-am-realtime-report-ui/internal/connectors/customermap"
	mysqlstore "go-am-realtime-report-ui/internal/connectors/mysql"
	"go-am-realtime-report-ui/internal/table"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMappingStore(t *testing.T) *customermap.Store {
	t.Helper()
	store, err := customermap.NewSQLiteStore(filepath.Join(t.TempDir(), "map.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newMySQLStore(t *testing.T) (*mysqlstore.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return mysqlstore.NewStoreFromDB(db, time.Second), mock
}

func TestTransfersPageHandler_DBDisabled(t *testing.T) {
	h := transfersPageHandler(table.Options{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/transfers?limit=20", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["error"] == nil {
		t.Fatalf("expected error field in response")
	}
}

func TestRunningPagesHandler_DBDisabled(t *testing.T) {
	for path, h := range map[string]http.HandlerFunc{
		"/running-transfers": runningTransfersPageHandler(table.Options{}, nil, testLogger()),
		"/running-sips":      runningSIPsPageHandler(table.Options{}, nil, testLogger()),
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusServiceUnavailable, rr.Code)
		}
	}
}

func TestCustomerMappingsPageHandler_StoreDisabled(t *testing.T) {
	h := customerMappingsPageHandler(table.Options{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/customer-mappings", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestCustomerMappingsPage(t *testing.T) {
	ctx := context.Background()
	store := newMappingStore(t)
	base := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	if err := store.CreateMappingAt(ctx, "acme", "acme-scans", base); err != nil {
		t.Fatalf("CreateMappingAt() error = %v", err)
	}
	if err := store.CreateMappingAt(ctx, "globex", "globex-ftp", base.Add(time.Hour)); err != nil {
		t.Fatalf("CreateMappingAt() error = %v", err)
	}

	s := &Server{logger: testLogger(), mappingStore: store}
	h := s.routes(table.Options{PageSize: 25})

	req := httptest.NewRequest(http.MethodGet, "/customer-mappings?q=acme&format=sql&benchmark=1", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("Content-Type = %q", got)
	}
	if rr.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected %s header", requestIDHeader)
	}

	body := rr.Body.String()
	for _, want := range []string{
		"<td>acme</td><td>acme-scans</td>",
		"Monday, 2nd March 2026",
		`class="quicksearch"`,
		`class="pagination-control"`,
		"Fetched 1 rows for CustomerMappingsTable table",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q", want)
		}
	}
	for _, unwanted := range []string{"globex-ftp", `class="sql-dump"`} {
		if strings.Contains(body, unwanted) {
			t.Fatalf("expected body not to contain %q", unwanted)
		}
	}
}

func TestCustomerMappingsPageFilter(t *testing.T) {
	ctx := context.Background()
	store := newMappingStore(t)
	if err := store.CreateMapping(ctx, "acme", "acme-scans"); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}
	if err := store.CreateMapping(ctx, "globex", "globex-ftp"); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	h := customerMappingsPageHandler(table.Options{}, store, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/customer-mappings?customer_id=globex", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "globex-ftp") || strings.Contains(body, "acme-scans") {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestCustomerMappingsPageQueryTimeoutReturns504(t *testing.T) {
	store := newMappingStore(t)
	if err := store.CreateMapping(context.Background(), "acme", "acme-scans"); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}
	store.SetQueryTimeout(time.Nanosecond)

	h := customerMappingsPageHandler(table.Options{}, store, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/customer-mappings", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected status %d, got %d", http.StatusGatewayTimeout, rr.Code)
	}
	if strings.Contains(rr.Body.String(), "acme-scans") {
		t.Fatalf("expected no table in a failed response")
	}
}

func TestTransfersPageDumpsSQL(t *testing.T) {
	store, mock := newMySQLStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT t.transferUUID, t.currentLocation, t.status, COALESCE(t.sourceOfAcquisition, ''), t.completed_at "+
			"FROM Transfers t WHERE t.status IN (2, 3, 4) AND t.completed_at IS NOT NULL AND (t.status = ?) "+
			"ORDER BY t.completed_at DESC LIMIT ? OFFSET ?")).
		WithArgs(4, 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"transferUUID", "currentLocation", "status", "source", "completed_at"}).
			AddRow("u1", "/completed/maps-u1/", 4, "", time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM Transfers t WHERE t.status IN (2, 3, 4) AND t.completed_at IS NOT NULL AND (t.status = ?)")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	h := transfersPageHandler(table.Options{}, store, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/transfers?status=failed&format=sql&page=2&limit=10", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`class="sql-dump"`, "LIMIT 10 OFFSET 10", "<strong>maps</strong>"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q", want)
		}
	}
	if strings.Index(body, `class="sql-dump"`) > strings.Index(body, `class="common-table`) {
		t.Fatalf("expected the SQL dump before the table")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestTransfersPageCompletedWindow(t *testing.T) {
	store, mock := newMySQLStore(t)
	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE t.status IN (2, 3, 4) AND t.completed_at IS NOT NULL AND "+
			"(t.completed_at >= ? AND t.completed_at < ?) ORDER BY t.completed_at DESC LIMIT ? OFFSET ?")).
		WithArgs(from, to, 25, 0).
		WillReturnRows(sqlmock.NewRows([]string{"transferUUID", "currentLocation", "status", "source", "completed_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM Transfers t")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	h := transfersPageHandler(table.Options{PageSize: 25}, store, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/transfers?month=2026-03", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestTransfersPageFetchErrorReturns500(t *testing.T) {
	store, mock := newMySQLStore(t)
	mock.ExpectQuery("SELECT t.transferUUID").WillReturnError(context.Canceled)

	h := transfersPageHandler(table.Options{}, store, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/transfers", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if strings.Contains(rr.Body.String(), `class="common-table`) {
		t.Fatalf("expected no table in a failed response")
	}
}

func TestRunningTransfersPage(t *testing.T) {
	store, mock := newMySQLStore(t)
	started := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE t.status = 1 AND (t.transferUUID LIKE ? ESCAPE '!' OR t.currentLocation LIKE ? ESCAPE '!') "+
			"GROUP BY t.transferUUID, t.currentLocation")).
		WithArgs("%maps%", "%maps%", 25, 0).
		WillReturnRows(sqlmock.NewRows([]string{"transferUUID", "currentLocation", "stage", "started_at", "last_progress_at", "has_executing_jobs"}).
			AddRow("u1", "/currentlyProcessing/maps-u1/", "Scan for viruses", started, started, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (SELECT 1 FROM Transfers t")).
		WithArgs("%maps%", "%maps%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	s := &Server{logger: testLogger(), mysqlStore: store}
	h := s.routes(table.Options{PageSize: 25})
	req := httptest.NewRequest(http.MethodGet, "/running-transfers?q=maps", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Monday, 2nd March 2026",
		`<td class="time">09:00</td>`,
		"<strong>maps</strong>",
		`class="state state-RUNNING"`,
		`class="badge state-stuck"`,
		`class="quicksearch"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q", want)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestCustomerMappingsAPI(t *testing.T) {
	store := newMappingStore(t)
	h := customerMappingsAPIHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/customer-mappings",
		strings.NewReader(`{"customer_id":" acme ","source_of_acquisition":"acme-scans"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/customer-mappings/acme", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var payload struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Data) != 1 || payload.Data[0] != "acme-scans" {
		t.Fatalf("data = %v, want [acme-scans]", payload.Data)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/customer-mappings", strings.NewReader(`{}`))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/customer-mappings", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestRootRedirectsToTransfers(t *testing.T) {
	s := &Server{logger: testLogger()}
	h := s.routes(table.Options{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/transfers" {
		t.Fatalf("Location = %q, want /transfers", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	store := newMappingStore(t)
	h := readyHandler(nil, store)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"sqlite":"ok"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestNormalizeMetricPath(t *testing.T) {
	cases := map[string]string{
		"/transfers":                     "/transfers",
		"/running-transfers":             "/running-transfers",
		"/running-sips":                  "/running-sips",
		"/api/v1/customer-mappings/acme": "/api/v1/customer-mappings/{customer_id}",
		"/wp-admin":                      "other",
	}
	for path, want := range cases {
		if got := normalizeMetricPath(path); got != want {
			t.Fatalf("normalizeMetricPath(%q) = %q, want %q", path, got, want)
		}
	}
}
