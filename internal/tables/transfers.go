// Package tables holds the dashboard's concrete query-based tables.
package tables

import (
	"context"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	mysqlstore "go-am-realtime-report-ui/internal/connectors/mysql"
	"go-am-realtime-report-ui/internal/filter"
	"go-am-realtime-report-ui/internal/query"
	"go-am-realtime-report-ui/internal/table"
	"go-am-realtime-report-ui/internal/widget"
)

// TransferFilterColumns are the URL parameters accepted as transfer filters,
// mapped to their SQL columns.
var TransferFilterColumns = map[string]string{
	"status": "t.status",
	"source": "t.sourceOfAcquisition",
}

// TransfersTable lists completed transfers grouped by completion day.
type TransfersTable struct {
	store *mysqlstore.Store
}

// NewTransfersTable builds the table over store.
func NewTransfersTable(store *mysqlstore.Store, opts table.Options) *table.Table[mysqlstore.CompletedTransfer] {
	opts.SearchColumns = []string{"t.transferUUID", "t.currentLocation"}
	return table.New[mysqlstore.CompletedTransfer](&TransfersTable{store: store}, opts)
}

func (s *TransfersTable) PrepareQuery() *query.Select {
	return s.store.CompletedTransfersQuery()
}

func (s *TransfersTable) PaginationAdapter(q *query.Select) widget.Paginatable {
	return transfersAdapter{store: s.store, q: q}
}

func (s *TransfersTable) FetchQueryRows(ctx context.Context, q *query.Select) ([]mysqlstore.CompletedTransfer, error) {
	return s.store.ListCompletedTransfers(ctx, q)
}

func (s *TransfersTable) RenderRow(t *table.Table[mysqlstore.CompletedTransfer], row mysqlstore.CompletedTransfer) *html.Node {
	completed := ""
	if row.CompletedAt != nil {
		t.SplitByDay(*row.CompletedAt)
		completed = row.CompletedAt.Format("15:04")
	}

	details := widget.El(atom.Td, nil,
		widget.El(atom.Strong, nil, widget.Text(row.Name)),
		widget.El(atom.Span, widget.Attrs{"class": "state state-" + row.Status}, widget.Text(" "+row.Status)),
		widget.El(atom.Br, nil),
		widget.El(atom.Small, nil, widget.Text(row.TransferUUID)),
	)
	return widget.El(atom.Tr, nil,
		widget.El(atom.Td, widget.Attrs{"class": "time"}, widget.Text(completed)),
		details,
	)
}

// DumpSQLQuery shows the statement behind the current page.
func (s *TransfersTable) DumpSQLQuery(_ *url.URL, q *query.Select) *html.Node {
	return widget.El(atom.Pre, widget.Attrs{"class": "sql-dump"}, widget.Text(q.Dump()))
}

// TransferFilter builds the URL filter for the transfers table. Status names
// are translated to their codes; unknown names match nothing. The completion
// window comes from month (2006-01) or from/to (2006-01-02, both inclusive),
// read as UTC days; unparsable dates are ignored.
func TransferFilter(values url.Values) filter.Filter {
	out := filter.MatchAll()
	for _, sub := range filter.FromValues(values, []string{"source", "status"}).Filters {
		out.AddFilter(translateTransferFilter(sub))
	}
	start, end := completedWindow(values)
	if !start.IsZero() {
		out.AddFilter(filter.Expression("t.completed_at", ">=", start))
	}
	if !end.IsZero() {
		out.AddFilter(filter.Expression("t.completed_at", "<", end))
	}
	return out
}

func completedWindow(values url.Values) (start, end time.Time) {
	if month, err := time.Parse("2006-01", strings.TrimSpace(values.Get("month"))); err == nil {
		start = time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	}
	if from, err := time.Parse("2006-01-02", strings.TrimSpace(values.Get("from"))); err == nil {
		start = from
	}
	if to, err := time.Parse("2006-01-02", strings.TrimSpace(values.Get("to"))); err == nil {
		end = to.AddDate(0, 0, 1)
	}
	return start, end
}

func translateTransferFilter(f filter.Filter) filter.Filter {
	switch x := f.(type) {
	case *filter.Chain:
		c := &filter.Chain{Op: x.Op}
		for _, sub := range x.Filters {
			c.AddFilter(translateTransferFilter(sub))
		}
		return c
	case *filter.Condition:
		c := *x
		c.Column = TransferFilterColumns[x.Column]
		if x.Column == "status" {
			if s, ok := x.Value.(string); ok {
				c.Value = mysqlstore.TransferStatusCode(s)
			}
		}
		return &c
	}
	return f
}

type transfersAdapter struct {
	store *mysqlstore.Store
	q     *query.Select
}

func (a transfersAdapter) Count(ctx context.Context) (int, error) {
	return a.store.CountCompletedTransfers(ctx, a.q)
}

func (a transfersAdapter) Limit(limit, offset int) {
	a.q.Limit(limit, offset)
}
