package tables

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	mysqlstore "go-am-realtime-report-ui/internal/connectors/mysql"
	"go-am-realtime-report-ui/internal/query"
	"go-am-realtime-report-ui/internal/table"
	"go-am-realtime-report-ui/internal/widget"
)

// RunningTransfersTable lists transfers in progress grouped by the day they
// started.
type RunningTransfersTable struct {
	store *mysqlstore.Store
}

// NewRunningTransfersTable builds the table over store.
func NewRunningTransfersTable(store *mysqlstore.Store, opts table.Options) *table.Table[mysqlstore.RunningTransfer] {
	opts.SearchColumns = []string{"t.transferUUID", "t.currentLocation"}
	return table.New[mysqlstore.RunningTransfer](&RunningTransfersTable{store: store}, opts)
}

func (s *RunningTransfersTable) PrepareQuery() *query.Select {
	return s.store.RunningTransfersQuery()
}

func (s *RunningTransfersTable) PaginationAdapter(q *query.Select) widget.Paginatable {
	return runningTransfersAdapter{store: s.store, q: q}
}

func (s *RunningTransfersTable) FetchQueryRows(ctx context.Context, q *query.Select) ([]mysqlstore.RunningTransfer, error) {
	return s.store.ListRunningTransfers(ctx, q)
}

func (s *RunningTransfersTable) RenderRow(t *table.Table[mysqlstore.RunningTransfer], row mysqlstore.RunningTransfer) *html.Node {
	return runningRow(t.SplitByDay, row.StartedAt, row.LastProgressAt, row.Stuck,
		widget.El(atom.Strong, nil, widget.Text(row.Name)),
		widget.El(atom.Span, widget.Attrs{"class": "state state-" + row.Status}, widget.Text(" "+row.Status)),
		widget.El(atom.Br, nil),
		widget.El(atom.Small, nil, widget.Text(row.TransferUUID+" · "+row.Stage)),
	)
}

// RunningSIPsTable lists SIPs in ingest grouped by the day they started.
type RunningSIPsTable struct {
	store *mysqlstore.Store
}

// NewRunningSIPsTable builds the table over store.
func NewRunningSIPsTable(store *mysqlstore.Store, opts table.Options) *table.Table[mysqlstore.RunningSIP] {
	opts.SearchColumns = []string{"j.SIPUUID"}
	return table.New[mysqlstore.RunningSIP](&RunningSIPsTable{store: store}, opts)
}

func (s *RunningSIPsTable) PrepareQuery() *query.Select {
	return s.store.RunningSIPsQuery()
}

func (s *RunningSIPsTable) PaginationAdapter(q *query.Select) widget.Paginatable {
	return runningSIPsAdapter{store: s.store, q: q}
}

func (s *RunningSIPsTable) FetchQueryRows(ctx context.Context, q *query.Select) ([]mysqlstore.RunningSIP, error) {
	return s.store.ListRunningSIPs(ctx, q)
}

func (s *RunningSIPsTable) RenderRow(t *table.Table[mysqlstore.RunningSIP], row mysqlstore.RunningSIP) *html.Node {
	jobs := humanize.Comma(row.ExecutingJobs) + " executing, " +
		humanize.Comma(row.AwaitingJobs) + " awaiting, " +
		humanize.Comma(row.FailedJobs) + " failed"
	return runningRow(t.SplitByDay, row.StartedAt, row.LastProgressAt, row.Stuck,
		widget.El(atom.Strong, nil, widget.Text(row.Stage)),
		widget.El(atom.Span, widget.Attrs{"class": "state state-" + row.Status}, widget.Text(" "+row.Status)),
		widget.El(atom.Br, nil),
		widget.El(atom.Small, nil, widget.Text(row.SIPUUID+" · "+jobs)),
	)
}

// runningRow renders the start time and the details cell shared by both
// running tables. Rows without a start time stay in the current day section.
func runningRow(splitByDay func(time.Time), startedAt, lastProgressAt *time.Time, stuck bool, details ...*html.Node) *html.Node {
	started := ""
	if startedAt != nil {
		splitByDay(*startedAt)
		started = startedAt.Format("15:04")
	}

	cell := widget.El(atom.Td, nil, details...)
	if lastProgressAt != nil {
		cell.AppendChild(widget.El(atom.Br, nil))
		cell.AppendChild(widget.El(atom.Small, widget.Attrs{"class": "last-progress"},
			widget.Text("last progress "+humanize.Time(*lastProgressAt))))
	}
	if stuck {
		cell.AppendChild(widget.El(atom.Span, widget.Attrs{"class": "badge state-stuck"}, widget.Text("stuck")))
	}
	return widget.El(atom.Tr, nil,
		widget.El(atom.Td, widget.Attrs{"class": "time"}, widget.Text(started)),
		cell,
	)
}

type runningTransfersAdapter struct {
	store *mysqlstore.Store
	q     *query.Select
}

func (a runningTransfersAdapter) Count(ctx context.Context) (int, error) {
	return a.store.CountRunningTransfers(ctx, a.q)
}

func (a runningTransfersAdapter) Limit(limit, offset int) {
	a.q.Limit(limit, offset)
}

type runningSIPsAdapter struct {
	store *mysqlstore.Store
	q     *query.Select
}

func (a runningSIPsAdapter) Count(ctx context.Context) (int, error) {
	return a.store.CountRunningSIPs(ctx, a.q)
}

func (a runningSIPsAdapter) Limit(limit, offset int) {
	a.q.Limit(limit, offset)
}
