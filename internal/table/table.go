// Package table renders paginated, filterable and searchable HTML tables on
// top of a query. Concrete tables supply a Source; Table does the rest.
package table

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"go-am-realtime-report-ui/internal/benchmark"
	"go-am-realtime-report-ui/internal/filter"
	"go-am-realtime-report-ui/internal/observability"
	"go-am-realtime-report-ui/internal/query"
	"go-am-realtime-report-ui/internal/widget"
)

// Source supplies the query and the rows of a Table.
type Source[R any] interface {
	// PrepareQuery builds the base query. It is called once, on first use.
	PrepareQuery() *query.Select
	// PaginationAdapter returns what the paginator counts and windows.
	// Most sources return q itself.
	PaginationAdapter(q *query.Select) widget.Paginatable
	// FetchQueryRows executes q and returns the rows of the current page.
	FetchQueryRows(ctx context.Context, q *query.Select) ([]R, error)
	// RenderRow builds the tr for row. It may call SplitByDay, in which case
	// the query must return rows ordered by that timestamp.
	RenderRow(t *Table[R], row R) *html.Node
}

// HeaderColumns is implemented by sources that want a column header row.
type HeaderColumns interface {
	ColumnsToBeRendered() []string
}

// SQLDumper is implemented by sources that can show their SQL when the URL
// asks for format=sql.
type SQLDumper interface {
	DumpSQLQuery(u *url.URL, q *query.Select) *html.Node
}

// Options configure a Table.
type Options struct {
	// SearchColumns are matched by the quick search. Empty disables it.
	SearchColumns []string
	// PageSize is the default page size when the URL has no limit.
	PageSize int
	// DayFormatter labels day headers. Defaults to US English.
	DayFormatter DayFormatter
	// Location is applied to timestamps before formatting. Defaults to UTC.
	Location *time.Location
}

// Table is a query-backed HTML table. It is built and rendered within one
// request and is not safe for concurrent use.
type Table[R any] struct {
	source Source[R]
	opts   Options
	name   string
	query  *query.Select
	markup *widget.Table

	fetchedRows int
	lastDay     string
	rendered    bool
}

// New wraps source.
func New[R any](source Source[R], opts Options) *Table[R] {
	if opts.DayFormatter == nil {
		opts.DayFormatter = USEnglish{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Table[R]{
		source: source,
		opts:   opts,
		name:   typeName(source),
		markup: widget.NewTable(widget.Attrs{
			"class":            "common-table table-row-selectable",
			"data-base-target": "_next",
		}),
	}
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "Table"
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

// Name is the short type name of the source, used in benchmarks and metrics.
func (t *Table[R]) Name() string {
	return t.name
}

// Query returns the live query, preparing it on first use.
func (t *Table[R]) Query() *query.Select {
	if t.query == nil {
		t.query = t.source.PrepareQuery()
	}
	return t.query
}

// Count returns the total number of rows as reported by the pagination
// adapter, not the size of the fetched page.
func (t *Table[R]) Count(ctx context.Context) (int, error) {
	return t.source.PaginationAdapter(t.Query()).Count(ctx)
}

// Paginator returns a paginator bound to u. Creating it applies the page
// window to the query.
func (t *Table[R]) Paginator(u *url.URL) *widget.Paginator {
	return widget.NewPaginator(t.source.PaginationAdapter(t.Query()), u, t.opts.PageSize)
}

// ApplyFilter compiles f onto the live query.
func (t *Table[R]) ApplyFilter(f filter.Filter) *Table[R] {
	query.ApplyToQuery(f, t.Query())
	return t
}

// SearchColumns returns the columns matched by Search.
func (t *Table[R]) SearchColumns() []string {
	return t.opts.SearchColumns
}

// SearchFilter builds the filter Search applies, or nil for an empty term.
// A term without spaces matches if any search column contains it. A term
// with spaces is split on every single space and each part must be
// contained in at least one search column.
func (t *Table[R]) SearchFilter(text string) filter.Filter {
	if text == "" {
		return nil
	}
	if !strings.Contains(text, " ") {
		return t.columnsContaining(text)
	}
	all := filter.MatchAll()
	for _, part := range strings.Split(text, " ") {
		all.AddFilter(t.columnsContaining(part))
	}
	return all
}

func (t *Table[R]) columnsContaining(s string) *filter.Chain {
	alt := filter.MatchAny()
	for _, column := range t.opts.SearchColumns {
		alt.AddFilter(filter.Expression(column, "=", "*"+s+"*"))
	}
	return alt
}

// Search applies the free text search to the query. An empty term is a no-op.
func (t *Table[R]) Search(text string) *Table[R] {
	if f := t.SearchFilter(text); f != nil {
		query.ApplyToQuery(f, t.Query())
	}
	return t
}

// RenderContent emits the column header, then fetches and renders the rows.
// Later calls do nothing.
func (t *Table[R]) RenderContent(ctx context.Context) error {
	if t.rendered {
		return nil
	}
	t.rendered = true
	if hc, ok := t.source.(HeaderColumns); ok {
		if columns := hc.ColumnsToBeRendered(); len(columns) > 0 {
			t.markup.Header().AppendChild(widget.Row(atom.Th, columns...))
		}
	}
	return t.fetchRows(ctx)
}

// Render implements widget.Renderable.
func (t *Table[R]) Render(ctx context.Context) (*html.Node, error) {
	if err := t.RenderContent(ctx); err != nil {
		return nil, err
	}
	return t.markup.Node(), nil
}

func (t *Table[R]) fetchRows(ctx context.Context) error {
	rows, err := t.Fetch(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		// the row renderer may start a new body, so ask for it afterwards
		tr := t.source.RenderRow(t, row)
		if tr != nil {
			t.markup.Body().AppendChild(tr)
		}
	}
	return nil
}

// Fetch runs the source's row fetch between two benchmark marks and records
// the number of fetched rows.
func (t *Table[R]) Fetch(ctx context.Context) ([]R, error) {
	bench := benchmark.FromContext(ctx)
	bench.Measure(fmt.Sprintf("Fetching data for %s table", t.name))

	start := time.Now()
	rows, err := t.source.FetchQueryRows(ctx, t.Query())
	t.fetchedRows = len(rows)
	observability.RecordTableFetch(t.name, time.Since(start), t.fetchedRows, err)
	if err != nil {
		return nil, fmt.Errorf("fetch %s rows: %w", t.name, err)
	}

	bench.Measure(fmt.Sprintf("Fetched %d rows for %s table", t.fetchedRows, t.name))
	return rows, nil
}

// FetchedRows is the row count of the last Fetch.
func (t *Table[R]) FetchedRows() int {
	return t.fetchedRows
}

// SplitByDay starts a new day section when ts falls on another day than the
// previous row.
func (t *Table[R]) SplitByDay(ts time.Time) {
	t.RenderDayIfNew(ts)
}

// RenderDayIfNew emits a day header and a new body when the day label of ts
// differs from the last one rendered.
func (t *Table[R]) RenderDayIfNew(ts time.Time) {
	day := t.opts.DayFormatter.FormatDay(ts.In(t.opts.Location))
	if day == t.lastDay {
		return
	}
	t.markup.NextHeader().AppendChild(widget.El(atom.Tr, nil,
		widget.El(atom.Th, widget.Attrs{"colspan": "2", "class": "table-header-day"}, widget.Text(day)),
	))
	t.lastDay = day
	t.markup.NextBody()
}

// InitializeOptionalQuickSearch adds the quick search control and applies its
// term when the table has search columns.
func (t *Table[R]) InitializeOptionalQuickSearch(c widget.ControlsAndContent) {
	if len(t.opts.SearchColumns) == 0 {
		return
	}
	t.Search(widget.QuickSearch(c.Controls(), c.URL()))
}

// RenderTo adds the paginator, the optional quick search and the table to c.
// A source implementing SQLDumper gets its SQL prepended to the content when
// the URL has format=sql.
func (t *Table[R]) RenderTo(c widget.ControlsAndContent) *Table[R] {
	u := c.URL()
	content := c.Content()
	paginator := t.Paginator(u)
	t.InitializeOptionalQuickSearch(c)
	c.Actions().Add(paginator)
	content.Add(t)

	if dumper, ok := t.source.(SQLDumper); ok && u != nil && u.Query().Get("format") == "sql" {
		content.Prepend(widget.Static(dumper.DumpSQLQuery(u, t.Query())))
	}
	return t
}
