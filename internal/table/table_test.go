package table

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"go-am-realtime-report-ui/internal/benchmark"
	"go-am-realtime-report-ui/internal/filter"
	"go-am-realtime-report-ui/internal/query"
	"go-am-realtime-report-ui/internal/widget"
)

type event struct {
	id   int
	name string
	at   time.Time
}

type countAdapter struct {
	total  int
	limit  int
	offset int
}

func (c *countAdapter) Count(context.Context) (int, error) { return c.total, nil }

func (c *countAdapter) Limit(limit, offset int) {
	c.limit = limit
	c.offset = offset
}

type eventSource struct {
	adapter *countAdapter
	batches [][]event
	err     error
	calls   int
}

func (s *eventSource) PrepareQuery() *query.Select {
	return query.From(nil, "events", "id", "name", "at").OrderBy("at DESC")
}

func (s *eventSource) PaginationAdapter(*query.Select) widget.Paginatable {
	return s.adapter
}

func (s *eventSource) FetchQueryRows(context.Context, *query.Select) ([]event, error) {
	if s.err != nil {
		return nil, s.err
	}
	batch := s.batches[s.calls%len(s.batches)]
	s.calls++
	return batch, nil
}

func (s *eventSource) RenderRow(t *Table[event], row event) *html.Node {
	t.SplitByDay(row.at)
	return widget.Row(atom.Td, strconv.Itoa(row.id), row.name)
}

type headerSource struct {
	eventSource
}

func (s *headerSource) ColumnsToBeRendered() []string {
	return []string{"ID", "Name"}
}

func (s *headerSource) RenderRow(_ *Table[event], row event) *html.Node {
	return widget.Row(atom.Td, strconv.Itoa(row.id), row.name)
}

type dumpingSource struct {
	eventSource
}

func (s *dumpingSource) DumpSQLQuery(_ *url.URL, q *query.Select) *html.Node {
	return widget.El(atom.Pre, widget.Attrs{"class": "sql-dump"}, widget.Text(q.Dump()))
}

type page struct {
	url      *url.URL
	content  widget.Container
	actions  widget.Container
	controls widget.Container
}

func newPage(t *testing.T, raw string) *page {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return &page{url: u}
}

func (p *page) URL() *url.URL { return p.url }

func (p *page) Content() *widget.Container { return &p.content }

func (p *page) Actions() *widget.Container { return &p.actions }

func (p *page) Controls() *widget.Container { return &p.controls }

func day(d, hour int) time.Time {
	return time.Date(2026, time.March, d, hour, 0, 0, 0, time.UTC)
}

func newEventSource(rows ...event) *eventSource {
	return &eventSource{adapter: &countAdapter{total: len(rows)}, batches: [][]event{rows}}
}

func TestSearchSingleTokenIsDisjunctionOverColumns(t *testing.T) {
	tbl := New[event](newEventSource(), Options{SearchColumns: []string{"name", "host", "uuid"}})

	require.Same(t, tbl, tbl.Search("web"))

	applied := tbl.Query().Filter().(*filter.Chain)
	require.Len(t, applied.Filters, 1)
	alt, ok := applied.Filters[0].(*filter.Chain)
	require.True(t, ok)
	require.Equal(t, filter.OpAny, alt.Op)
	require.Len(t, alt.Filters, 3)
	for i, column := range []string{"name", "host", "uuid"} {
		cond := alt.Filters[i].(*filter.Condition)
		require.Equal(t, column, cond.Column)
		require.Equal(t, "=", cond.Sign)
		require.Equal(t, "*web*", cond.Value)
	}
}

func TestSearchTokensAreConjunctionOfDisjunctions(t *testing.T) {
	tbl := New[event](newEventSource(), Options{SearchColumns: []string{"name", "host"}})

	f := tbl.SearchFilter("web db 01").(*filter.Chain)
	require.Equal(t, filter.OpAll, f.Op)
	require.Len(t, f.Filters, 3)
	for i, token := range []string{"web", "db", "01"} {
		sub := f.Filters[i].(*filter.Chain)
		require.Equal(t, filter.OpAny, sub.Op)
		require.Len(t, sub.Filters, 2)
		for _, m := range sub.Filters {
			require.Equal(t, "*"+token+"*", m.(*filter.Condition).Value)
		}
	}

	tbl.Search("web db 01")
	stmt, args, err := tbl.Query().SQL()
	require.NoError(t, err)
	require.Equal(t,
		"SELECT id, name, at FROM events WHERE ((name LIKE ? ESCAPE '!' OR host LIKE ? ESCAPE '!') AND "+
			"(name LIKE ? ESCAPE '!' OR host LIKE ? ESCAPE '!') AND "+
			"(name LIKE ? ESCAPE '!' OR host LIKE ? ESCAPE '!')) ORDER BY at DESC",
		stmt)
	require.Equal(t, []any{"%web%", "%web%", "%db%", "%db%", "%01%", "%01%"}, args)
}

func TestSearchEmptyIsNoop(t *testing.T) {
	tbl := New[event](newEventSource(), Options{SearchColumns: []string{"name"}})
	before, _, err := tbl.Query().SQL()
	require.NoError(t, err)

	require.Same(t, tbl, tbl.Search(""))
	require.Nil(t, tbl.SearchFilter(""))

	after, _, err := tbl.Query().SQL()
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.True(t, tbl.Query().Filter().(*filter.Chain).IsEmpty())
}

func TestSearchZeroIsATerm(t *testing.T) {
	tbl := New[event](newEventSource(), Options{SearchColumns: []string{"name"}})

	require.NotNil(t, tbl.SearchFilter("0"))
	tbl.Search("0")

	stmt, args, err := tbl.Query().SQL()
	require.NoError(t, err)
	require.Equal(t, "SELECT id, name, at FROM events WHERE (name LIKE ? ESCAPE '!') ORDER BY at DESC", stmt)
	require.Equal(t, []any{"%0%"}, args)
}

var dayHeader = regexp.MustCompile(`<th class="table-header-day" colspan="2">([^<]+)</th>`)

func TestDayGroupingIsAdjacencyBased(t *testing.T) {
	src := newEventSource(
		event{1, "a1", day(2, 9)},
		event{2, "a2", day(2, 8)},
		event{3, "b1", day(3, 9)},
		event{4, "b2", day(3, 7)},
		event{5, "a3", day(2, 6)},
	)
	tbl := New[event](src, Options{DayFormatter: USEnglish{}})

	n, err := tbl.Render(context.Background())
	require.NoError(t, err)
	out := widget.String(n)

	matches := dayHeader.FindAllStringSubmatch(out, -1)
	require.Len(t, matches, 3)
	require.Equal(t, "Monday, 2nd March 2026", matches[0][1])
	require.Equal(t, "Tuesday, 3rd March 2026", matches[1][1])
	require.Equal(t, "Monday, 2nd March 2026", matches[2][1])
	require.Contains(t, out, `<tbody><tr><td>1</td><td>a1</td></tr><tr><td>2</td><td>a2</td></tr></tbody>`)
}

func TestDayGroupingUsesConfiguredLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	src := newEventSource(
		event{1, "late", time.Date(2026, time.March, 2, 23, 30, 0, 0, time.UTC)},
	)
	tbl := New[event](src, Options{Location: berlin})

	n, err := tbl.Render(context.Background())
	require.NoError(t, err)
	matches := dayHeader.FindAllStringSubmatch(widget.String(n), -1)
	require.Len(t, matches, 1)
	require.Equal(t, "Tuesday, 3rd March 2026", matches[0][1])
}

func TestCountUsesPaginationAdapter(t *testing.T) {
	src := newEventSource(event{1, "a", day(2, 1)}, event{2, "b", day(2, 1)}, event{3, "c", day(2, 1)})
	src.adapter.total = 42
	tbl := New[event](src, Options{})

	_, err := tbl.Render(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, tbl.FetchedRows())

	n, err := tbl.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, n)
}

func TestFetchRecordsRowCountEveryCall(t *testing.T) {
	src := &eventSource{
		adapter: &countAdapter{},
		batches: [][]event{
			{{1, "a", day(2, 1)}, {2, "b", day(2, 1)}, {3, "c", day(2, 1)}},
			{{4, "d", day(2, 1)}},
		},
	}
	tbl := New[event](src, Options{})
	require.Equal(t, 0, tbl.FetchedRows())

	rows, err := tbl.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, 3, tbl.FetchedRows())

	_, err = tbl.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, tbl.FetchedRows())
}

func TestFetchMeasuresBenchmark(t *testing.T) {
	bench := benchmark.New(nil)
	ctx := benchmark.NewContext(context.Background(), bench)
	tbl := New[event](newEventSource(event{1, "a", day(2, 1)}, event{2, "b", day(2, 1)}), Options{})

	_, err := tbl.Fetch(ctx)
	require.NoError(t, err)

	marks := bench.Marks()
	require.Len(t, marks, 2)
	require.Equal(t, "Fetching data for eventSource table", marks[0].Message)
	require.Equal(t, "Fetched 2 rows for eventSource table", marks[1].Message)
}

func TestRenderPropagatesFetchError(t *testing.T) {
	src := newEventSource()
	src.err = errors.New("connection refused")
	tbl := New[event](src, Options{})

	_, err := tbl.Render(context.Background())
	require.ErrorIs(t, err, src.err)
	require.Equal(t, 0, tbl.FetchedRows())
}

func TestRenderContentEmitsHeaderRow(t *testing.T) {
	src := &headerSource{eventSource: *newEventSource(event{7, "x", day(2, 1)})}
	tbl := New[event](src, Options{})

	n, err := tbl.Render(context.Background())
	require.NoError(t, err)
	require.Equal(t,
		`<table class="common-table table-row-selectable" data-base-target="_next">`+
			`<thead><tr><th>ID</th><th>Name</th></tr></thead>`+
			`<tbody><tr><td>7</td><td>x</td></tr></tbody></table>`,
		widget.String(n))

	again, err := tbl.Render(context.Background())
	require.NoError(t, err)
	require.Equal(t, widget.String(n), widget.String(again))
	require.Equal(t, 1, src.calls)
}

func TestRenderToWiresPaginatorAndQuickSearch(t *testing.T) {
	src := newEventSource()
	tbl := New[event](src, Options{SearchColumns: []string{"name"}, PageSize: 10})
	p := newPage(t, "/events?q=web&page=2")

	require.Same(t, tbl, tbl.RenderTo(p))

	require.Equal(t, 1, p.Actions().Len())
	_, ok := p.Actions().Items()[0].(*widget.Paginator)
	require.True(t, ok)
	require.Equal(t, 1, p.Controls().Len())
	require.Equal(t, 1, p.Content().Len())
	require.Same(t, tbl, p.Content().Items()[0])

	require.Equal(t, 10, src.adapter.limit)
	require.Equal(t, 10, src.adapter.offset)
	require.Equal(t, "((name=*web*))", tbl.Query().Filter().String())
}

func TestRenderToWithoutSearchColumnsSkipsQuickSearch(t *testing.T) {
	tbl := New[event](newEventSource(), Options{})
	p := newPage(t, "/events?q=web")
	tbl.RenderTo(p)

	require.Equal(t, 0, p.Controls().Len())
	require.True(t, tbl.Query().Filter().(*filter.Chain).IsEmpty())
}

func TestRenderToSQLDump(t *testing.T) {
	cases := []struct {
		name     string
		dumper   bool
		url      string
		wantDump bool
	}{
		{"dumper with format=sql", true, "/events?format=sql", true},
		{"dumper without format", true, "/events", false},
		{"dumper with other format", true, "/events?format=json", false},
		{"no dumper with format=sql", false, "/events?format=sql", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPage(t, tc.url)
			if tc.dumper {
				New[event](&dumpingSource{eventSource: *newEventSource()}, Options{}).RenderTo(p)
			} else {
				New[event](newEventSource(), Options{}).RenderTo(p)
			}

			items := p.Content().Items()
			if !tc.wantDump {
				require.Len(t, items, 1)
				return
			}
			require.Len(t, items, 2)
			n, err := items[0].Render(context.Background())
			require.NoError(t, err)
			require.Equal(t, "sql-dump", widget.Attr(n, "class"))
			require.Contains(t, widget.String(n), "SELECT id, name, at FROM events ORDER BY at DESC LIMIT 25 OFFSET 0")
		})
	}
}

func TestApplyFilterChains(t *testing.T) {
	tbl := New[event](newEventSource(), Options{})
	require.Same(t, tbl, tbl.ApplyFilter(filter.Expression("name", "=", "x")))
	require.Equal(t, "(name=x)", tbl.Query().Filter().String())
}

func TestName(t *testing.T) {
	require.Equal(t, "eventSource", New[event](newEventSource(), Options{}).Name())
	require.Equal(t, "dumpingSource", New[event](&dumpingSource{}, Options{}).Name())
}
