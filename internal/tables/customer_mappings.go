package tables

import (
	"context"
	"net/url"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"go-am-realtime-report-ui/internal/connectors/customermap"
	"go-am-realtime-report-ui/internal/filter"
	"go-am-realtime-report-ui/internal/query"
	"go-am-realtime-report-ui/internal/table"
	"go-am-realtime-report-ui/internal/widget"
)

// CustomerMappingsTable lists customer/source mappings grouped by the day
// they were created.
type CustomerMappingsTable struct {
	store *customermap.Store
}

// NewCustomerMappingsTable builds the table over store.
func NewCustomerMappingsTable(store *customermap.Store, opts table.Options) *table.Table[customermap.Mapping] {
	opts.SearchColumns = []string{"customer_id", "source_of_acquisition"}
	return table.New[customermap.Mapping](&CustomerMappingsTable{store: store}, opts)
}

func (s *CustomerMappingsTable) PrepareQuery() *query.Select {
	return s.store.MappingsQuery()
}

func (s *CustomerMappingsTable) PaginationAdapter(q *query.Select) widget.Paginatable {
	return mappingsAdapter{store: s.store, q: q}
}

func (s *CustomerMappingsTable) FetchQueryRows(ctx context.Context, q *query.Select) ([]customermap.Mapping, error) {
	return s.store.ListMappings(ctx, q)
}

func (s *CustomerMappingsTable) ColumnsToBeRendered() []string {
	return []string{"Customer", "Source of acquisition"}
}

func (s *CustomerMappingsTable) RenderRow(t *table.Table[customermap.Mapping], row customermap.Mapping) *html.Node {
	t.SplitByDay(row.CreatedAt)
	return widget.Row(atom.Td, row.CustomerID, row.SourceOfAcquisition)
}

// CustomerMappingFilter builds the URL filter for the customer mappings table.
func CustomerMappingFilter(values url.Values) filter.Filter {
	return filter.FromValues(values, []string{"customer_id"})
}

type mappingsAdapter struct {
	store *customermap.Store
	q     *query.Select
}

func (a mappingsAdapter) Count(ctx context.Context) (int, error) {
	return a.store.CountMappings(ctx, a.q)
}

func (a mappingsAdapter) Limit(limit, offset int) {
	a.q.Limit(limit, offset)
}
