package widget

import (
	"context"
	"net/url"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	maxLimit   = 1000
	pageWindow = 2
	paramPage  = "page"
	paramLimit = "limit"
)

// Paginatable counts the full result and restricts it to one page.
type Paginatable interface {
	Count(ctx context.Context) (int, error)
	Limit(limit, offset int)
}

// Paginator renders page navigation for a Paginatable bound to a URL.
type Paginator struct {
	adapter Paginatable
	url     *url.URL
	page    int
	limit   int
}

// NewPaginator reads the page and limit URL parameters and applies the
// resulting window to adapter.
func NewPaginator(adapter Paginatable, u *url.URL, defaultLimit int) *Paginator {
	if defaultLimit <= 0 {
		defaultLimit = 25
	}
	p := &Paginator{adapter: adapter, url: u, page: 1, limit: defaultLimit}
	if u != nil {
		values := u.Query()
		if parsed, err := strconv.Atoi(values.Get(paramLimit)); err == nil && parsed > 0 && parsed <= maxLimit {
			p.limit = parsed
		}
		if parsed, err := strconv.Atoi(values.Get(paramPage)); err == nil && parsed > 0 {
			p.page = parsed
		}
	}
	adapter.Limit(p.limit, (p.page-1)*p.limit)
	return p
}

// Page returns the current one-based page.
func (p *Paginator) Page() int { return p.page }

// PageSize returns the number of rows per page.
func (p *Paginator) PageSize() int { return p.limit }

// Pages returns the number of pages for total rows.
func (p *Paginator) Pages(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + p.limit - 1) / p.limit
}

// Render counts the adapter and builds the navigation list.
func (p *Paginator) Render(ctx context.Context) (*html.Node, error) {
	total, err := p.adapter.Count(ctx)
	if err != nil {
		return nil, err
	}
	pages := p.Pages(total)

	ul := El(atom.Ul, Attrs{"class": "tab-nav"})
	ul.AppendChild(p.item(p.page-1, "«", p.page <= 1))
	last := 0
	for i := 1; i <= pages; i++ {
		if i != 1 && i != pages && (i < p.page-pageWindow || i > p.page+pageWindow) {
			continue
		}
		if last != 0 && i-last > 1 {
			ul.AppendChild(El(atom.Li, Attrs{"class": "disabled"}, El(atom.Span, nil, Text("…"))))
		}
		li := p.item(i, strconv.Itoa(i), false)
		if i == p.page {
			AddClass(li, "active")
		}
		ul.AppendChild(li)
		last = i
	}
	ul.AppendChild(p.item(p.page+1, "»", p.page >= pages))

	return El(atom.Div, Attrs{
		"class":      "pagination-control",
		"data-total": strconv.Itoa(total),
	}, ul), nil
}

func (p *Paginator) item(page int, label string, disabled bool) *html.Node {
	if disabled {
		return El(atom.Li, Attrs{"class": "disabled"}, El(atom.Span, nil, Text(label)))
	}
	return El(atom.Li, nil, El(atom.A, Attrs{"href": p.pageURL(page)}, Text(label)))
}

func (p *Paginator) pageURL(page int) string {
	u := url.URL{}
	if p.url != nil {
		u = *p.url
	}
	values := u.Query()
	values.Set(paramPage, strconv.Itoa(page))
	u.RawQuery = values.Encode()
	return u.RequestURI()
}
