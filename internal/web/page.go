// Package web renders dashboard pages around the widgets a request adds.
package web

import (
	"bytes"
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"go-am-realtime-report-ui/internal/benchmark"
	"go-am-realtime-report-ui/internal/widget"
)

// Page is the request-scoped controller tables render into.
type Page struct {
	title    string
	url      *url.URL
	content  widget.Container
	actions  widget.Container
	controls widget.Container
}

// NewPage creates a page for r.
func NewPage(r *nethttp.Request, title string) *Page {
	u := *r.URL
	return &Page{title: title, url: &u}
}

func (p *Page) URL() *url.URL { return p.url }

func (p *Page) Content() *widget.Container { return &p.content }

func (p *Page) Actions() *widget.Container { return &p.actions }

func (p *Page) Controls() *widget.Container { return &p.controls }

// Write renders the page into w. Nothing is written when rendering fails.
func (p *Page) Write(ctx context.Context, w nethttp.ResponseWriter) error {
	controls, err := p.controls.Render(ctx)
	if err != nil {
		return err
	}
	content, err := p.content.Render(ctx)
	if err != nil {
		return err
	}
	// actions last, the paginator counts the query after the content fetched it
	actions, err := p.actions.Render(ctx)
	if err != nil {
		return err
	}

	head := widget.El(atom.Head, nil,
		widget.El(atom.Meta, widget.Attrs{"charset": "utf-8"}),
		widget.El(atom.Title, nil, widget.Text(p.title)),
		widget.El(atom.Style, nil, widget.Text(pageCSS)),
	)
	controlsDiv := widget.El(atom.Div, widget.Attrs{"class": "controls"},
		widget.El(atom.H1, nil, widget.Text(p.title)))
	for _, n := range controls {
		controlsDiv.AppendChild(n)
	}
	for _, n := range actions {
		controlsDiv.AppendChild(n)
	}
	contentDiv := widget.El(atom.Div, widget.Attrs{"class": "content"})
	for _, n := range content {
		contentDiv.AppendChild(n)
	}
	body := widget.El(atom.Body, nil, controlsDiv, contentDiv)
	if p.url.Query().Get("benchmark") == "1" {
		body.AppendChild(benchmarkNode(benchmark.FromContext(ctx)))
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(widget.El(atom.Html, widget.Attrs{"lang": "en"}, head, body))

	var buf bytes.Buffer
	if err := widget.Render(&buf, doc); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, err = w.Write(buf.Bytes())
	return err
}

func benchmarkNode(b *benchmark.Benchmark) *html.Node {
	ul := widget.El(atom.Ul, nil)
	for _, m := range b.Marks() {
		ul.AppendChild(widget.El(atom.Li, nil,
			widget.Text(fmt.Sprintf("%s (+%s)", m.Message, m.Since))))
	}
	return widget.El(atom.Div, widget.Attrs{"class": "benchmark"}, ul)
}

const pageCSS = `
body { margin: 0; background: #f7f7f7; color: #333; font-family: "Open Sans", "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 14px; }
h1 { margin: 0 0 8px; font-size: 22px; font-weight: 300; color: #fff; }
.controls { background: linear-gradient(to right, #0e5d8f 0, #0971b2 100%); padding: 12px 15px; }
.content { padding: 12px 15px; }
.quicksearch input[type=text] { padding: 4px 6px; border: 1px solid #c7d7e5; }
.pagination-control ul { list-style: none; display: flex; gap: 4px; padding: 0; margin: 8px 0 0; }
.pagination-control li a, .pagination-control li span { display: block; padding: 2px 8px; background: #f3f8fc; color: #0e5d8f; }
.pagination-control li.active a { background: #fff; font-weight: 600; }
.pagination-control li.disabled span { color: #999; }
.common-table { width: 100%; border-collapse: collapse; background: #fff; }
.common-table th, .common-table td { border-bottom: 1px solid #eee; padding: 6px 8px; text-align: left; }
.common-table th { background: #f0f0f0; }
.table-header-day { color: #0e5d8f; font-weight: 600; }
.state-SUCCESS { color: #2e7d32; }
.state-FAILED, .state-stuck { color: #c0392b; }
.state-RUNNING, .state-WAITING { color: #0971b2; }
.badge { margin-left: 6px; font-size: 11px; text-transform: uppercase; }
.sql-dump { background: #fff; border: 1px solid #ddd; padding: 8px; white-space: pre-wrap; }
.benchmark { font-size: 12px; color: #777; padding: 0 15px 12px; }
`
