package widget

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Table is an HTML table made of thead/tbody sections rendered in the order
// they were started.
type Table struct {
	attrs    Attrs
	sections []*html.Node
	header   *html.Node
	body     *html.Node
}

// NewTable creates an empty table with attrs.
func NewTable(attrs Attrs) *Table {
	return &Table{attrs: attrs}
}

// Header returns the current thead, starting one if needed.
func (t *Table) Header() *html.Node {
	if t.header == nil {
		return t.NextHeader()
	}
	return t.header
}

// Body returns the current tbody, starting one if needed.
func (t *Table) Body() *html.Node {
	if t.body == nil {
		return t.NextBody()
	}
	return t.body
}

// NextHeader starts a new thead after the existing sections.
func (t *Table) NextHeader() *html.Node {
	t.header = El(atom.Thead, nil)
	t.sections = append(t.sections, t.header)
	return t.header
}

// NextBody starts a new tbody after the existing sections.
func (t *Table) NextBody() *html.Node {
	t.body = El(atom.Tbody, nil)
	t.sections = append(t.sections, t.body)
	return t.body
}

// Sections returns the thead/tbody sections in order.
func (t *Table) Sections() []*html.Node {
	return t.sections
}

// Node builds the table element.
func (t *Table) Node() *html.Node {
	n := El(atom.Table, t.attrs)
	for _, s := range t.sections {
		// sections are detached so Node can be called more than once
		if s.Parent != nil {
			s.Parent.RemoveChild(s)
		}
		n.AppendChild(s)
	}
	return n
}

// Row builds a tr with one cell per value.
func Row(cell atom.Atom, values ...string) *html.Node {
	tr := El(atom.Tr, nil)
	for _, v := range values {
		tr.AppendChild(El(cell, nil, Text(v)))
	}
	return tr
}
