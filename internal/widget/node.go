// Package widget is a small HTML toolkit on top of golang.org/x/net/html:
// element helpers, a sectioned table, content containers and the paginator
// and quick search controls.
package widget

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attrs maps attribute names to values. Rendered in name order.
type Attrs map[string]string

// El creates an element with attributes and children.
func El(a atom.Atom, attrs Attrs, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: attrs[k]})
	}
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

// Text creates an escaped text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// AddClass appends class names to the class attribute of n.
func AddClass(n *html.Node, classes ...string) {
	for i, a := range n.Attr {
		if a.Key == "class" {
			n.Attr[i].Val = strings.TrimSpace(a.Val + " " + strings.Join(classes, " "))
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: strings.Join(classes, " ")})
}

// Render writes n to w.
func Render(w io.Writer, n *html.Node) error {
	return html.Render(w, n)
}

// String renders n, returning an empty string on error.
func String(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// Renderable produces a node when its container is rendered.
type Renderable interface {
	Render(ctx context.Context) (*html.Node, error)
}

type staticNode struct {
	n *html.Node
}

func (s staticNode) Render(context.Context) (*html.Node, error) {
	return s.n, nil
}

// Static wraps an already built node.
func Static(n *html.Node) Renderable {
	return staticNode{n: n}
}

// Container collects renderables in order.
type Container struct {
	items []Renderable
}

// Add appends items.
func (c *Container) Add(items ...Renderable) {
	c.items = append(c.items, items...)
}

// Prepend inserts items before the existing ones.
func (c *Container) Prepend(items ...Renderable) {
	c.items = append(append(make([]Renderable, 0, len(items)+len(c.items)), items...), c.items...)
}

// Len returns the number of items.
func (c *Container) Len() int {
	return len(c.items)
}

// Items returns the items in order.
func (c *Container) Items() []Renderable {
	return c.items
}

// Render renders every item. The first error stops rendering.
func (c *Container) Render(ctx context.Context) ([]*html.Node, error) {
	out := make([]*html.Node, 0, len(c.items))
	for _, it := range c.items {
		n, err := it.Render(ctx)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}
