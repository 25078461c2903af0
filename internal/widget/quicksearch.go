package widget

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html/atom"
)

// QuickSearchParam is the URL parameter carrying the quick search term.
const QuickSearchParam = "q"

// ControlsAndContent is the page controller a table renders itself into.
type ControlsAndContent interface {
	URL() *url.URL
	Content() *Container
	Actions() *Container
	Controls() *Container
}

// QuickSearch adds a search form to controls and returns the trimmed term
// from u. Other URL parameters survive the form submit, except the page.
func QuickSearch(controls *Container, u *url.URL) string {
	var values url.Values
	path := ""
	if u != nil {
		values = u.Query()
		path = u.Path
	}
	term := strings.TrimSpace(values.Get(QuickSearchParam))

	form := El(atom.Form, Attrs{
		"class":  "quicksearch",
		"method": "get",
		"action": path,
		"role":   "search",
	})
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != QuickSearchParam && k != paramPage {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range values[k] {
			form.AppendChild(El(atom.Input, Attrs{"type": "hidden", "name": k, "value": v}))
		}
	}
	form.AppendChild(El(atom.Input, Attrs{
		"type":         "text",
		"name":         QuickSearchParam,
		"value":        term,
		"placeholder":  "Search...",
		"autocomplete": "off",
	}))
	controls.Add(Static(form))
	return term
}
