package query

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"go-am-realtime-report-ui/internal/filter"
)

// likeEscape works in both MySQL and SQLite, unlike a backslash literal.
const likeEscape = "!"

var columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ApplyToQuery compiles f onto q as an additional WHERE condition. Empty
// chains are skipped. A filter that cannot be rendered records an error on
// q which is returned by the next Count or Rows call.
func ApplyToQuery(f filter.Filter, q *Select) {
	if f == nil || q.err != nil {
		return
	}
	sqlText, args, err := Render(f)
	if err != nil {
		q.err = err
		return
	}
	if sqlText == "" {
		return
	}
	q.filters = append(q.filters, f)
	q.Where(sqlText, args...)
}

// Render compiles f to a SQL condition with placeholders.
func Render(f filter.Filter) (string, []any, error) {
	switch x := f.(type) {
	case *filter.Chain:
		return renderChain(x)
	case *filter.Condition:
		return renderCondition(x)
	case nil:
		return "", nil, nil
	default:
		return "", nil, fmt.Errorf("query: unsupported filter %T", f)
	}
}

func renderChain(c *filter.Chain) (string, []any, error) {
	if c.IsEmpty() {
		return "", nil, nil
	}
	parts := make([]string, 0, len(c.Filters))
	var args []any
	for _, sub := range c.Filters {
		s, a, err := Render(sub)
		if err != nil {
			return "", nil, err
		}
		if s == "" {
			continue
		}
		parts = append(parts, s)
		args = append(args, a...)
	}
	if len(parts) == 0 {
		return "", nil, nil
	}
	switch c.Op {
	case filter.OpAll:
		return "(" + strings.Join(parts, " AND ") + ")", args, nil
	case filter.OpAny:
		return "(" + strings.Join(parts, " OR ") + ")", args, nil
	case filter.OpNone:
		return "NOT (" + strings.Join(parts, " OR ") + ")", args, nil
	default:
		return "", nil, fmt.Errorf("query: unknown filter operator %q", c.Op)
	}
}

func renderCondition(c *filter.Condition) (string, []any, error) {
	if !columnPattern.MatchString(c.Column) {
		return "", nil, fmt.Errorf("query: invalid column %q", c.Column)
	}

	if c.IsWildcard() {
		op := "LIKE"
		if c.Sign == "!=" {
			op = "NOT LIKE"
		}
		return fmt.Sprintf("%s %s ? ESCAPE '%s'", c.Column, op, likeEscape), []any{likePattern(c.Value.(string))}, nil
	}

	if c.Value == nil {
		switch c.Sign {
		case "=":
			return c.Column + " IS NULL", nil, nil
		case "!=":
			return c.Column + " IS NOT NULL", nil, nil
		}
		return "", nil, fmt.Errorf("query: cannot compare %s with NULL using %q", c.Column, c.Sign)
	}

	if values, ok := sliceValues(c.Value); ok {
		if len(values) == 0 {
			if c.Sign == "!=" {
				return "1 = 1", nil, nil
			}
			return "1 = 0", nil, nil
		}
		op := "IN"
		switch c.Sign {
		case "=":
		case "!=":
			op = "NOT IN"
		default:
			return "", nil, fmt.Errorf("query: cannot compare %s with a list using %q", c.Column, c.Sign)
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return fmt.Sprintf("%s %s (%s)", c.Column, op, marks), values, nil
	}

	switch c.Sign {
	case "=", "<", "<=", ">", ">=":
		return fmt.Sprintf("%s %s ?", c.Column, c.Sign), []any{c.Value}, nil
	case "!=":
		return c.Column + " <> ?", []any{c.Value}, nil
	default:
		return "", nil, fmt.Errorf("query: unsupported sign %q", c.Sign)
	}
}

func likePattern(v string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_", "*", "%")
	return r.Replace(v)
}

func sliceValues(v any) ([]any, bool) {
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
