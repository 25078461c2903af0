// Package filter builds boolean filter expression trees that can be compiled
// onto a query.
package filter

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Filter is either a Chain of sub filters or a single Condition.
type Filter interface {
	String() string
	filter()
}

// Operator combines the members of a Chain.
type Operator string

const (
	OpAll  Operator = "&"
	OpAny  Operator = "|"
	OpNone Operator = "!"
)

// Chain is a boolean combination of filters.
type Chain struct {
	Op      Operator
	Filters []Filter
}

// MatchAll returns a conjunction of the given filters.
func MatchAll(filters ...Filter) *Chain {
	return &Chain{Op: OpAll, Filters: filters}
}

// MatchAny returns a disjunction of the given filters.
func MatchAny(filters ...Filter) *Chain {
	return &Chain{Op: OpAny, Filters: filters}
}

// MatchNone matches when none of the given filters match.
func MatchNone(filters ...Filter) *Chain {
	return &Chain{Op: OpNone, Filters: filters}
}

// AddFilter appends f to the chain and returns the chain.
func (c *Chain) AddFilter(f Filter) *Chain {
	if f != nil {
		c.Filters = append(c.Filters, f)
	}
	return c
}

// IsEmpty reports whether the chain has no members.
func (c *Chain) IsEmpty() bool {
	return c == nil || len(c.Filters) == 0
}

func (c *Chain) String() string {
	if c.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(c.Filters))
	for _, f := range c.Filters {
		parts = append(parts, f.String())
	}
	if c.Op == OpNone {
		return "!(" + strings.Join(parts, "|") + ")"
	}
	return "(" + strings.Join(parts, string(c.Op)) + ")"
}

func (*Chain) filter() {}

// Condition compares a column with a value. A string value containing "*"
// together with sign "=" or "!=" is a wildcard pattern.
type Condition struct {
	Column string
	Sign   string
	Value  any
}

// Expression returns a single column condition.
func Expression(column, sign string, value any) *Condition {
	return &Condition{Column: column, Sign: sign, Value: value}
}

// IsWildcard reports whether the condition value is a wildcard pattern.
func (c *Condition) IsWildcard() bool {
	s, ok := c.Value.(string)
	return ok && strings.Contains(s, "*") && (c.Sign == "=" || c.Sign == "!=")
}

func (c *Condition) String() string {
	return fmt.Sprintf("%s%s%v", c.Column, c.Sign, c.Value)
}

func (*Condition) filter() {}

// FromValues builds a conjunction of equality conditions from URL parameters
// whose names are listed in allowed. Repeated parameters match any of their
// values.
func FromValues(values url.Values, allowed []string) *Chain {
	out := MatchAll()
	keys := make([]string, 0, len(allowed))
	keys = append(keys, allowed...)
	sort.Strings(keys)
	for _, key := range keys {
		raw, ok := values[key]
		if !ok {
			continue
		}
		vals := make([]string, 0, len(raw))
		for _, v := range raw {
			if v = strings.TrimSpace(v); v != "" {
				vals = append(vals, v)
			}
		}
		switch len(vals) {
		case 0:
		case 1:
			out.AddFilter(Expression(key, "=", vals[0]))
		default:
			alt := MatchAny()
			for _, v := range vals {
				alt.AddFilter(Expression(key, "=", v))
			}
			out.AddFilter(alt)
		}
	}
	return out
}
