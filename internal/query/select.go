// Package query builds SELECT statements that tables page, count and filter.
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-am-realtime-report-ui/internal/filter"
)

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type clause struct {
	sql  string
	args []any
}

// Select is a mutable SELECT statement. Filters are applied in place.
type Select struct {
	db      Queryer
	from    string
	columns []string
	joins   []clause
	where   []clause
	groupBy []string
	having  []clause
	filters []filter.Filter
	order   []string
	limit   int
	offset  int
	err     error
}

// From starts a SELECT of columns from table. No columns selects "*".
func From(db Queryer, table string, columns ...string) *Select {
	return &Select{db: db, from: table, columns: columns}
}

// Columns replaces the selected columns.
func (q *Select) Columns(columns ...string) *Select {
	q.columns = columns
	return q
}

// Join appends a raw JOIN clause, e.g. "LEFT JOIN Jobs j ON j.SIPUUID = t.transferUUID".
func (q *Select) Join(join string, args ...any) *Select {
	q.joins = append(q.joins, clause{sql: join, args: args})
	return q
}

// Where adds a raw condition joined with AND.
func (q *Select) Where(cond string, args ...any) *Select {
	q.where = append(q.where, clause{sql: cond, args: args})
	return q
}

// GroupBy appends GROUP BY expressions.
func (q *Select) GroupBy(exprs ...string) *Select {
	q.groupBy = append(q.groupBy, exprs...)
	return q
}

// Having adds a raw HAVING condition joined with AND. It only applies to
// grouped statements.
func (q *Select) Having(cond string, args ...any) *Select {
	q.having = append(q.having, clause{sql: cond, args: args})
	return q
}

// OrderBy appends an ORDER BY expression.
func (q *Select) OrderBy(expr string) *Select {
	q.order = append(q.order, expr)
	return q
}

// Limit sets the page window. A non-positive limit removes it.
func (q *Select) Limit(limit, offset int) {
	if offset < 0 {
		offset = 0
	}
	q.limit = limit
	q.offset = offset
}

// Err returns the first error recorded while building the query.
func (q *Select) Err() error {
	return q.err
}

// Filter returns the conjunction of all filters applied so far.
func (q *Select) Filter() filter.Filter {
	return filter.MatchAll(q.filters...)
}

// SQL renders the statement with placeholders.
func (q *Select) SQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	cols := "*"
	if len(q.columns) > 0 {
		cols = strings.Join(q.columns, ", ")
	}
	body, args := q.bodySQL()
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s", cols, q.from, body)
	if len(q.order) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.order, ", "))
	}
	if q.limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.limit, q.offset)
	}
	return b.String(), args, nil
}

// CountSQL renders a COUNT(*) over the filtered statement without its window.
// Grouped statements count their groups.
func (q *Select) CountSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	body, args := q.bodySQL()
	if len(q.groupBy) > 0 {
		return "SELECT COUNT(*) FROM (SELECT 1 FROM " + q.from + body + ") counted", args, nil
	}
	return "SELECT COUNT(*) FROM " + q.from + body, args, nil
}

// bodySQL renders joins, WHERE, GROUP BY and HAVING.
func (q *Select) bodySQL() (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	for _, j := range q.joins {
		b.WriteString(" ")
		b.WriteString(j.sql)
		args = append(args, j.args...)
	}
	if where, whereArgs := joinClauses(q.where); where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
		args = append(args, whereArgs...)
	}
	if len(q.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(q.groupBy, ", "))
		if having, havingArgs := joinClauses(q.having); having != "" {
			b.WriteString(" HAVING ")
			b.WriteString(having)
			args = append(args, havingArgs...)
		}
	}
	return b.String(), args
}

func joinClauses(clauses []clause) (string, []any) {
	if len(clauses) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(clauses))
	var args []any
	for _, c := range clauses {
		parts = append(parts, c.sql)
		args = append(args, c.args...)
	}
	return strings.Join(parts, " AND "), args
}

// Count returns the number of rows matching the statement, ignoring the page window.
func (q *Select) Count(ctx context.Context) (int, error) {
	if q.db == nil {
		return 0, errors.New("query: no database")
	}
	stmt, args, err := q.CountSQL()
	if err != nil {
		return 0, err
	}
	var n int
	if err := q.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Rows executes the statement.
func (q *Select) Rows(ctx context.Context) (*sql.Rows, error) {
	if q.db == nil {
		return nil, errors.New("query: no database")
	}
	stmt, args, err := q.SQL()
	if err != nil {
		return nil, err
	}
	return q.db.QueryContext(ctx, stmt, args...)
}

// Dump renders the statement with its arguments inlined. The result is meant
// for display and must never be executed.
func (q *Select) Dump() string {
	stmt, args, err := q.SQL()
	if err != nil {
		return "-- " + err.Error()
	}
	var b strings.Builder
	i := 0
	for _, r := range stmt {
		if r == '?' && i < len(args) {
			b.WriteString(literal(args[i]))
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(x), "'", "''") + "'"
	case time.Time:
		return "'" + x.UTC().Format("2006-01-02 15:04:05") + "'"
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}
