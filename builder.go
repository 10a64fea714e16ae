package cubepg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Builder assembles a parameterized SELECT statement. Mutators may run in
// any order; Build always emits clauses in SQL order. Placeholders are
// written as ? in Where clauses and rewritten to sequential $n, with the
// bound values collected in the same call, so numbering and the value list
// cannot drift apart.
type Builder struct {
	columns    []string
	table      string
	joins      []string
	conditions []condition
	groupBy    []string
	orderBy    []string
	limit      int
	offset     int
	argIndex   int
}

type condition struct {
	clause string
	args   []any
}

// NewBuilder creates an empty SELECT builder. From must be called before
// Build.
func NewBuilder() *Builder {
	return &Builder{
		limit:    -1,
		offset:   -1,
		argIndex: 1,
	}
}

// Select sets the projected columns. Without it the statement selects *.
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = columns
	return b
}

// From sets the table.
func (b *Builder) From(table string) *Builder {
	b.table = table
	return b
}

// Join appends an inner join. Joins render in call order.
func (b *Builder) Join(table, on string) *Builder {
	b.joins = append(b.joins, fmt.Sprintf("JOIN %s ON %s", table, on))
	return b
}

// LeftJoin appends a left outer join.
func (b *Builder) LeftJoin(table, on string) *Builder {
	b.joins = append(b.joins, fmt.Sprintf("LEFT JOIN %s ON %s", table, on))
	return b
}

// Where adds a condition; multiple conditions are joined with AND. Each ?
// in clause becomes the next sequential $n placeholder and binds the
// matching value from args.
func (b *Builder) Where(clause string, args ...any) *Builder {
	b.conditions = append(b.conditions, condition{
		clause: b.rewritePlaceholders(clause),
		args:   args,
	})
	return b
}

// GroupBy appends grouping columns.
func (b *Builder) GroupBy(columns ...string) *Builder {
	b.groupBy = append(b.groupBy, columns...)
	return b
}

// OrderBy appends a sort key. Direction is normalized to ASC or DESC;
// anything else falls back to ASC.
func (b *Builder) OrderBy(column string, direction string) *Builder {
	dir := strings.ToUpper(direction)
	if dir != "ASC" && dir != "DESC" {
		dir = "ASC"
	}
	b.orderBy = append(b.orderBy, column+" "+dir)
	return b
}

// OrderByDesc appends a descending sort key.
func (b *Builder) OrderByDesc(column string) *Builder {
	return b.OrderBy(column, "DESC")
}

// Limit sets the LIMIT clause. Unset (or negative) limits are omitted;
// Limit(0) renders LIMIT 0.
func (b *Builder) Limit(limit int) *Builder {
	b.limit = limit
	return b
}

// Offset sets the OFFSET clause. Unset (or negative) offsets are omitted.
func (b *Builder) Offset(offset int) *Builder {
	b.offset = offset
	return b
}

// rewritePlaceholders converts each ? to the next $n placeholder.
func (b *Builder) rewritePlaceholders(clause string) string {
	var result strings.Builder
	for i := 0; i < len(clause); i++ {
		if clause[i] == '?' {
			result.WriteString("$")
			result.WriteString(strconv.Itoa(b.argIndex))
			b.argIndex++
		} else {
			result.WriteByte(clause[i])
		}
	}
	return result.String()
}

// Build renders the statement and its bound values. The output depends
// only on what was set, never on mutator call order.
func (b *Builder) Build() (string, []any) {
	var sql strings.Builder
	var args []any

	sql.WriteString("SELECT ")
	if len(b.columns) == 0 {
		sql.WriteString("*")
	} else {
		sql.WriteString(strings.Join(b.columns, ", "))
	}

	sql.WriteString(" FROM ")
	sql.WriteString(b.table)

	for _, join := range b.joins {
		sql.WriteString(" ")
		sql.WriteString(join)
	}

	if len(b.conditions) > 0 {
		sql.WriteString(" WHERE ")
		clauses := make([]string, len(b.conditions))
		for i, cond := range b.conditions {
			clauses[i] = cond.clause
			args = append(args, cond.args...)
		}
		sql.WriteString(strings.Join(clauses, " AND "))
	}

	if len(b.groupBy) > 0 {
		sql.WriteString(" GROUP BY ")
		sql.WriteString(strings.Join(b.groupBy, ", "))
	}

	if len(b.orderBy) > 0 {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(b.orderBy, ", "))
	}

	if b.limit >= 0 {
		sql.WriteString(" LIMIT ")
		sql.WriteString(strconv.Itoa(b.limit))
	}

	if b.offset >= 0 {
		sql.WriteString(" OFFSET ")
		sql.WriteString(strconv.Itoa(b.offset))
	}

	return sql.String(), args
}

// Execute builds the statement and runs it through db, returning every
// row. It is shorthand for Build followed by QueryAll.
func (b *Builder) Execute(ctx context.Context, db Querier) ([]Row, error) {
	sql, args := b.Build()
	return QueryAll(ctx, db, sql, args...)
}
