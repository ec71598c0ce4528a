// Package query builds the multi-stage read queries behind the joined,
// paginated API views. A Pipeline is composed stage by stage (match, join,
// project, sort, paginate) and compiled to a single SQL statement, so the
// shape of every view query can be asserted in isolation from the database.
package query

import (
	"fmt"
	"strings"
)

const (
	// DefaultPageSize applies when a caller paginates without a size.
	DefaultPageSize = 10
	// MaxPageSize bounds how many documents one page may carry.
	MaxPageSize = 100
)

type joinClause struct {
	table string
	on    string
	args  []any
}

type whereClause struct {
	expr string
	args []any
}

type projection struct {
	expr string
	args []any
}

// Pipeline accumulates stages over a base table. The zero value is not
// usable; start with From.
type Pipeline struct {
	table   string
	selects []projection
	joins   []joinClause
	wheres  []whereClause
	sorts   []string

	page, size int
	paginated  bool
}

// From starts a pipeline over the given base table (optionally aliased,
// e.g. "videos v").
func From(table string) *Pipeline {
	return &Pipeline{table: table}
}

// Match appends a filter stage. Use "?" placeholders for arguments; they are
// rebound to positional parameters at compile time. Multiple Match stages
// combine with AND.
func (p *Pipeline) Match(expr string, args ...any) *Pipeline {
	p.wheres = append(p.wheres, whereClause{expr: expr, args: args})
	return p
}

// LeftJoin appends a join stage against a referenced table. One-to-one joins
// flatten into the projected row; a missing relation yields NULL columns,
// never an error.
func (p *Pipeline) LeftJoin(table, on string, args ...any) *Pipeline {
	p.joins = append(p.joins, joinClause{table: table, on: on, args: args})
	return p
}

// Project appends plain output columns.
func (p *Pipeline) Project(cols ...string) *Pipeline {
	for _, col := range cols {
		p.selects = append(p.selects, projection{expr: col})
	}
	return p
}

// ProjectExpr appends a computed output column (for example a correlated
// count subquery) with its arguments.
func (p *Pipeline) ProjectExpr(expr string, args ...any) *Pipeline {
	p.selects = append(p.selects, projection{expr: expr, args: args})
	return p
}

// Sort appends ordering expressions applied after all joins and filters.
func (p *Pipeline) Sort(exprs ...string) *Pipeline {
	p.sorts = append(p.sorts, exprs...)
	return p
}

// Paginate bounds the result to one page. Pages are 1-based; values below 1
// clamp to the first page, sizes clamp into [1, MaxPageSize]. A page past the
// end of the data compiles to a query that returns zero rows.
func (p *Pipeline) Paginate(page, size int) *Pipeline {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	p.page = page
	p.size = size
	p.paginated = true
	return p
}

// Page reports the effective page and size set by Paginate.
func (p *Pipeline) Page() (page, size int) {
	return p.page, p.size
}

// SQL compiles the pipeline into a SELECT statement with positional
// parameters in stage order: projections, joins, filters, pagination.
func (p *Pipeline) SQL() (string, []any) {
	var (
		b    strings.Builder
		args []any
	)

	b.WriteString("SELECT ")
	if len(p.selects) == 0 {
		b.WriteString("*")
	}
	for i, sel := range p.selects {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sel.expr)
		args = append(args, sel.args...)
	}

	b.WriteString(" FROM ")
	b.WriteString(p.table)

	for _, j := range p.joins {
		b.WriteString(" LEFT JOIN ")
		b.WriteString(j.table)
		b.WriteString(" ON ")
		b.WriteString(j.on)
		args = append(args, j.args...)
	}

	p.writeWhere(&b, &args)

	if len(p.sorts) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(p.sorts, ", "))
	}

	if p.paginated {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, p.size, (p.page-1)*p.size)
	}

	return rebind(b.String()), args
}

// CountSQL compiles a companion COUNT(*) statement over the same base table,
// joins, and filters, ignoring projection, sort, and pagination stages.
func (p *Pipeline) CountSQL() (string, []any) {
	var (
		b    strings.Builder
		args []any
	)

	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(p.table)

	for _, j := range p.joins {
		b.WriteString(" LEFT JOIN ")
		b.WriteString(j.table)
		b.WriteString(" ON ")
		b.WriteString(j.on)
		args = append(args, j.args...)
	}

	p.writeWhere(&b, &args)

	return rebind(b.String()), args
}

func (p *Pipeline) writeWhere(b *strings.Builder, args *[]any) {
	for i, w := range p.wheres {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString("(")
		b.WriteString(w.expr)
		b.WriteString(")")
		*args = append(*args, w.args...)
	}
}

// rebind rewrites "?" placeholders into pgx positional parameters.
func rebind(sql string) string {
	var b strings.Builder
	n := 0
	for _, r := range sql {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
