// Package query builds parameterized SELECT statements from predicate trees.
// User values only ever travel as bound arguments; identifiers are validated
// and quoted.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned for table or column names that cannot be
// safely quoted.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Placeholder selects the bind-parameter syntax of the target driver.
type Placeholder int

const (
	Dollar   Placeholder = iota // $1, $2 (postgres)
	Question                    // ?, ? (sqlite)
)

// Column names may contain dots ("property.location.postalCode"); they are
// quoted as a single identifier.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// QuoteColumn validates and double-quotes a column name.
func QuoteColumn(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return `"` + name + `"`, nil
}

// QuoteTable validates and quotes a possibly schema-qualified table name,
// quoting each dotted part separately.
func QuoteTable(name string) (string, error) {
	parts := strings.Split(name, ".")
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || !identRe.MatchString(p) {
			return "", fmt.Errorf("%w: table %q", ErrInvalidIdentifier, name)
		}
		quoted = append(quoted, `"`+p+`"`)
	}
	return strings.Join(quoted, "."), nil
}

// Predicate is a node of a WHERE clause.
type Predicate interface {
	render(b *builder) error
}

type builder struct {
	ph   Placeholder
	sb   strings.Builder
	args []any
}

func (b *builder) bind(v any) {
	b.args = append(b.args, v)
	if b.ph == Dollar {
		fmt.Fprintf(&b.sb, "$%d", len(b.args))
		return
	}
	b.sb.WriteByte('?')
}

type and []Predicate

// And joins predicates; nil children are skipped and an empty conjunction
// matches every row.
func And(ps ...Predicate) Predicate {
	out := make(and, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (a and) render(b *builder) error {
	if len(a) == 0 {
		b.sb.WriteString("1 = 1")
		return nil
	}
	for i, p := range a {
		if i > 0 {
			b.sb.WriteString(" AND ")
		}
		b.sb.WriteByte('(')
		if err := p.render(b); err != nil {
			return err
		}
		b.sb.WriteByte(')')
	}
	return nil
}

type in struct {
	col    string
	values []any
}

// In matches rows whose column equals one of values. An empty value list
// matches nothing.
func In(col string, values ...any) Predicate {
	return in{col: col, values: values}
}

func (p in) render(b *builder) error {
	col, err := QuoteColumn(p.col)
	if err != nil {
		return err
	}
	if len(p.values) == 0 {
		b.sb.WriteString("1 = 0")
		return nil
	}
	b.sb.WriteString(col)
	b.sb.WriteString(" IN (")
	for i, v := range p.values {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.bind(v)
	}
	b.sb.WriteByte(')')
	return nil
}

type between struct {
	col    string
	lo, hi any
}

// Between matches lo <= column <= hi.
func Between(col string, lo, hi any) Predicate {
	return between{col: col, lo: lo, hi: hi}
}

func (p between) render(b *builder) error {
	col, err := QuoteColumn(p.col)
	if err != nil {
		return err
	}
	b.sb.WriteString(col)
	b.sb.WriteString(" BETWEEN ")
	b.bind(p.lo)
	b.sb.WriteString(" AND ")
	b.bind(p.hi)
	return nil
}

type compare struct {
	col string
	op  string
	v   any
}

// Gte matches column >= v.
func Gte(col string, v any) Predicate {
	return compare{col: col, op: ">=", v: v}
}

// Eq matches column = v.
func Eq(col string, v any) Predicate {
	return compare{col: col, op: "=", v: v}
}

func (p compare) render(b *builder) error {
	col, err := QuoteColumn(p.col)
	if err != nil {
		return err
	}
	b.sb.WriteString(col)
	b.sb.WriteByte(' ')
	b.sb.WriteString(p.op)
	b.sb.WriteByte(' ')
	b.bind(p.v)
	return nil
}

// Select describes a single-table SELECT.
type Select struct {
	Table   string
	Columns []string // empty selects *
	Where   Predicate
	OrderBy string
	Desc    bool
	Limit   int // 0 means unlimited
}

// Build renders the statement and its bound arguments.
func (s Select) Build(ph Placeholder) (string, []any, error) {
	table, err := QuoteTable(s.Table)
	if err != nil {
		return "", nil, err
	}

	b := &builder{ph: ph}
	b.sb.WriteString("SELECT ")
	if len(s.Columns) == 0 {
		b.sb.WriteByte('*')
	}
	for i, c := range s.Columns {
		q, err := QuoteColumn(c)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.sb.WriteString(q)
	}
	b.sb.WriteString(" FROM ")
	b.sb.WriteString(table)

	if s.Where != nil {
		b.sb.WriteString(" WHERE ")
		if err := s.Where.render(b); err != nil {
			return "", nil, err
		}
	}

	if s.OrderBy != "" {
		q, err := QuoteColumn(s.OrderBy)
		if err != nil {
			return "", nil, err
		}
		b.sb.WriteString(" ORDER BY ")
		b.sb.WriteString(q)
		if s.Desc {
			b.sb.WriteString(" DESC")
		}
	}

	if s.Limit > 0 {
		b.sb.WriteString(" LIMIT ")
		b.bind(s.Limit)
	}

	return b.sb.String(), b.args, nil
}
