package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/dynafix/dialect"
)

// Builder is a dialect aware SQL string builder. It quotes identifiers and
// numbers placeholders the way the dialect expects.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
}

// Dialect returns a new Builder for the given dialect.
func Dialect(name string) *Builder {
	return &Builder{dialect: name}
}

// Quote quotes an identifier.
func (b *Builder) Quote(ident string) string {
	if b.dialect == dialect.MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Ident writes a quoted identifier.
func (b *Builder) Ident(ident string) *Builder {
	b.sb.WriteString(b.Quote(ident))
	return b
}

// WriteString writes a raw string.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Arg writes a placeholder for v and records it as argument.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	if b.dialect == dialect.Postgres {
		b.sb.WriteString("$" + strconv.Itoa(len(b.args)))
	} else {
		b.sb.WriteString("?")
	}
	return b
}

// Query returns the query and its arguments.
func (b *Builder) Query() (string, []any) {
	args := b.args
	if args == nil {
		args = []any{}
	}
	return b.sb.String(), args
}

// InsertBuilder builds INSERT statements.
type InsertBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    []any
	returning string
}

// Insert returns an InsertBuilder for the given table.
func (b *Builder) Insert(table string) *InsertBuilder {
	return &InsertBuilder{dialect: b.dialect, table: table}
}

// Set adds a column value.
func (i *InsertBuilder) Set(column string, v any) *InsertBuilder {
	i.columns = append(i.columns, column)
	i.values = append(i.values, v)
	return i
}

// Returning sets the column returned by the statement. It is only used by
// dialects that support RETURNING; the others read the last insert id.
func (i *InsertBuilder) Returning(column string) *InsertBuilder {
	i.returning = column
	return i
}

// HasReturning reports if the statement returns the inserted key as a row.
func (i *InsertBuilder) HasReturning() bool {
	return i.returning != "" && i.dialect == dialect.Postgres
}

// Query returns the INSERT statement and its arguments.
func (i *InsertBuilder) Query() (string, []any) {
	b := Dialect(i.dialect)
	b.WriteString("INSERT INTO ").Ident(i.table)
	if len(i.columns) == 0 {
		if i.dialect == dialect.MySQL {
			b.WriteString(" () VALUES ()")
		} else {
			b.WriteString(" DEFAULT VALUES")
		}
	} else {
		b.WriteString(" (")
		for j, c := range i.columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.Ident(c)
		}
		b.WriteString(") VALUES (")
		for j, v := range i.values {
			if j > 0 {
				b.WriteString(", ")
			}
			b.Arg(v)
		}
		b.WriteString(")")
	}
	if i.HasReturning() {
		b.WriteString(" RETURNING ").Ident(i.returning)
	}
	return b.Query()
}
