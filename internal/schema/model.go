// Package schema holds the backend-agnostic model of the warehouse tables and
// the Dialect contract that backends implement to render it.
//
// The model is deliberately flat: a Table is a name, a temporary flag and an
// ordered list of columns. Rendering (quoting, identity columns, IF NOT EXISTS
// guards, temp-table naming) is the Dialect's job.
package schema

import (
	"fmt"
	"strings"
)

// Type is a logical column type.
type Type int

const (
	// Identity is an auto-incrementing integer surrogate key seeded at 0
	// (IDENTITY(0,1) on Redshift).
	Identity Type = iota
	Int
	BigInt
	Varchar // Size 0 means the backend's default length
	Numeric
	Real
	Timestamp
)

func (t Type) String() string {
	switch t {
	case Identity:
		return "identity"
	case Int:
		return "int"
	case BigInt:
		return "bigint"
	case Varchar:
		return "varchar"
	case Numeric:
		return "numeric"
	case Real:
		return "real"
	case Timestamp:
		return "timestamp"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Column describes a single column.
type Column struct {
	Name       string
	Type       Type
	Size       int // length for Varchar; 0 = backend default
	NotNull    bool
	PrimaryKey bool
}

// Table is an ordered column list plus its lifetime.
type Table struct {
	Name string
	// Temporary tables live for one warehouse session.
	Temporary bool
	Columns   []Column
}

// PrimaryKey returns the primary-key column names in declaration order.
func (t Table) PrimaryKey() []string {
	var pk []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// Column returns the named column (case-insensitive).
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// LoadColumns returns the columns a bulk load populates: every column except
// identity columns, which the warehouse assigns.
func (t Table) LoadColumns() []Column {
	out := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Type != Identity {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the names of cols.
func Names(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// Dialect renders the model and the parameter syntax for one backend.
type Dialect interface {
	// Name identifies the dialect, e.g. "redshift".
	Name() string
	// Quote quotes a single identifier.
	Quote(ident string) string
	// TableRef returns the quoted reference for t, including any temp-table
	// naming convention (e.g. #name on SQL Server).
	TableRef(t Table) string
	// Placeholder returns the bind parameter for 1-based position n.
	Placeholder(n int) string
	// ColumnType renders the SQL type of c.
	ColumnType(c Column) string
	// CreateTable renders a guarded CREATE statement; it must be a no-op when
	// the table already exists.
	CreateTable(t Table) string
	// DropTable renders DROP TABLE, guarded with IF EXISTS when ifExists.
	DropTable(t Table, ifExists bool) string
	// Truncate renders a statement that removes every row of t.
	Truncate(t Table) string
	// SelectFirst renders "SELECT <list> <rest>" limited to one row.
	SelectFirst(list, rest string) string
	// ServerCopy reports whether the backend can COPY directly from object
	// storage.
	ServerCopy() bool
}

// ColumnDefs renders the parenthesized column/constraint list shared by all
// dialects:
//
//	(
//	    col1 TYPE [NOT NULL],
//	    ...,
//	    PRIMARY KEY (pk)
//	)
func ColumnDefs(d Dialect, t Table) string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		def := d.Quote(c.Name) + " " + d.ColumnType(c)
		if c.NotNull || c.PrimaryKey {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if pk := t.PrimaryKey(); len(pk) > 0 {
		quoted := make([]string, len(pk))
		for i, k := range pk {
			quoted[i] = d.Quote(k)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}
	return "(\n    " + strings.Join(defs, ",\n    ") + "\n)"
}

// QuoteList quotes each name with d and joins them with ", ".
func QuoteList(d Dialect, names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.Quote(n)
	}
	return strings.Join(out, ", ")
}

// Placeholders returns n placeholders starting at position from (1-based).
func Placeholders(d Dialect, from, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = d.Placeholder(from + i)
	}
	return strings.Join(out, ", ")
}
