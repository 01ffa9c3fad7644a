// Package ddl contains the SQLite dialect.
package ddl

import (
	"fmt"
	"strings"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
)

// Dialect renders schema objects for SQLite.
type Dialect struct{}

var _ schema.Dialect = Dialect{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Quote(id string) string { return quoteIdent(id) }

func (Dialect) TableRef(t schema.Table) string { return quoteIdent(t.Name) }

func (Dialect) Placeholder(int) string { return "?" }

// ColumnType maps logical types onto SQLite storage classes. Identity becomes
// INTEGER: with a single-column PRIMARY KEY it aliases the rowid and is
// assigned automatically (starting at 1, not 0).
func (Dialect) ColumnType(c schema.Column) string {
	switch c.Type {
	case schema.Identity, schema.Int, schema.BigInt:
		return "INTEGER"
	case schema.Varchar:
		return "TEXT"
	case schema.Numeric:
		return "NUMERIC"
	case schema.Real:
		return "REAL"
	case schema.Timestamp:
		return "TIMESTAMP"
	}
	return "TEXT"
}

func (d Dialect) CreateTable(t schema.Table) string {
	kw := "CREATE TABLE"
	if t.Temporary {
		kw = "CREATE TEMP TABLE"
	}
	return fmt.Sprintf("%s IF NOT EXISTS %s %s;", kw, d.TableRef(t), schema.ColumnDefs(d, t))
}

func (d Dialect) DropTable(t schema.Table, ifExists bool) string {
	if ifExists {
		return fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.TableRef(t))
	}
	return fmt.Sprintf("DROP TABLE %s;", d.TableRef(t))
}

// Truncate uses DELETE: SQLite has no TRUNCATE statement.
func (d Dialect) Truncate(t schema.Table) string {
	return fmt.Sprintf("DELETE FROM %s;", d.TableRef(t))
}

func (Dialect) SelectFirst(list, rest string) string {
	return fmt.Sprintf("SELECT %s %s LIMIT 1", list, rest)
}

func (Dialect) ServerCopy() bool { return false }

func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
