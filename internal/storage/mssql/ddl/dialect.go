// Package ddl contains the SQL Server dialect.
//
// The dialect:
//   - Uses SQL Server-style identifier quoting: [col].
//   - Names temporary tables #name (session-scoped local temp tables).
//   - Wraps CREATE TABLE in an IF OBJECT_ID(...) IS NULL guard since T-SQL
//     does not support CREATE TABLE IF NOT EXISTS.
package ddl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
)

// Dialect renders schema objects for SQL Server.
type Dialect struct{}

var _ schema.Dialect = Dialect{}

func (Dialect) Name() string { return "mssql" }

func (Dialect) Quote(id string) string { return quoteIdent(id) }

func (Dialect) TableRef(t schema.Table) string { return quoteIdent(physicalName(t)) }

func (Dialect) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

// ColumnType maps logical types onto T-SQL types. Unsized strings become
// NVARCHAR(MAX) except on key columns, which SQL Server cannot index at MAX.
func (Dialect) ColumnType(c schema.Column) string {
	switch c.Type {
	case schema.Identity:
		return "INT IDENTITY(0,1)"
	case schema.Int:
		return "INT"
	case schema.BigInt:
		return "BIGINT"
	case schema.Varchar:
		switch {
		case c.Size > 0:
			return fmt.Sprintf("NVARCHAR(%d)", c.Size)
		case c.PrimaryKey:
			return "NVARCHAR(256)"
		}
		return "NVARCHAR(MAX)"
	case schema.Numeric:
		return "DECIMAL(18,5)"
	case schema.Real:
		return "REAL"
	case schema.Timestamp:
		return "DATETIME2"
	}
	return "NVARCHAR(MAX)"
}

// CreateTable returns a guarded T-SQL script:
//
//	IF OBJECT_ID(N'users', N'U') IS NULL
//	CREATE TABLE [users] (...);
//
// Temp tables are looked up in tempdb.
func (d Dialect) CreateTable(t schema.Table) string {
	return fmt.Sprintf("IF %s IS NULL\nCREATE TABLE %s %s;", objectID(t), d.TableRef(t), schema.ColumnDefs(d, t))
}

func (d Dialect) DropTable(t schema.Table, ifExists bool) string {
	if ifExists {
		return fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.TableRef(t))
	}
	return fmt.Sprintf("DROP TABLE %s;", d.TableRef(t))
}

func (d Dialect) Truncate(t schema.Table) string {
	return fmt.Sprintf("TRUNCATE TABLE %s;", d.TableRef(t))
}

func (Dialect) SelectFirst(list, rest string) string {
	return fmt.Sprintf("SELECT TOP 1 %s %s", list, rest)
}

func (Dialect) ServerCopy() bool { return false }

// BulkName is the unquoted table name mssql.CopyIn expects.
func BulkName(t schema.Table) string { return physicalName(t) }

func physicalName(t schema.Table) string {
	if t.Temporary {
		return "#" + t.Name
	}
	return t.Name
}

func objectID(t schema.Table) string {
	if t.Temporary {
		return fmt.Sprintf("OBJECT_ID(N'tempdb..%s')", escapeLiteral(physicalName(t)))
	}
	return fmt.Sprintf("OBJECT_ID(N'%s', N'U')", escapeLiteral(t.Name))
}

// quoteIdent brackets an identifier, escaping a closing bracket as ]].
func quoteIdent(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

func escapeLiteral(s string) string { return strings.ReplaceAll(s, "'", "''") }
