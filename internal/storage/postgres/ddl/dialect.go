// Package ddl contains the Postgres-family dialects: Redshift and plain
// Postgres share quoting, placeholders and most types, and differ in identity
// columns, NUMERIC precision and server-side COPY.
package ddl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
)

// Dialect renders schema objects for Redshift or Postgres.
type Dialect struct {
	redshift bool
}

// Redshift is the dialect of an Amazon Redshift cluster.
var Redshift = Dialect{redshift: true}

// Postgres is the dialect of a stock Postgres server.
var Postgres = Dialect{}

var _ schema.Dialect = Dialect{}

func (d Dialect) Name() string {
	if d.redshift {
		return "redshift"
	}
	return "postgres"
}

// Quote quotes a single identifier segment.
func (Dialect) Quote(id string) string { return quoteIdent(id) }

func (d Dialect) TableRef(t schema.Table) string { return quoteIdent(t.Name) }

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// ColumnType maps logical types:
//
//	Identity  -> INT IDENTITY(0,1) (Redshift) / INTEGER GENERATED BY DEFAULT AS IDENTITY
//	Int       -> INTEGER
//	BigInt    -> BIGINT
//	Varchar   -> VARCHAR or VARCHAR(n)
//	Numeric   -> NUMERIC(18,6) (Redshift) / NUMERIC
//	Real      -> REAL
//	Timestamp -> TIMESTAMP
func (d Dialect) ColumnType(c schema.Column) string {
	switch c.Type {
	case schema.Identity:
		if d.redshift {
			return "INT IDENTITY(0,1)"
		}
		return "INTEGER GENERATED BY DEFAULT AS IDENTITY (START WITH 0 MINVALUE 0)"
	case schema.Int:
		return "INTEGER"
	case schema.BigInt:
		return "BIGINT"
	case schema.Varchar:
		if c.Size > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Size)
		}
		return "VARCHAR"
	case schema.Numeric:
		// Bare NUMERIC on Redshift means NUMERIC(18,0), which would drop the
		// fractional part of song lengths.
		if d.redshift {
			return "NUMERIC(18,6)"
		}
		return "NUMERIC"
	case schema.Real:
		return "REAL"
	case schema.Timestamp:
		return "TIMESTAMP"
	}
	return "VARCHAR"
}

// CreateTable returns CREATE [TEMP] TABLE IF NOT EXISTS.
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

func (d Dialect) Truncate(t schema.Table) string {
	return fmt.Sprintf("TRUNCATE TABLE %s;", d.TableRef(t))
}

func (Dialect) SelectFirst(list, rest string) string {
	return fmt.Sprintf("SELECT %s %s LIMIT 1", list, rest)
}

// ServerCopy is true for Redshift only: stock Postgres cannot COPY from S3.
func (d Dialect) ServerCopy() bool { return d.redshift }

// quoteIdent safely quotes a single identifier segment for Postgres.
func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
