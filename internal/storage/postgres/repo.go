// Package postgres implements the Postgres-family repositories (Postgres and
// Redshift) using pgx v5.
//
// A Repository owns one *pgx.Conn rather than a pool: staging tables are
// TEMP tables, which exist only in the session that created them.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
	pgddl "github.com/adespotakis/data-engineering-part2-redshift/internal/storage/postgres/ddl"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string
	// Redshift switches to the simple query protocol, the Redshift dialect,
	// and multi-row INSERT in place of COPY FROM STDIN, which Redshift does
	// not support.
	Redshift bool
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	conn    *pgx.Conn
	cfg     Config
	dialect pgddl.Dialect
}

// NewRepository connects and returns a Repository plus a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pcfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgx parse dsn: %w", err)
	}
	d := pgddl.Postgres
	if cfg.Redshift {
		pcfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
		d = pgddl.Redshift
	}
	conn, err := pgx.ConnectConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgx connect: %w", err)
	}
	closeFn := func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(cctx)
	}
	return &Repository{conn: conn, cfg: cfg, dialect: d}, closeFn, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() schema.Dialect { return r.dialect }

// Exec implements storage.Repository.Exec.
func (r *Repository) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := r.conn.Exec(ctx, sql, r.args(args)...)
	if err != nil {
		return 0, pgError(err)
	}
	return tag.RowsAffected(), nil
}

// Query implements storage.Repository.Query. pgx.Rows satisfies storage.Rows.
func (r *Repository) Query(ctx context.Context, sql string, args ...any) (storage.Rows, error) {
	rows, err := r.conn.Query(ctx, sql, r.args(args)...)
	if err != nil {
		return nil, pgError(err)
	}
	return rows, nil
}

// CopyFrom implements storage.Repository.CopyFrom: COPY FROM STDIN on
// Postgres, a multi-row INSERT on Redshift.
func (r *Repository) CopyFrom(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if r.cfg.Redshift {
		return r.insertValues(ctx, t, columns, rows)
	}
	n, err := r.conn.CopyFrom(ctx, pgx.Identifier{t.Name}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", t.Name, pgError(err))
	}
	return n, nil
}

// insertValues renders INSERT INTO t (cols) VALUES ($1,...), ($k,...).
func (r *Repository) insertValues(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	sql, args := buildInsertValues(r.dialect, t, columns, rows)
	n, err := r.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", t.Name, err)
	}
	return n, nil
}

func buildInsertValues(d schema.Dialect, t schema.Table, columns []string, rows [][]any) (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", d.TableRef(t), schema.QuoteList(d, columns))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		sb.WriteString(schema.Placeholders(d, len(args)+1, len(row)))
		sb.WriteByte(')')
		args = append(args, row...)
	}
	return sb.String(), args
}

// args normalizes bind values. Under the simple protocol pgx renders
// time.Time with a zone offset; Redshift TIMESTAMP columns want a bare UTC
// wall-clock literal.
func (r *Repository) args(in []any) []any {
	if !r.cfg.Redshift {
		return in
	}
	out := make([]any, len(in))
	for i, v := range in {
		if tv, ok := v.(time.Time); ok {
			out[i] = tv.UTC().Format("2006-01-02 15:04:05.999999")
			continue
		}
		out[i] = v
	}
	return out
}

// pgError surfaces the server's detail line when there is one.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s)", err, pgErr.Detail)
	}
	return err
}
