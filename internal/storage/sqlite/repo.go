// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. It performs batched INSERTs inside a transaction; SQLite does
// not have a dedicated bulk-load API like Postgres COPY, but transactions keep
// performance acceptable for moderate volumes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
	sqliteddl "github.com/adespotakis/data-engineering-part2-redshift/internal/storage/sqlite/ddl"
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db   *sql.DB
	conn *sql.Conn
	cfg  Config
}

// NewRepository opens a SQLite database using the provided DSN and pins a
// single connection. It returns the Repository plus its Close method as a
// cleanup function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("sqlite: conn: %w", err)
	}

	// Apply a basic ping with context to fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	r := &Repository{db: db, conn: conn, cfg: cfg}
	return r, r.Close, nil
}

var _ storage.Repository = (*Repository)(nil)

// Close releases the pinned connection and the database handle. Calling it
// more than once is harmless.
func (r *Repository) Close() {
	_ = r.conn.Close()
	_ = r.db.Close()
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() schema.Dialect { return sqliteddl.Dialect{} }

// Exec executes one statement on the pinned connection.
func (r *Repository) Exec(ctx context.Context, sqlText string, args ...any) (int64, error) {
	if strings.TrimSpace(sqlText) == "" {
		return 0, nil
	}
	res, err := r.conn.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: exec: %w", err)
	}
	// The statement succeeded; a driver that cannot count rows reports 0.
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Query runs a row-returning statement on the pinned connection.
func (r *Repository) Query(ctx context.Context, sqlText string, args ...any) (storage.Rows, error) {
	rows, err := r.conn.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	return storage.SQLRows(rows), nil
}

// CopyFrom inserts the given rows into t using a single transaction and a
// prepared INSERT statement.
//
// It returns the number of rows successfully inserted or an error; len(row)
// must equal len(columns) for every row. On error the whole batch is rolled
// back.
func (r *Repository) CopyFrom(
	ctx context.Context,
	t schema.Table,
	columns []string,
	rows [][]any,
) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	d := r.Dialect()
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		d.TableRef(t),
		schema.QuoteList(d, columns),
		schema.Placeholders(d, 1, len(columns)),
	)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: CopyFrom: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert into %s: %w", t.Name, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}
