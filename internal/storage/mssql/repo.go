// Package mssql implements a Microsoft SQL Server repository using
// go-mssqldb. Bulk loads use the driver's bulk copy API (mssql.CopyIn).
//
// The repository pins one connection from the pool: staging tables are
// local temp tables (#name), visible only to the session that created them.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
	msddl "github.com/adespotakis/data-engineering-part2-redshift/internal/storage/mssql/ddl"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN string
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db   *sql.DB
	conn *sql.Conn
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("conn: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() {
		_ = conn.Close()
		_ = db.Close()
	}
	return &Repository{db: db, conn: conn, cfg: cfg}, closeFn, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() schema.Dialect { return msddl.Dialect{} }

// Exec executes one statement on the pinned session.
func (r *Repository) Exec(ctx context.Context, sqlText string, args ...any) (int64, error) {
	res, err := r.conn.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return 0, err
	}
	// The statement succeeded; a driver that cannot count rows reports 0.
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Query runs a row-returning statement on the pinned session.
func (r *Repository) Query(ctx context.Context, sqlText string, args ...any) (storage.Rows, error) {
	rows, err := r.conn.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	return storage.SQLRows(rows), nil
}

// CopyFrom bulk-copies rows into t inside one transaction.
func (r *Repository) CopyFrom(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(msddl.BulkName(t), mssql.BulkOptions{}, columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("prepare bulk %s: %w", t.Name, err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("bulk %s row %d: %w", t.Name, i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("bulk finalize %s: %w", t.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
