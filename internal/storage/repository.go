// Package storage contains the warehouse-agnostic data-access contract, the
// backend factory, and the batched loader shared by every backend.
//
// A Repository wraps exactly one database session. Temporary staging tables
// are session-scoped, so every statement of a run goes through the same
// Repository and the same underlying connection.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
)

// Rows is the cursor returned by Repository.Query. pgx.Rows satisfies it
// directly; database/sql backends wrap *sql.Rows.
//
// A Rows must be closed before the next statement is issued on the same
// Repository.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Repository is a single warehouse session.
type Repository interface {
	// Exec runs one statement and returns the affected row count (0 when
	// the driver does not report one).
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	// Query runs one statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	// CopyFrom bulk-inserts rows (aligned to columns) into t using the
	// backend's most efficient primitive.
	CopyFrom(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error)
	// Dialect renders DDL and placeholders for this backend.
	Dialect() schema.Dialect
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string // "redshift", "postgres", "sqlite", "mssql"
	DSN  string
}

// Factory opens a Repository for a registered kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Re-registering a kind
// replaces the previous factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
