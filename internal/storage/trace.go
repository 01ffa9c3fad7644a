package storage

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
)

// Traced wraps repo so every statement is logged with its duration. Used by
// the CLIs' -v flag.
func Traced(repo Repository) Repository {
	return &tracedRepo{Repository: repo}
}

type tracedRepo struct {
	Repository
}

func (r *tracedRepo) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	start := time.Now()
	n, err := r.Repository.Exec(ctx, sql, args...)
	log.Printf("sql: exec rows=%d args=%d took=%s err=%v: %s", n, len(args), time.Since(start).Truncate(time.Microsecond), err, oneLine(sql))
	return n, err
}

func (r *tracedRepo) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rows, err := r.Repository.Query(ctx, sql, args...)
	log.Printf("sql: query args=%d took=%s err=%v: %s", len(args), time.Since(start).Truncate(time.Microsecond), err, oneLine(sql))
	return rows, err
}

func (r *tracedRepo) CopyFrom(ctx context.Context, t schema.Table, columns []string, rows [][]any) (int64, error) {
	start := time.Now()
	n, err := r.Repository.CopyFrom(ctx, t, columns, rows)
	log.Printf("sql: copy table=%s rows=%d took=%s err=%v", t.Name, n, time.Since(start).Truncate(time.Microsecond), err)
	return n, err
}

// oneLine collapses whitespace so multi-line statements log on one line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
