// Package warehouse implements the schema manager and the transform-and-load
// steps that move staged rows into the fact and dimension tables.
//
// Every statement runs on the caller's storage.Repository, sequentially.
// Schema failures are errs.SchemaError; load and lookup failures are
// errs.TransformError. Nothing is retried.
package warehouse

import (
	"context"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/errs"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/queries"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
)

// Schema issues the DDL of the warehouse.
type Schema struct {
	repo storage.Repository
}

// NewSchema returns a Schema bound to repo.
func NewSchema(repo storage.Repository) *Schema { return &Schema{repo: repo} }

// CreateAll issues the seven CREATE statements, staging tables first. Each
// statement is guarded, so CreateAll is idempotent.
func (s *Schema) CreateAll(ctx context.Context) error {
	return s.run(ctx, "create", schema.Tables, queries.CreateTableQueries(s.repo.Dialect()))
}

// DropAll drops the five permanent tables. The statements are not guarded:
// dropping a table that does not exist fails with an errs.SchemaError naming
// it, and the remaining tables are left alone.
func (s *Schema) DropAll(ctx context.Context) error {
	return s.run(ctx, "drop", schema.Permanent, queries.DropTableQueries(s.repo.Dialect()))
}

// DropAllIfExists is DropAll with IF EXISTS guards.
func (s *Schema) DropAllIfExists(ctx context.Context) error {
	return s.run(ctx, "drop", schema.Permanent, queries.DropTableIfExistsQueries(s.repo.Dialect()))
}

// CreateStaging creates the two session-scoped staging tables.
func (s *Schema) CreateStaging(ctx context.Context) error {
	return s.run(ctx, "create", schema.Staging, queries.InsertTempTableQueries(s.repo.Dialect()))
}

// run executes stmts in order; stmts[i] targets tables[i].
func (s *Schema) run(ctx context.Context, op string, tables []schema.Table, stmts []string) error {
	for i, q := range stmts {
		if _, err := s.repo.Exec(ctx, q); err != nil {
			return errs.Schema(op, tables[i].Name, err)
		}
	}
	return nil
}
