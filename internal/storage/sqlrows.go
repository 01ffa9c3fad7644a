package storage

import "database/sql"

// SQLRows adapts *sql.Rows to Rows. The Close error is dropped; iteration
// errors surface through Err.
func SQLRows(r *sql.Rows) Rows { return sqlRows{r} }

type sqlRows struct{ r *sql.Rows }

func (s sqlRows) Next() bool             { return s.r.Next() }
func (s sqlRows) Scan(dest ...any) error { return s.r.Scan(dest...) }
func (s sqlRows) Err() error             { return s.r.Err() }
func (s sqlRows) Close()                 { _ = s.r.Close() }
