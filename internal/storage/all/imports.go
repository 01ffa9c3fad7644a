// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete storage backend to run,
// which in turn register their factories with the storage package.
//
// Importing this package makes the following storage kinds available:
//
//   - "redshift" and "postgres" (internal/storage/postgres)
//   - "mssql"                   (internal/storage/mssql)
//   - "sqlite"                  (internal/storage/sqlite)
//
// Typical usage (in a cmd/ main package):
//
//	import _ "github.com/adespotakis/data-engineering-part2-redshift/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Warehouse.Kind, DSN: cfg.DSN()})
//	if err != nil {
//	    // handle error
//	}
//	defer repo.Close()
package all

import (
	_ "github.com/adespotakis/data-engineering-part2-redshift/internal/storage/mssql"
	_ "github.com/adespotakis/data-engineering-part2-redshift/internal/storage/postgres"
	_ "github.com/adespotakis/data-engineering-part2-redshift/internal/storage/sqlite"
)
