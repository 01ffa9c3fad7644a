package postgres

import (
	"context"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to the concrete
// *postgres.Repository while providing a Close method that calls the close
// function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Ensure wrappedRepo satisfies storage.Repository at compile time.
var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// init registers "postgres" and "redshift". Both speak the Postgres wire
// protocol; Redshift differs in dialect and bulk-load path.
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "redshift", DSN: dsn})
//	defer repo.Close()
func init() {
	for _, kind := range []string{"postgres", "redshift"} {
		redshift := kind == "redshift"
		storage.Register(kind, func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
			r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Redshift: redshift})
			if err != nil {
				return nil, err
			}
			return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
		})
	}
}
