// Package staging bulk-loads the raw event-log and song-metadata objects into
// the two temporary staging tables.
//
// Two modes exist:
//
//   - server: the warehouse reads object storage itself. One COPY statement
//     per table, rendered by queries.Copy (Redshift only).
//   - client: this process lists and reads the objects through a
//     datasource.ObjectSource, maps each JSON record onto the table's columns
//     with the JSON-paths manifest (or 'auto'), coerces the values and inserts
//     them through storage.LoadBatches.
//
// In client mode objects are fetched concurrently (bounded by
// WAREHOUSE.LOADER_WORKERS) but inserted strictly in key order, so identity
// ids follow load order. Any failure aborts the table load with an
// errs.LoadError; there is no partial-row recovery.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/config"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/errs"
	jsonparser "github.com/adespotakis/data-engineering-part2-redshift/internal/parser/json"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/queries"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/transformer"
)

// Loader fills the staging tables of one warehouse session.
type Loader struct {
	repo storage.Repository
	src  datasource.ObjectSource
	cfg  *config.Config
}

// NewLoader returns a Loader. src may be nil when every load runs in server
// mode.
func NewLoader(repo storage.Repository, src datasource.ObjectSource, cfg *config.Config) *Loader {
	return &Loader{repo: repo, src: src, cfg: cfg}
}

// LoadLogs populates staging_logs from S3.LOG_DATA.
func (l *Loader) LoadLogs(ctx context.Context) (int64, error) {
	return l.Load(ctx, queries.CopySources(l.cfg)[0])
}

// LoadSongs populates staging_songs from S3.SONG_DATA.
func (l *Loader) LoadSongs(ctx context.Context) (int64, error) {
	return l.Load(ctx, queries.CopySources(l.cfg)[1])
}

// ServerSide reports whether loads are delegated to the warehouse COPY.
func (l *Loader) ServerSide() bool {
	switch l.cfg.Warehouse.CopyMode {
	case config.CopyServer:
		return true
	case config.CopyClient:
		return false
	}
	return l.repo.Dialect().ServerCopy()
}

// Load populates src.Table and returns the number of rows loaded (as
// reported by the backend in server mode).
func (l *Loader) Load(ctx context.Context, src queries.CopySource) (int64, error) {
	start := time.Now()
	var (
		n   int64
		err error
	)
	if l.ServerSide() {
		n, err = l.repo.Exec(ctx, queries.Copy(l.repo.Dialect(), src, l.cfg.IAMRole.ARN, l.cfg.S3.Region))
		if err != nil {
			return 0, errs.Load("copy", src.Table.Name, err)
		}
		log.Printf("staging: %s: server COPY from %s rows=%d elapsed=%s",
			src.Table.Name, src.Path, n, time.Since(start).Truncate(time.Millisecond))
		return n, nil
	}

	n, err = l.loadClient(ctx, src)
	if err != nil {
		return n, errs.Load("copy", src.Table.Name, err)
	}
	log.Printf("staging: %s: client load from %s rows=%d elapsed=%s",
		src.Table.Name, src.Path, n, time.Since(start).Truncate(time.Millisecond))
	return n, nil
}

// object is one fetched and decoded source object.
type object struct {
	rows  [][]any
	ready chan struct{}
}

func (l *Loader) loadClient(ctx context.Context, src queries.CopySource) (int64, error) {
	if l.src == nil {
		return 0, fmt.Errorf("client-side load needs an object source")
	}
	cols := src.Table.LoadColumns()
	names := schema.Names(cols)

	mapping, err := l.mapping(ctx, src.Manifest, names)
	if err != nil {
		return 0, err
	}
	plan := transformer.Compile(cols)

	keys, err := l.src.List(ctx, src.Path)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, fmt.Errorf("no objects under %s", src.Path)
	}

	objects := make([]*object, len(keys))
	for i := range objects {
		objects[i] = &object{ready: make(chan struct{})}
	}

	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan []any, l.cfg.Warehouse.BatchSize)

	// Fetchers: bounded, any order.
	g.Go(func() error {
		fg, fctx := errgroup.WithContext(gctx)
		fg.SetLimit(max(1, l.cfg.Warehouse.LoaderWorkers))
		for i, key := range keys {
			if fctx.Err() != nil {
				break
			}
			i, key := i, key
			fg.Go(func() error {
				out, err := l.fetch(fctx, key, mapping, plan)
				if err != nil {
					return err
				}
				objects[i].rows = out
				close(objects[i].ready)
				return nil
			})
		}
		return fg.Wait()
	})

	// Feeder: strictly in key order.
	g.Go(func() error {
		defer close(rows)
		for _, obj := range objects {
			select {
			case <-obj.ready:
			case <-gctx.Done():
				return gctx.Err()
			}
			for _, r := range obj.rows {
				select {
				case rows <- r:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			obj.rows = nil
		}
		return nil
	})

	var total int64
	g.Go(func() error {
		n, err := storage.LoadBatches(gctx, src.Table.Name, names, rows, l.cfg.Warehouse.BatchSize, storage.CopyInto(l.repo, src.Table))
		total = n
		return err
	})

	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

// fetch reads, decodes, maps and coerces one object.
func (l *Loader) fetch(ctx context.Context, key string, m *jsonparser.Mapping, plan transformer.Plan) ([][]any, error) {
	rc, err := l.src.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := jsonparser.NewDecoder(rc)
	var out [][]any
	for {
		obj, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		row, err := plan.Row(m.Row(obj))
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", key, dec.Count(), err)
		}
		out = append(out, row)
	}
}

// mapping resolves the JSON-paths manifest for one load.
func (l *Loader) mapping(ctx context.Context, manifest string, columns []string) (*jsonparser.Mapping, error) {
	if jsonparser.IsAuto(manifest) {
		return jsonparser.NewAutoMapping(columns), nil
	}
	rc, err := l.src.Open(ctx, manifest)
	if err != nil {
		return nil, fmt.Errorf("open jsonpaths manifest: %w", err)
	}
	defer rc.Close()
	paths, err := jsonparser.ParseManifest(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", manifest, err)
	}
	return jsonparser.NewPathMapping(columns, paths)
}
