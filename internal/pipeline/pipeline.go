// Package pipeline runs one warehouse load end to end on a single session:
// staging tables are created and filled, then the dimensions and the fact
// table are loaded from them. The first failing step aborts the run.
package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/config"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/metrics"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/staging"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/warehouse"
)

// Step names, in run order.
const (
	StepCreateStaging   = "create_staging"
	StepStageLogs       = "stage_logs"
	StepStageSongs      = "stage_songs"
	StepInsertSongs     = "insert_songs"
	StepInsertArtists   = "insert_artists"
	StepInsertUsers     = "insert_users"
	StepInsertTime      = "insert_time"
	StepInsertSongplays = "insert_songplays"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string
	Table    string // empty for steps that load no table
	Rows     int64
	Duration time.Duration
	Err      error
}

// Summary lists the steps that ran, in order. A failed run ends with the
// failing step.
type Summary struct {
	Steps   []StepResult
	Elapsed time.Duration
}

// Rows returns the row count reported for table, or 0.
func (s Summary) Rows(table string) int64 {
	for _, st := range s.Steps {
		if st.Table == table {
			return st.Rows
		}
	}
	return 0
}

type step struct {
	name  string
	table string
	run   func(context.Context) (int64, error)
}

// Run executes every step on repo. src serves client-mode staging and may be
// nil when staging runs in server mode.
func Run(ctx context.Context, cfg *config.Config, repo storage.Repository, src datasource.ObjectSource) (Summary, error) {
	ddl := warehouse.NewSchema(repo)
	stg := staging.NewLoader(repo, src, cfg)
	wh := warehouse.NewLoader(repo, cfg.Warehouse.LoadPolicy, cfg.Warehouse.BatchSize)

	steps := []step{
		{StepCreateStaging, "", func(ctx context.Context) (int64, error) { return 0, ddl.CreateStaging(ctx) }},
		{StepStageLogs, schema.StagingLogsTable, stg.LoadLogs},
		{StepStageSongs, schema.StagingSongsTable, stg.LoadSongs},
		{StepInsertSongs, schema.SongsTable, wh.LoadSongs},
		{StepInsertArtists, schema.ArtistsTable, wh.LoadArtists},
		{StepInsertUsers, schema.UsersTable, wh.LoadUsers},
		{StepInsertTime, schema.TimeTable, wh.LoadTime},
		{StepInsertSongplays, schema.SongplaysTable, wh.LoadSongplays},
	}

	var sum Summary
	start := time.Now()
	for _, s := range steps {
		t0 := time.Now()
		n, err := s.run(ctx)
		d := time.Since(t0)

		metrics.RecordStep(cfg.Metrics.Job, s.name, err, d)
		if s.table != "" {
			metrics.RecordRows(cfg.Metrics.Job, s.table, n)
		}
		sum.Steps = append(sum.Steps, StepResult{Name: s.name, Table: s.table, Rows: n, Duration: d, Err: err})
		if err != nil {
			sum.Elapsed = time.Since(start)
			log.Printf("pipeline: step %s failed after %s: %v", s.name, d.Truncate(time.Millisecond), err)
			return sum, err
		}
		log.Printf("pipeline: step %s rows=%d elapsed=%s", s.name, n, d.Truncate(time.Millisecond))
	}
	sum.Elapsed = time.Since(start)
	logSummary(sum)
	return sum, nil
}

func logSummary(s Summary) {
	log.Printf("pipeline: done in %s", s.Elapsed.Truncate(time.Millisecond))
	for _, st := range s.Steps {
		if st.Table == "" {
			continue
		}
		log.Printf("  %-16s %-14s rows=%d", st.Name, st.Table, st.Rows)
	}
}
