// Package queries is the SQL catalogue of the warehouse: every statement the
// schema manager, the staging loader and the transforms issue, rendered for a
// given dialect.
//
// Values that come from data are always bind parameters. The only values
// rendered into SQL text are the COPY clauses (object path, role ARN, region,
// JSON manifest), which Redshift does not accept as parameters; those are
// rendered as escaped string literals by Copy.
package queries

import (
	"fmt"
	"strings"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/config"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
)

// CreateTableQueries returns the seven CREATE statements, staging tables first.
func CreateTableQueries(d schema.Dialect) []string {
	out := make([]string, 0, len(schema.Tables))
	for _, t := range schema.Tables {
		out = append(out, d.CreateTable(t))
	}
	return out
}

// DropTableQueries returns unguarded DROP statements for the five permanent
// tables. Staging tables are never dropped explicitly; they end with the
// session.
func DropTableQueries(d schema.Dialect) []string {
	return dropQueries(d, false)
}

// DropTableIfExistsQueries is DropTableQueries with IF EXISTS guards.
func DropTableIfExistsQueries(d schema.Dialect) []string {
	return dropQueries(d, true)
}

func dropQueries(d schema.Dialect, ifExists bool) []string {
	out := make([]string, 0, len(schema.Permanent))
	for _, t := range schema.Permanent {
		out = append(out, d.DropTable(t, ifExists))
	}
	return out
}

// InsertTempTableQueries returns the CREATE statements of the two staging
// tables, issued at the start of a load session.
func InsertTempTableQueries(d schema.Dialect) []string {
	out := make([]string, 0, len(schema.Staging))
	for _, t := range schema.Staging {
		out = append(out, d.CreateTable(t))
	}
	return out
}

// CopySource names what a COPY statement loads.
type CopySource struct {
	Table    schema.Table
	Path     string // object prefix
	Manifest string // JSON-paths manifest location, or "auto"
}

// CopySources returns the two staging loads described by cfg, logs first.
func CopySources(cfg *config.Config) []CopySource {
	return []CopySource{
		{Table: schema.StagingLogs, Path: cfg.S3.LogData, Manifest: cfg.S3.LogJSONPaths},
		{Table: schema.StagingSongs, Path: cfg.S3.SongData, Manifest: cfg.S3.SongJSONPaths},
	}
}

// CopyTableQueries returns the two server-side COPY statements.
func CopyTableQueries(d schema.Dialect, cfg *config.Config) []string {
	srcs := CopySources(cfg)
	out := make([]string, 0, len(srcs))
	for _, s := range srcs {
		out = append(out, Copy(d, s, cfg.IAMRole.ARN, cfg.S3.Region))
	}
	return out
}

// Copy renders
//
//	COPY <table>
//	FROM '<path>'
//	IAM_ROLE '<arn>'
//	REGION '<region>'
//	JSON '<manifest>';
func Copy(d schema.Dialect, src CopySource, arn, region string) string {
	return fmt.Sprintf("COPY %s\nFROM %s\nIAM_ROLE %s\nREGION %s\nJSON %s;",
		d.TableRef(src.Table),
		Literal(src.Path),
		Literal(arn),
		Literal(region),
		Literal(src.Manifest),
	)
}

// Literal renders s as a single-quoted SQL string literal, doubling embedded
// quotes.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Insert renders a single-row INSERT for columns of t.
func Insert(d schema.Dialect, t schema.Table, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.TableRef(t), schema.QuoteList(d, columns), schema.Placeholders(d, 1, len(columns)))
}

// DeleteKeys renders DELETE FROM t WHERE key IN (n placeholders).
func DeleteKeys(d schema.Dialect, t schema.Table, key string, n int) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
		d.TableRef(t), d.Quote(key), schema.Placeholders(d, 1, n))
}

// EventColumns are the staging_logs columns EventsSelect returns, in order.
var EventColumns = []string{
	"userId", "firstName", "lastName", "gender", "level", "ts",
	"artist", "song", "length", "location", "sessionId", "userAgent",
}

// EventsSelect selects play events. The page = 'NextSong' predicate defines
// a play event.
func EventsSelect(d schema.Dialect) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = 'NextSong' ORDER BY %s",
		schema.QuoteList(d, EventColumns),
		d.TableRef(schema.StagingLogs),
		d.Quote("page"),
		d.Quote("id"),
	)
}

// SongInsert loads songs from staging_songs in one statement. DISTINCT drops
// exact duplicate tuples; the MAX(id) filter keeps one row per song_id when
// staging carries conflicting versions (the most recently loaded wins).
func SongInsert(d schema.Dialect) string {
	q := d.Quote
	return fmt.Sprintf(`INSERT INTO %s (%s)
SELECT DISTINCT s.%s, s.%s, s.%s, s.%s, s.%s
FROM %s s
WHERE s.%s IN (
    %s
)`,
		d.TableRef(schema.Songs), schema.QuoteList(d, schema.Names(schema.Songs.Columns)),
		q("song_id"), q("title"), q("artist_id"), q("year"), q("duration"),
		d.TableRef(schema.StagingSongs),
		q("id"),
		songWinners(d),
	)
}

// SongDeleteStaged removes the songs SongInsert is about to reload: those
// whose song_id has a winning staging row. Songs staged only without an
// artist_id are left alone.
func SongDeleteStaged(d schema.Dialect) string {
	q := d.Quote
	return fmt.Sprintf(`DELETE FROM %s WHERE %s IN (
    SELECT s.%s FROM %s s WHERE s.%s IN (
    %s
    )
)`,
		d.TableRef(schema.Songs), q("song_id"),
		q("song_id"), d.TableRef(schema.StagingSongs), q("id"),
		songWinners(d),
	)
}

// songWinners selects the staging id of the winning row per song_id.
func songWinners(d schema.Dialect) string {
	q := d.Quote
	return fmt.Sprintf("SELECT MAX(x.%s) FROM %s x WHERE x.%s IS NOT NULL AND x.%s IS NOT NULL GROUP BY x.%s",
		q("id"), d.TableRef(schema.StagingSongs), q("song_id"), q("artist_id"), q("song_id"))
}

// ArtistCandidatesSelect returns every staged artist row with its staging id,
// in load order. Winner selection happens in Go.
func ArtistCandidatesSelect(d schema.Dialect) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s",
		schema.QuoteList(d, []string{"id", "artist_id", "artist_name", "artist_location", "artist_latitude", "artist_longitude"}),
		d.TableRef(schema.StagingSongs),
		d.Quote("artist_id"),
		d.Quote("id"),
	)
}

// SongArtistsSelect lists every song with its artist.
func SongArtistsSelect(d schema.Dialect) string {
	q := d.Quote
	return fmt.Sprintf("SELECT s.%s, s.%s, a.%s, a.%s FROM %s s JOIN %s a ON s.%s = a.%s ORDER BY s.%s",
		q("song_id"), q("title"), q("artist_id"), q("name"),
		d.TableRef(schema.Songs), d.TableRef(schema.Artists),
		q("artist_id"), q("artist_id"),
		q("song_id"),
	)
}

// SongAndArtistSelect resolves (song_id, artist_id) for an exact
// (title, artist name, duration) match. The duration parameter is cast to
// REAL so it compares at the column's precision.
func SongAndArtistSelect(d schema.Dialect) string {
	q := d.Quote
	rest := fmt.Sprintf(
		"FROM %s s JOIN %s a ON s.%s = a.%s WHERE s.%s = %s AND a.%s = %s AND s.%s = CAST(%s AS REAL) ORDER BY s.%s, a.%s",
		d.TableRef(schema.Songs), d.TableRef(schema.Artists),
		q("artist_id"), q("artist_id"),
		q("title"), d.Placeholder(1),
		q("name"), d.Placeholder(2),
		q("duration"), d.Placeholder(3),
		q("song_id"), q("artist_id"),
	)
	return d.SelectFirst(fmt.Sprintf("s.%s, a.%s", q("song_id"), q("artist_id")), rest)
}

// Count renders SELECT COUNT(*) FROM t.
func Count(d schema.Dialect, t schema.Table) string {
	return "SELECT COUNT(*) FROM " + d.TableRef(t)
}
