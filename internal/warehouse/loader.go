package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/config"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/errs"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/queries"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/transformer"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/transformer/builtin"
)

// Loader populates the fact and dimension tables from the staging tables of
// the same session.
//
// Policy decides what happens to rows an earlier run left behind:
//
//   - append: rows are inserted as-is; a key already present fails the load
//     on backends that enforce primary keys.
//   - truncate: the table is emptied first.
//   - upsert: rows whose key is about to be loaded are deleted first.
//     songplays has no business key and is appended.
type Loader struct {
	repo      storage.Repository
	policy    string
	batchSize int
}

// NewLoader returns a Loader. An empty policy means append; a non-positive
// batchSize falls back to 500.
func NewLoader(repo storage.Repository, policy string, batchSize int) *Loader {
	if policy == "" {
		policy = config.PolicyAppend
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Loader{repo: repo, policy: policy, batchSize: batchSize}
}

// Events reads every play event from staging_logs in load order.
func (l *Loader) Events(ctx context.Context) ([]Event, error) {
	rows, err := l.repo.Query(ctx, queries.EventsSelect(l.repo.Dialect()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.UserID, &e.FirstName, &e.LastName, &e.Gender, &e.Level, &e.TS,
			&e.Artist, &e.Song, &e.Length, &e.Location, &e.SessionID, &e.UserAgent,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadUsers inserts one row per listener. When a listener appears more than
// once the attributes of the latest event (by ts) win, so a free-to-paid
// upgrade is reflected in level.
func (l *Loader) LoadUsers(ctx context.Context) (int64, error) {
	events, err := l.Events(ctx)
	if err != nil {
		return 0, errs.Transform("select", schema.UsersTable, err)
	}

	chain := transformer.Chain[Event]{
		builtin.Require[Event]{Present: func(e Event) bool {
			_, ok := e.UserKey()
			return ok
		}},
		builtin.DeDup[Event]{
			Key: func(e Event) (string, bool) {
				id, ok := e.UserKey()
				return strconv.FormatInt(id, 10), ok
			},
			Seq: func(e Event) int64 {
				if !e.TS.Valid {
					return -1
				}
				return e.TS.Int64
			},
			Policy: builtin.KeepLast,
		},
	}
	winners := chain.Apply(events)

	rows := make([][]any, 0, len(winners))
	keys := make([]any, 0, len(winners))
	for _, e := range winners {
		id, _ := e.UserKey()
		u := User{UserID: id, FirstName: e.FirstName, LastName: e.LastName, Gender: e.Gender, Level: e.Level}
		rows = append(rows, u.row())
		keys = append(keys, id)
	}
	return l.write(ctx, schema.Users, "user_id", keys, rows)
}

// LoadSongs inserts one row per song_id from staging_songs in a single
// statement. Rows without a song_id or an artist_id are not loaded.
func (l *Loader) LoadSongs(ctx context.Context) (int64, error) {
	d := l.repo.Dialect()
	switch l.policy {
	case config.PolicyTruncate:
		if _, err := l.repo.Exec(ctx, d.Truncate(schema.Songs)); err != nil {
			return 0, errs.Transform("truncate", schema.SongsTable, err)
		}
	case config.PolicyUpsert:
		if _, err := l.repo.Exec(ctx, queries.SongDeleteStaged(d)); err != nil {
			return 0, errs.Transform("delete", schema.SongsTable, err)
		}
	}
	n, err := l.repo.Exec(ctx, queries.SongInsert(d))
	if err != nil {
		return 0, errs.Transform("insert", schema.SongsTable, err)
	}
	log.Printf("warehouse: %s: inserted=%d policy=%s", schema.SongsTable, n, l.policy)
	return n, nil
}

type artistCandidate struct {
	id        int64
	artistID  string
	name      sql.NullString
	location  sql.NullString
	latitude  sql.NullFloat64
	longitude sql.NullFloat64
}

// LoadArtists inserts one row per artist_id. When staging carries different
// attribute sets for the same artist, the most recently loaded row wins.
func (l *Loader) LoadArtists(ctx context.Context) (int64, error) {
	cands, err := l.artistCandidates(ctx)
	if err != nil {
		return 0, errs.Transform("select", schema.ArtistsTable, err)
	}
	winners := builtin.DeDup[artistCandidate]{
		Key:    func(c artistCandidate) (string, bool) { return c.artistID, true },
		Seq:    func(c artistCandidate) int64 { return c.id },
		Policy: builtin.KeepLast,
	}.Apply(cands)

	rows := make([][]any, 0, len(winners))
	keys := make([]any, 0, len(winners))
	for _, c := range winners {
		a := Artist{
			ArtistID:  c.artistID,
			Name:      c.name,
			Location:  c.location,
			Latitude:  coordinate(c.latitude),
			Longitude: coordinate(c.longitude),
		}
		rows = append(rows, a.row())
		keys = append(keys, c.artistID)
	}
	return l.write(ctx, schema.Artists, "artist_id", keys, rows)
}

func (l *Loader) artistCandidates(ctx context.Context) ([]artistCandidate, error) {
	rows, err := l.repo.Query(ctx, queries.ArtistCandidatesSelect(l.repo.Dialect()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []artistCandidate
	for rows.Next() {
		var c artistCandidate
		if err := rows.Scan(&c.id, &c.artistID, &c.name, &c.location, &c.latitude, &c.longitude); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// coordinate renders a staged REAL at single precision, the precision it was
// staged with.
func coordinate(f sql.NullFloat64) sql.NullString {
	if !f.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: strconv.FormatFloat(f.Float64, 'g', -1, 32), Valid: true}
}

// LoadTime inserts one row per distinct play timestamp.
func (l *Loader) LoadTime(ctx context.Context) (int64, error) {
	events, err := l.Events(ctx)
	if err != nil {
		return 0, errs.Transform("select", schema.TimeTable, err)
	}

	stamps := make([]time.Time, 0, len(events))
	for _, e := range events {
		if ts, ok := e.StartTime(); ok {
			stamps = append(stamps, ts)
		}
	}
	stamps = builtin.Distinct[time.Time]{
		Tuple: func(t time.Time) []any { return []any{t.UnixMilli()} },
	}.Apply(stamps)

	rows := make([][]any, 0, len(stamps))
	keys := make([]any, 0, len(stamps))
	for _, ts := range stamps {
		rows = append(rows, NewTimeRow(ts).row())
		keys = append(keys, ts)
	}
	return l.write(ctx, schema.Time, "start_time", keys, rows)
}

type matchKey struct {
	title  string
	artist string
	length float64
}

// LoadSongplays inserts one fact row per play event that carries a user and
// a timestamp. song_id and artist_id come from FindSongAndArtist and are NULL
// when the catalogue has no exact match; lookups are memoized for the call.
func (l *Loader) LoadSongplays(ctx context.Context) (int64, error) {
	events, err := l.Events(ctx)
	if err != nil {
		return 0, errs.Transform("select", schema.SongplaysTable, err)
	}

	memo := make(map[matchKey]*Match)
	var (
		rows    = make([][]any, 0, len(events))
		skipped int
		matched int
	)
	for _, e := range events {
		uid, okUser := e.UserKey()
		ts, okTS := e.StartTime()
		if !okUser || !okTS {
			skipped++
			continue
		}
		sp := Songplay{
			StartTime: ts,
			UserID:    uid,
			Level:     e.Level,
			SessionID: e.SessionID,
			UserAgent: e.UserAgent,
			Location:  e.Location,
		}
		if e.Song.Valid && e.Artist.Valid && e.Length.Valid {
			k := matchKey{e.Song.String, e.Artist.String, e.Length.Float64}
			m, seen := memo[k]
			if !seen {
				found, ok, err := l.FindSongAndArtist(ctx, k.title, k.artist, k.length)
				if err != nil {
					return 0, err
				}
				if ok {
					m = &found
				}
				memo[k] = m
			}
			if m != nil {
				sp.SongID = sql.NullString{String: m.SongID, Valid: true}
				sp.ArtistID = sql.NullString{String: m.ArtistID, Valid: true}
				matched++
			}
		}
		rows = append(rows, sp.row())
	}
	if skipped > 0 {
		log.Printf("warehouse: %s: skipped %d events without user or ts", schema.SongplaysTable, skipped)
	}
	log.Printf("warehouse: %s: events=%d matched=%d lookups=%d", schema.SongplaysTable, len(rows), matched, len(memo))
	return l.write(ctx, schema.Songplays, "", nil, rows)
}

// FindSongAndArtist resolves the song and artist ids for an exact
// (title, artist name, duration) match. ok is false when nothing matches.
func (l *Loader) FindSongAndArtist(ctx context.Context, title, artistName string, duration float64) (Match, bool, error) {
	rows, err := l.repo.Query(ctx, queries.SongAndArtistSelect(l.repo.Dialect()), title, artistName, duration)
	if err != nil {
		return Match{}, false, errs.Transform("lookup", schema.SongsTable, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Match{}, false, errs.Transform("lookup", schema.SongsTable, err)
		}
		return Match{}, false, nil
	}
	var m Match
	if err := rows.Scan(&m.SongID, &m.ArtistID); err != nil {
		return Match{}, false, errs.Transform("lookup", schema.SongsTable, err)
	}
	return m, true, nil
}

// ListSongArtists returns every loaded song with its artist, ordered by
// song_id.
func (l *Loader) ListSongArtists(ctx context.Context) ([]SongArtist, error) {
	rows, err := l.repo.Query(ctx, queries.SongArtistsSelect(l.repo.Dialect()))
	if err != nil {
		return nil, errs.Transform("select", schema.SongsTable, err)
	}
	defer rows.Close()

	var out []SongArtist
	for rows.Next() {
		var s SongArtist
		if err := rows.Scan(&s.SongID, &s.Title, &s.ArtistID, &s.ArtistName); err != nil {
			return nil, errs.Transform("select", schema.SongsTable, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transform("select", schema.SongsTable, err)
	}
	return out, nil
}

// write applies the load policy to t and bulk-inserts rows. key names the
// business key used by upsert; empty means t is append-only under upsert.
func (l *Loader) write(ctx context.Context, t schema.Table, key string, keys []any, rows [][]any) (int64, error) {
	if err := l.prepare(ctx, t, key, keys); err != nil {
		return 0, err
	}
	cols := schema.Names(t.LoadColumns())
	n, err := storage.LoadRows(ctx, t.Name, cols, rows, l.batchSize, storage.CopyInto(l.repo, t))
	if err != nil {
		return n, errs.Transform("insert", t.Name, err)
	}
	log.Printf("warehouse: %s: inserted=%d policy=%s", t.Name, n, l.policy)
	return n, nil
}

func (l *Loader) prepare(ctx context.Context, t schema.Table, key string, keys []any) error {
	d := l.repo.Dialect()
	switch l.policy {
	case config.PolicyTruncate:
		if _, err := l.repo.Exec(ctx, d.Truncate(t)); err != nil {
			return errs.Transform("truncate", t.Name, err)
		}
	case config.PolicyUpsert:
		if key == "" {
			return nil
		}
		for start := 0; start < len(keys); start += l.batchSize {
			end := min(start+l.batchSize, len(keys))
			chunk := keys[start:end]
			if _, err := l.repo.Exec(ctx, queries.DeleteKeys(d, t, key, len(chunk)), chunk...); err != nil {
				return errs.Transform("delete", t.Name, err)
			}
		}
	case config.PolicyAppend:
	default:
		return errs.Transform("load", t.Name, fmt.Errorf("unknown load policy %q", l.policy))
	}
	return nil
}
