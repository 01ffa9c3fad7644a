package warehouse

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Event is one play event read from staging_logs (page = 'NextSong').
type Event struct {
	UserID    sql.NullString
	FirstName sql.NullString
	LastName  sql.NullString
	Gender    sql.NullString
	Level     sql.NullString
	TS        sql.NullInt64 // epoch milliseconds
	Artist    sql.NullString
	Song      sql.NullString
	Length    sql.NullFloat64
	Location  sql.NullString
	SessionID sql.NullInt64
	UserAgent sql.NullString
}

// UserKey returns the numeric user id. Events with an empty or non-numeric
// userId (logged-out traffic) have none.
func (e Event) UserKey() (int64, bool) {
	if !e.UserID.Valid {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(e.UserID.String), 10, 32)
	if err != nil {
		return 0, false
	}
	return id, true
}

// StartTime converts ts to a UTC timestamp.
func (e Event) StartTime() (time.Time, bool) {
	if !e.TS.Valid {
		return time.Time{}, false
	}
	return time.UnixMilli(e.TS.Int64).UTC(), true
}

// User is a row of the users dimension.
type User struct {
	UserID    int64
	FirstName sql.NullString
	LastName  sql.NullString
	Gender    sql.NullString
	Level     sql.NullString
}

// Artist is a row of the artists dimension.
type Artist struct {
	ArtistID  string
	Name      sql.NullString
	Location  sql.NullString
	Latitude  sql.NullString
	Longitude sql.NullString
}

// TimeRow is a row of the time dimension.
type TimeRow struct {
	StartTime time.Time
	Hour      int
	Day       int
	Week      int // ISO 8601 week
	Month     int
	Year      int
	Weekday   string
}

// NewTimeRow decomposes t (in UTC).
func NewTimeRow(t time.Time) TimeRow {
	t = t.UTC()
	_, week := t.ISOWeek()
	return TimeRow{
		StartTime: t,
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   t.Weekday().String(),
	}
}

// Songplay is a row of the fact table. SongID and ArtistID are NULL when
// the lookup found no match.
type Songplay struct {
	StartTime time.Time
	UserID    int64
	Level     sql.NullString
	SongID    sql.NullString
	ArtistID  sql.NullString
	SessionID sql.NullInt64
	UserAgent sql.NullString
	Location  sql.NullString
}

// Match is a resolved (song_id, artist_id) pair.
type Match struct {
	SongID   string
	ArtistID string
}

// SongArtist is one song joined with its artist.
type SongArtist struct {
	SongID     string
	Title      sql.NullString
	ArtistID   string
	ArtistName sql.NullString
}

// value turns the nullable column types into driver-neutral values: nil or
// the plain Go value.
func value(v any) any {
	switch t := v.(type) {
	case sql.NullString:
		if !t.Valid {
			return nil
		}
		return t.String
	case sql.NullInt64:
		if !t.Valid {
			return nil
		}
		return t.Int64
	case sql.NullFloat64:
		if !t.Valid {
			return nil
		}
		return t.Float64
	}
	return v
}

func values(vs ...any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = value(v)
	}
	return out
}

func (u User) row() []any {
	return values(u.UserID, u.FirstName, u.LastName, u.Gender, u.Level)
}

func (a Artist) row() []any {
	return values(a.ArtistID, a.Name, a.Location, a.Latitude, a.Longitude)
}

func (t TimeRow) row() []any {
	return values(t.StartTime, int64(t.Hour), int64(t.Day), int64(t.Week), int64(t.Month), int64(t.Year), t.Weekday)
}

func (s Songplay) row() []any {
	return values(s.StartTime, s.UserID, s.Level, s.SongID, s.ArtistID, s.SessionID, s.UserAgent, s.Location)
}
