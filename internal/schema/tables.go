package schema

// Table names.
const (
	StagingLogsTable  = "staging_logs"
	StagingSongsTable = "staging_songs"
	SongplaysTable    = "songplays"
	UsersTable        = "users"
	SongsTable        = "songs"
	ArtistsTable      = "artists"
	TimeTable         = "time"
)

// StagingLogs holds raw event-log rows for one run.
var StagingLogs = Table{
	Name:      StagingLogsTable,
	Temporary: true,
	Columns: []Column{
		{Name: "id", Type: Identity, PrimaryKey: true},
		{Name: "artist", Type: Varchar},
		{Name: "auth", Type: Varchar},
		{Name: "firstName", Type: Varchar},
		{Name: "gender", Type: Varchar},
		{Name: "itemInSession", Type: Int},
		{Name: "lastName", Type: Varchar},
		{Name: "length", Type: Numeric},
		{Name: "level", Type: Varchar},
		{Name: "location", Type: Varchar},
		{Name: "method", Type: Varchar},
		{Name: "page", Type: Varchar},
		{Name: "registration", Type: Numeric},
		{Name: "sessionId", Type: Int},
		{Name: "song", Type: Varchar},
		{Name: "status", Type: Int},
		{Name: "ts", Type: BigInt},
		{Name: "userAgent", Type: Varchar},
		{Name: "userId", Type: Varchar},
	},
}

// StagingSongs holds raw song-metadata rows for one run.
var StagingSongs = Table{
	Name:      StagingSongsTable,
	Temporary: true,
	Columns: []Column{
		{Name: "id", Type: Identity, PrimaryKey: true},
		{Name: "num_songs", Type: Int},
		{Name: "artist_id", Type: Varchar},
		{Name: "artist_latitude", Type: Real},
		{Name: "artist_longitude", Type: Real},
		{Name: "artist_location", Type: Varchar},
		{Name: "artist_name", Type: Varchar},
		{Name: "song_id", Type: Varchar},
		{Name: "title", Type: Varchar},
		{Name: "duration", Type: Real},
		{Name: "year", Type: Int},
	},
}

// Songplays is the fact table: one row per play event.
var Songplays = Table{
	Name: SongplaysTable,
	Columns: []Column{
		{Name: "songplay_id", Type: Identity, PrimaryKey: true},
		{Name: "start_time", Type: Timestamp, NotNull: true},
		{Name: "user_id", Type: Int, NotNull: true},
		{Name: "level", Type: Varchar, Size: 4},
		{Name: "song_id", Type: Varchar},
		{Name: "artist_id", Type: Varchar},
		{Name: "session_id", Type: Int},
		{Name: "user_agent", Type: Varchar},
		{Name: "location", Type: Varchar},
	},
}

// Users is the listener dimension.
var Users = Table{
	Name: UsersTable,
	Columns: []Column{
		{Name: "user_id", Type: Int, PrimaryKey: true},
		{Name: "first_name", Type: Varchar},
		{Name: "last_name", Type: Varchar},
		{Name: "gender", Type: Varchar, Size: 1},
		{Name: "level", Type: Varchar, Size: 4},
	},
}

// Songs is the song dimension.
var Songs = Table{
	Name: SongsTable,
	Columns: []Column{
		{Name: "song_id", Type: Varchar, PrimaryKey: true},
		{Name: "title", Type: Varchar},
		{Name: "artist_id", Type: Varchar, NotNull: true},
		{Name: "year", Type: Int},
		{Name: "duration", Type: Real},
	},
}

// Artists is the artist dimension. Latitude and longitude are stored as
// text.
var Artists = Table{
	Name: ArtistsTable,
	Columns: []Column{
		{Name: "artist_id", Type: Varchar, PrimaryKey: true},
		{Name: "name", Type: Varchar},
		{Name: "location", Type: Varchar},
		{Name: "latitude", Type: Varchar},
		{Name: "longitude", Type: Varchar},
	},
}

// Time is the timestamp dimension.
var Time = Table{
	Name: TimeTable,
	Columns: []Column{
		{Name: "start_time", Type: Timestamp, PrimaryKey: true},
		{Name: "hour", Type: Int},
		{Name: "day", Type: Int},
		{Name: "week", Type: Int},
		{Name: "month", Type: Int},
		{Name: "year", Type: Int},
		{Name: "weekday", Type: Varchar},
	},
}

// Tables lists every table in creation order: staging tables first, since
// later steps read them. No foreign keys are declared, so the permanent
// tables have no ordering constraint among themselves.
var Tables = []Table{StagingLogs, StagingSongs, Songplays, Users, Songs, Artists, Time}

// Staging lists the temporary staging tables.
var Staging = []Table{StagingLogs, StagingSongs}

// Permanent lists the fact and dimension tables.
var Permanent = []Table{Songplays, Users, Songs, Artists, Time}

// Lookup returns the table with the given name.
func Lookup(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
