package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:dwh.db"
	//   ":memory:"
	// Every Repository holds a single connection, so ":memory:" gives one
	// private database per Repository.
	DSN string
}
