package staging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/config"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource/file"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/errs"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/queries"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
	pgddl "github.com/adespotakis/data-engineering-part2-redshift/internal/storage/postgres/ddl"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage/sqlite"
)

/*
Fixtures
*/

const event = `{"artist":%q,"auth":"Logged In","firstName":"Sylvie","gender":"F","itemInSession":%d,"lastName":"Cruz","length":99.16036,"level":"free","location":"Washington-Arlington-Alexandria, DC-VA-MD-WV","method":"PUT","page":%q,"registration":1.540266185796E12,"sessionId":345,"song":%q,"status":200,"ts":1541990258796,"userAgent":"Mozilla/5.0","userId":"10"}`

const song = `{"num_songs": 1, "artist_id": %q, "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Line Renaud", "song_id": %q, "title": "Der Kleine Dompfaff", "duration": 152.92036, "year": 0}`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// logManifest lists the staging_logs load columns in table order, like the
// published log_json_path.json.
func logManifest() string {
	var paths []string
	for _, c := range schema.StagingLogs.LoadColumns() {
		paths = append(paths, fmt.Sprintf(`"$['%s']"`, c.Name))
	}
	return `{"jsonpaths": [` + strings.Join(paths, ",\n") + `]}`
}

type fixture struct {
	root string
	cfg  *config.Config
	repo *sqlite.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "log_json_path.json"), logManifest())

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
[IAM_ROLE]
ARN='arn:aws:iam::123456789012:role/dwhRole'

[S3]
LOG_DATA='%[1]s/log_data'
SONG_DATA='%[1]s/song_data'
LOG_JSONPATH='%[1]s/log_json_path.json'
LOG_JSON_PATHS='%[1]s/log_json_path.json'
SONG_JSON_PATHS='auto'

[WAREHOUSE]
KIND=sqlite
DSN=:memory:
BATCH_SIZE=2
LOADER_WORKERS=3
`, filepath.ToSlash(root))))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	repo, closeFn, err := sqlite.NewRepository(context.Background(), sqlite.Config{DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(closeFn)
	for _, q := range queries.InsertTempTableQueries(repo.Dialect()) {
		if _, err := repo.Exec(context.Background(), q); err != nil {
			t.Fatalf("create staging: %v", err)
		}
	}
	return &fixture{root: root, cfg: cfg, repo: repo}
}

func (f *fixture) loader() *Loader { return NewLoader(f.repo, file.Local{}, f.cfg) }

func (f *fixture) column(t *testing.T, table, col string) []string {
	t.Helper()
	rows, err := f.repo.Query(context.Background(),
		fmt.Sprintf(`SELECT COALESCE(CAST(%q AS TEXT), 'NULL') FROM %q ORDER BY "id"`, col, table))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	return out
}

/*
Client mode
*/

func TestLoadLogs_ClientModeWithManifest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	day1 := fmt.Sprintf(event, "Pavement", 0, "NextSong", "Mercy:The Laundromat") + "\n" +
		fmt.Sprintf(event, "", 1, "Home", "")
	day2 := fmt.Sprintf(event, "Muse", 2, "NextSong", "Uprising")
	writeFile(t, filepath.Join(f.root, "log_data", "2018", "11", "2018-11-02-events.json"), day2)
	writeFile(t, filepath.Join(f.root, "log_data", "2018", "11", "2018-11-01-events.json"), day1)

	n, err := f.loader().LoadLogs(context.Background())
	if err != nil {
		t.Fatalf("LoadLogs: %v", err)
	}
	if n != 3 {
		t.Fatalf("rows = %d, want 3", n)
	}
	if diff := cmp.Diff([]string{"Pavement", "", "Muse"}, f.column(t, "staging_logs", "artist")); diff != "" {
		t.Fatalf("artist by id (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"NextSong", "Home", "NextSong"}, f.column(t, "staging_logs", "page")); diff != "" {
		t.Fatalf("page by id (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1541990258796", "1541990258796", "1541990258796"}, f.column(t, "staging_logs", "ts")); diff != "" {
		t.Fatalf("ts (-want +got):\n%s", diff)
	}
}

func TestLoadSongs_ClientModeAuto(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	writeFile(t, filepath.Join(f.root, "song_data", "A", "A", "A", "TRAAAAK128F9318786.json"),
		fmt.Sprintf(song, "ARJNIUY12298900C91", "SOBLFFE12AF72AA5BA"))
	writeFile(t, filepath.Join(f.root, "song_data", "A", "A", "B", "TRAABJL12903CDCF1A.json"),
		"\ufeff"+fmt.Sprintf(song, "ARMJAGH1187FB546F3", "SOXVLOJ12AB0189215"))

	n, err := f.loader().LoadSongs(context.Background())
	if err != nil {
		t.Fatalf("LoadSongs: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	if diff := cmp.Diff([]string{"SOBLFFE12AF72AA5BA", "SOXVLOJ12AB0189215"}, f.column(t, "staging_songs", "song_id")); diff != "" {
		t.Fatalf("song_id (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"NULL", "NULL"}, f.column(t, "staging_songs", "artist_latitude")); diff != "" {
		t.Fatalf("latitude (-want +got):\n%s", diff)
	}
}

// TestLoad_KeyOrderSurvivesConcurrentFetch loads many small objects with
// several workers and a tiny batch size; ids must still follow key order.
func TestLoad_KeyOrderSurvivesConcurrentFetch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var want []string
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("SO%02d", i)
		writeFile(t, filepath.Join(f.root, "song_data", id+".json"),
			fmt.Sprintf(song, "AR"+id, id)+"\n"+fmt.Sprintf(song, "AR"+id, id+"b"))
		want = append(want, id, id+"b")
	}

	if _, err := f.loader().LoadSongs(context.Background()); err != nil {
		t.Fatalf("LoadSongs: %v", err)
	}
	if diff := cmp.Diff(want, f.column(t, "staging_songs", "song_id")); diff != "" {
		t.Fatalf("song_id by id (-want +got):\n%s", diff)
	}
}

func TestLoad_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prepare func(t *testing.T, f *fixture)
		load    func(l *Loader) (int64, error)
		want    string
	}{
		{
			name: "malformed_json",
			prepare: func(t *testing.T, f *fixture) {
				writeFile(t, filepath.Join(f.root, "song_data", "a.json"), `{"song_id": "SO1"`)
			},
			load: func(l *Loader) (int64, error) { return l.LoadSongs(context.Background()) },
			want: "a.json",
		},
		{
			name: "type_mismatch",
			prepare: func(t *testing.T, f *fixture) {
				writeFile(t, filepath.Join(f.root, "song_data", "a.json"), `{"song_id": "SO1", "year": "soon"}`)
			},
			load: func(l *Loader) (int64, error) { return l.LoadSongs(context.Background()) },
			want: "column year",
		},
		{
			name:    "no_objects",
			prepare: func(t *testing.T, f *fixture) {},
			load:    func(l *Loader) (int64, error) { return l.LoadLogs(context.Background()) },
			want:    "log_data",
		},
		{
			name: "bad_manifest",
			prepare: func(t *testing.T, f *fixture) {
				writeFile(t, filepath.Join(f.root, "log_json_path.json"), `{"jsonpaths": ["$['artist']"]}`)
				writeFile(t, filepath.Join(f.root, "log_data", "a.json"), `{}`)
			},
			load: func(l *Loader) (int64, error) { return l.LoadLogs(context.Background()) },
			want: "1 paths for 18 columns",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			tc.prepare(t, f)
			_, err := tc.load(f.loader())
			if !errors.Is(err, errs.LoadError) {
				t.Fatalf("err = %v, want LoadError", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoad_ClientModeWithoutSource(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := NewLoader(f.repo, nil, f.cfg).LoadSongs(context.Background())
	if !errors.Is(err, errs.LoadError) {
		t.Fatalf("err = %v, want LoadError", err)
	}
}

/*
Server mode
*/

// copyRepo records statements and can fail them; only Exec and Dialect are
// used by server-mode loads.
type copyRepo struct {
	storage.Repository
	stmts []string
	err   error
}

func (r *copyRepo) Exec(_ context.Context, sql string, _ ...any) (int64, error) {
	r.stmts = append(r.stmts, sql)
	return 7, r.err
}

func (r *copyRepo) Dialect() schema.Dialect { return pgddl.Redshift }

func serverCfg(t *testing.T, mode string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
[IAM_ROLE]
ARN='arn:aws:iam::123456789012:role/dwhRole'

[S3]
LOG_DATA='s3://udacity-dend/log_data'
SONG_DATA='s3://udacity-dend/song_data'
LOG_JSONPATH='s3://udacity-dend/log_json_path.json'
LOG_JSON_PATHS='s3://udacity-dend/log_json_path.json'
SONG_JSON_PATHS='auto'

[WAREHOUSE]
KIND=redshift
DSN=postgres://dwh
COPY_MODE=` + mode + `
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestLoad_ServerModeIssuesCopy(t *testing.T) {
	t.Parallel()

	repo := &copyRepo{}
	l := NewLoader(repo, nil, serverCfg(t, "auto"))
	if !l.ServerSide() {
		t.Fatal("redshift with COPY_MODE=auto should load server-side")
	}

	n, err := l.LoadLogs(context.Background())
	if err != nil || n != 7 {
		t.Fatalf("LoadLogs = %d, %v", n, err)
	}
	if _, err := l.LoadSongs(context.Background()); err != nil {
		t.Fatalf("LoadSongs: %v", err)
	}
	want := []string{
		"COPY \"staging_logs\"\nFROM 's3://udacity-dend/log_data'\nIAM_ROLE 'arn:aws:iam::123456789012:role/dwhRole'\nREGION 'us-west-2'\nJSON 's3://udacity-dend/log_json_path.json';",
		"COPY \"staging_songs\"\nFROM 's3://udacity-dend/song_data'\nIAM_ROLE 'arn:aws:iam::123456789012:role/dwhRole'\nREGION 'us-west-2'\nJSON 'auto';",
	}
	if diff := cmp.Diff(want, repo.stmts); diff != "" {
		t.Fatalf("statements (-want +got):\n%s", diff)
	}
}

func TestLoad_ServerModeFailureIsLoadError(t *testing.T) {
	t.Parallel()

	repo := &copyRepo{err: errors.New("S3ServiceException: Access Denied")}
	_, err := NewLoader(repo, nil, serverCfg(t, "server")).LoadLogs(context.Background())
	if !errors.Is(err, errs.LoadError) {
		t.Fatalf("err = %v, want LoadError", err)
	}
	if !strings.Contains(err.Error(), "staging_logs") || !strings.Contains(err.Error(), "Access Denied") {
		t.Fatalf("err = %v, want table name and cause", err)
	}
}

func TestServerSide_ClientOverride(t *testing.T) {
	t.Parallel()

	if NewLoader(&copyRepo{}, nil, serverCfg(t, "client")).ServerSide() {
		t.Fatal("COPY_MODE=client must load client-side")
	}
}

func TestLoadSongs_ZeroWorkersStillFetches(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cfg.Warehouse.LoaderWorkers = 0
	writeFile(t, filepath.Join(f.root, "song_data", "A", "TRA1.json"), fmt.Sprintf(song, "AR1", "SO1"))
	writeFile(t, filepath.Join(f.root, "song_data", "B", "TRA2.json"), fmt.Sprintf(song, "AR2", "SO2"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := f.loader().LoadSongs(ctx)
	if err != nil {
		t.Fatalf("LoadSongs: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
}
