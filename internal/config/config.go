// Package config defines the warehouse configuration model and loads it from
// an INI file (dwh.cfg by convention).
//
// The file must carry the two sections the load statements depend on:
//
//	[IAM_ROLE]
//	ARN='arn:aws:iam::123456789012:role/dwhRole'
//
//	[S3]
//	LOG_DATA='s3://udacity-dend/log_data'
//	SONG_DATA='s3://udacity-dend/song_data'
//	LOG_JSONPATH='s3://udacity-dend/log_json_path.json'
//	LOG_JSON_PATHS='s3://udacity-dend/log_json_path.json'
//	SONG_JSON_PATHS='auto'
//
// Values may be wrapped in single quotes, as they were written for direct
// interpolation into SQL text; the quotes are stripped on load and the COPY
// renderer re-quotes (and escapes) them.
//
// Optional sections select the warehouse backend, the load policy and the
// metrics backend:
//
//	[CLUSTER]   HOST, DB_NAME, DB_USER, DB_PASSWORD, DB_PORT
//	[WAREHOUSE] KIND, DSN, LOAD_POLICY, BATCH_SIZE, COPY_MODE, LOADER_WORKERS
//	[METRICS]   BACKEND, PUSHGATEWAY_URL, DATADOG_ADDR, JOB
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/errs"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "dwh.cfg"

// DefaultRegion is the region the staging COPY statements use when S3.REGION
// is unset.
const DefaultRegion = "us-west-2"

// Config is the fully resolved configuration. It is built once at process
// start and passed explicitly to every component that needs it.
type Config struct {
	IAMRole   IAMRole
	S3        S3
	Cluster   Cluster
	Warehouse Warehouse
	Metrics   Metrics
}

// IAMRole is the [IAM_ROLE] section.
type IAMRole struct {
	// ARN of the role the warehouse assumes to read object storage.
	ARN string
}

// S3 is the [S3] section.
type S3 struct {
	LogData  string // prefix of the event-log objects
	SongData string // prefix of the song-metadata objects

	// LogJSONPath is required in existing config files but not referenced by
	// either load statement; LogJSONPaths is.
	LogJSONPath string

	LogJSONPaths  string // JSON-paths manifest (or 'auto') for staging_logs
	SongJSONPaths string // JSON-paths manifest (or 'auto') for staging_songs

	// Region of the bucket. Defaults to DefaultRegion.
	Region string
	// Endpoint optionally overrides the S3 endpoint for client-side loads
	// (MinIO, LocalStack).
	Endpoint string
}

// Cluster is the optional [CLUSTER] section used to build a DSN when
// [WAREHOUSE] DSN is not set.
type Cluster struct {
	Host     string
	DBName   string
	User     string
	Password string
	Port     string
}

// Load policies for permanent tables across repeated runs.
const (
	PolicyAppend   = "append"
	PolicyTruncate = "truncate"
	PolicyUpsert   = "upsert"
)

// Copy modes for staging loads.
const (
	CopyAuto   = "auto"   // server COPY when the backend supports it
	CopyServer = "server" // warehouse-side COPY ... FROM 's3://...'
	CopyClient = "client" // this process reads the objects and inserts rows
)

// Warehouse is the optional [WAREHOUSE] section.
type Warehouse struct {
	// Kind selects the storage backend: redshift, postgres, sqlite, mssql.
	Kind string
	// DSN is passed to the backend driver. When empty and Kind is redshift or
	// postgres, it is built from [CLUSTER].
	DSN string
	// LoadPolicy is one of PolicyAppend, PolicyTruncate, PolicyUpsert.
	LoadPolicy string
	// BatchSize bounds multi-row inserts.
	BatchSize int
	// CopyMode is one of CopyAuto, CopyServer, CopyClient.
	CopyMode string
	// LoaderWorkers bounds concurrent object fetches in client mode.
	LoaderWorkers int
}

// Metrics is the optional [METRICS] section.
type Metrics struct {
	Backend        string // "none", "pushgateway" or "datadog"
	PushgatewayURL string
	DatadogAddr    string // DogStatsD address, e.g. 127.0.0.1:8125
	Job            string
}

const (
	defaultKind          = "redshift"
	defaultBatchSize     = 500
	defaultLoaderWorkers = 4
	defaultJob           = "sparkify_etl"
)

// Inline comments need a leading space so values may contain '#' and ';'
// (passwords, DSNs).
var loadOptions = ini.LoadOptions{InsensitiveKeys: true, SpaceBeforeInlineComment: true}

// Load reads and validates the INI file at path. Any unreadable file, missing
// required key or invalid optional value is returned as an
// errs.ConfigurationError.
func Load(path string) (*Config, error) {
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, errs.Configuration("read "+path, err)
	}
	return fromFile(f)
}

// Parse is Load for in-memory sources.
func Parse(data []byte) (*Config, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, errs.Configuration("parse", err)
	}
	return fromFile(f)
}

func fromFile(f *ini.File) (*Config, error) {
	r := reader{f: f}

	cfg := &Config{
		IAMRole: IAMRole{
			ARN: r.required("IAM_ROLE", "ARN"),
		},
		S3: S3{
			LogData:       r.required("S3", "LOG_DATA"),
			SongData:      r.required("S3", "SONG_DATA"),
			LogJSONPath:   r.required("S3", "LOG_JSONPATH"),
			LogJSONPaths:  r.required("S3", "LOG_JSON_PATHS"),
			SongJSONPaths: r.required("S3", "SONG_JSON_PATHS"),
			Region:        r.optional("S3", "REGION", DefaultRegion),
			Endpoint:      r.optional("S3", "ENDPOINT", ""),
		},
		Cluster: Cluster{
			Host:     r.optional("CLUSTER", "HOST", ""),
			DBName:   r.optional("CLUSTER", "DB_NAME", ""),
			User:     r.optional("CLUSTER", "DB_USER", ""),
			Password: r.optional("CLUSTER", "DB_PASSWORD", ""),
			Port:     r.optional("CLUSTER", "DB_PORT", "5439"),
		},
		Warehouse: Warehouse{
			Kind:          strings.ToLower(r.optional("WAREHOUSE", "KIND", defaultKind)),
			DSN:           r.optional("WAREHOUSE", "DSN", ""),
			LoadPolicy:    strings.ToLower(r.optional("WAREHOUSE", "LOAD_POLICY", PolicyAppend)),
			BatchSize:     r.integer("WAREHOUSE", "BATCH_SIZE", defaultBatchSize),
			CopyMode:      strings.ToLower(r.optional("WAREHOUSE", "COPY_MODE", CopyAuto)),
			LoaderWorkers: r.integer("WAREHOUSE", "LOADER_WORKERS", defaultLoaderWorkers),
		},
		Metrics: Metrics{
			Backend:        strings.ToLower(r.optional("METRICS", "BACKEND", "none")),
			PushgatewayURL: r.optional("METRICS", "PUSHGATEWAY_URL", ""),
			DatadogAddr:    r.optional("METRICS", "DATADOG_ADDR", ""),
			Job:            r.optional("METRICS", "JOB", defaultJob),
		},
	}
	if len(r.missing) > 0 {
		return nil, errs.Configurationf("resolve", "missing required keys: %s", strings.Join(r.missing, ", "))
	}
	if len(r.invalid) > 0 {
		return nil, errs.Configurationf("resolve", "%s", strings.Join(r.invalid, "; "))
	}

	for _, iss := range Validate(cfg) {
		if iss.Severity == SeverityError {
			return nil, errs.Configuration("validate", iss)
		}
	}
	return cfg, nil
}

// DSN returns the connection string for the configured backend.
func (c *Config) DSN() string {
	if c.Warehouse.DSN != "" {
		return c.Warehouse.DSN
	}
	switch c.Warehouse.Kind {
	case "redshift", "postgres":
		return c.Cluster.DSN()
	}
	return ""
}

// DSN renders the [CLUSTER] block as a postgres:// URL. It returns "" when
// HOST or DB_NAME is unset.
func (c Cluster) DSN() string {
	if c.Host == "" || c.DBName == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.DBName,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	return u.String()
}

// reader collects missing/invalid keys so a single error names all of them.
type reader struct {
	f       *ini.File
	missing []string
	invalid []string
}

func (r *reader) value(section, key string) (string, bool) {
	sec, err := r.f.GetSection(section)
	if err != nil || !sec.HasKey(key) {
		return "", false
	}
	return Unquote(sec.Key(key).String()), true
}

func (r *reader) required(section, key string) string {
	v, ok := r.value(section, key)
	if !ok || v == "" {
		r.missing = append(r.missing, section+"."+key)
		return ""
	}
	return v
}

func (r *reader) optional(section, key, def string) string {
	v, ok := r.value(section, key)
	if !ok || v == "" {
		return def
	}
	return v
}

func (r *reader) integer(section, key string, def int) int {
	sec, err := r.f.GetSection(section)
	if err != nil || !sec.HasKey(key) {
		return def
	}
	n, err := sec.Key(key).Int()
	if err != nil {
		r.invalid = append(r.invalid, fmt.Sprintf("%s.%s: %v", section, key, err))
		return def
	}
	return n
}

// Unquote strips one pair of matching surrounding single or double quotes.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
