// This file adds a lightweight validator for Config values. It performs
// static checks over a resolved Config and returns a list of issues (errors
// and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced but does not
	// block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is SECTION.KEY as written in the INI file (e.g. "WAREHOUSE.KIND").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be wrapped directly.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Kinds accepted by WAREHOUSE.KIND.
var knownKinds = map[string]struct{}{
	"redshift": {},
	"postgres": {},
	"sqlite":   {},
	"mssql":    {},
}

// Validate performs static validation of a resolved Config. It does not
// mutate cfg.
func Validate(cfg *Config) []Issue {
	var issues []Issue
	issues = append(issues, validateS3(cfg.S3)...)
	issues = append(issues, validateWarehouse(cfg)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	return issues
}

func validateS3(s S3) []Issue {
	var issues []Issue
	for _, p := range []struct{ path, v string }{
		{"S3.LOG_DATA", s.LogData},
		{"S3.SONG_DATA", s.SongData},
	} {
		if strings.ContainsAny(p.v, "\n\r") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     p.path,
				Message:  "value must be a single line",
			})
		}
	}
	if strings.TrimSpace(s.Region) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "S3.REGION",
			Message:  "region must not be empty",
		})
	}
	return issues
}

func validateWarehouse(cfg *Config) []Issue {
	var issues []Issue
	w := cfg.Warehouse

	if _, ok := knownKinds[w.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "WAREHOUSE.KIND",
			Message:  fmt.Sprintf("unknown warehouse kind %q (want redshift, postgres, sqlite or mssql)", w.Kind),
		})
	}

	switch w.LoadPolicy {
	case PolicyAppend, PolicyTruncate, PolicyUpsert:
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "WAREHOUSE.LOAD_POLICY",
			Message:  fmt.Sprintf("unknown load policy %q (want append, truncate or upsert)", w.LoadPolicy),
		})
	}

	switch w.CopyMode {
	case CopyAuto, CopyClient:
	case CopyServer:
		if w.Kind != "redshift" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "WAREHOUSE.COPY_MODE",
				Message:  fmt.Sprintf("server-side COPY from object storage requires kind redshift, got %q", w.Kind),
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "WAREHOUSE.COPY_MODE",
			Message:  fmt.Sprintf("unknown copy mode %q (want auto, server or client)", w.CopyMode),
		})
	}

	if w.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "WAREHOUSE.BATCH_SIZE",
			Message:  "batch size must be > 0",
		})
	}
	if w.LoaderWorkers <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "WAREHOUSE.LOADER_WORKERS",
			Message:  "loader workers must be > 0",
		})
	}

	if cfg.DSN() == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "WAREHOUSE.DSN",
			Message:  "no DSN configured and [CLUSTER] is incomplete; a connection cannot be opened",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "none", "":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "METRICS.PUSHGATEWAY_URL",
				Message:  "pushgateway backend without URL; the -pushgateway-url flag must supply one",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "METRICS.DATADOG_ADDR",
				Message:  "datadog backend without DogStatsD address; the -datadog-addr flag must supply one",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "METRICS.BACKEND",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend),
		})
	}
	return issues
}
