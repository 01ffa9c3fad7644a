// Package metrics records run-level measurements of the warehouse load:
// one step counter and duration per pipeline step, and row counts per table.
//
// A process-wide Backend is installed once at start-up with SetBackend. The
// default backend drops everything, so instrumented code never checks
// whether metrics are enabled. Concrete systems (Prometheus Pushgateway,
// DogStatsD) live in subpackages.
package metrics

import "time"

// Metric names shared by every backend.
const (
	StepTotal     = "sparkify_step_total"
	StepDuration  = "sparkify_step_duration_seconds"
	RowsTotal     = "sparkify_rows_total"
	statusSuccess = "success"
	statusFailure = "failure"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend receives counters and duration observations.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs b. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of step and records its duration, labelled
// success or failure by err.
func RecordStep(job, step string, err error, d time.Duration) {
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds delta rows loaded into table. Non-positive deltas are
// ignored.
func RecordRows(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{"job": job, "table": table})
}
