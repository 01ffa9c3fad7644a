// Package errs defines the error kinds surfaced by the warehouse layer.
//
// Every failure returned by config, schema, staging and warehouse code is an
// *Error carrying one Kind. Callers classify failures with errors.Is against
// the exported sentinels:
//
//	if errors.Is(err, errs.SchemaError) {
//	    // e.g. DROP of a table that does not exist
//	}
//
// Nothing in this layer retries; the kind only tells the caller which stage
// of the run failed.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the stage that produced it.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindSchema        Kind = "schema"
	KindLoad          Kind = "load"
	KindTransform     Kind = "transform"
)

// Error is the structured error type used throughout the module.
type Error struct {
	Kind  Kind
	Op    string // short operation name, e.g. "drop", "copy", "insert"
	Table string // affected table, empty when not table-scoped
	Err   error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ConfigurationError = &Error{Kind: KindConfiguration}
	SchemaError        = &Error{Kind: KindSchema}
	LoadError          = &Error{Kind: KindLoad}
	TransformError     = &Error{Kind: KindTransform}
)

func (e *Error) Error() string {
	msg := string(e.Kind) + " error"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Table != "" {
		msg += " " + e.Table
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a bare sentinel of the same Kind. Fully
// populated targets only match themselves.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Table == "" && t.Err == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

// Configuration wraps err as a configuration failure.
func Configuration(op string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

// Configurationf builds a configuration failure from a format string.
func Configurationf(op, format string, a ...any) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: fmt.Errorf(format, a...)}
}

// Schema wraps a DDL failure on table.
func Schema(op, table string, err error) error {
	return &Error{Kind: KindSchema, Op: op, Table: table, Err: err}
}

// Load wraps a staging bulk-load failure on table.
func Load(op, table string, err error) error {
	return &Error{Kind: KindLoad, Op: op, Table: table, Err: err}
}

// Transform wraps an insert/select failure on table.
func Transform(op, table string, err error) error {
	return &Error{Kind: KindTransform, Op: op, Table: table, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
