package entity

import (
	"errors"
	"fmt"
	"strings"
)

// RunErrorCode categorizes run failures.
type RunErrorCode string

const (
	// ErrCodeConfig indicates an unknown model, an invalid configuration or
	// a port/signal cardinality mismatch. Detected before anything is staged.
	ErrCodeConfig RunErrorCode = "CONFIG"

	// ErrCodeStaging indicates input data incompatible with its exchange
	// file, or an input file that could not be written.
	ErrCodeStaging RunErrorCode = "STAGING"

	// ErrCodeBackend indicates a simulator failure, a timeout or a missing
	// or malformed output file.
	ErrCodeBackend RunErrorCode = "BACKEND"

	// ErrCodeResource indicates a work directory collision, a failure to
	// release exchange files or a concurrent run of the same entity.
	ErrCodeResource RunErrorCode = "RESOURCE"
)

// RunError is a fatal failure of one entity run.
//
// It identifies the entity instance, the model in effect and, when known,
// the offending port.
type RunError struct {
	Code     RunErrorCode
	Entity   string
	Instance string
	Model    string
	Port     string
	Err      error
}

func (e *RunError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: entity %s", e.Code, e.Entity)
	if e.Instance != "" {
		fmt.Fprintf(&b, " (instance=%s, model=%s)", e.Instance, e.Model)
	} else if e.Model != "" {
		fmt.Fprintf(&b, " (model=%s)", e.Model)
	}
	if e.Port != "" {
		fmt.Fprintf(&b, " port %s", e.Port)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *RunError) Unwrap() error { return e.Err }

func hasCode(err error, code RunErrorCode) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool { return hasCode(err, ErrCodeConfig) }

// IsStagingError reports whether err is a staging error.
func IsStagingError(err error) bool { return hasCode(err, ErrCodeStaging) }

// IsBackendError reports whether err is a backend execution error.
func IsBackendError(err error) bool { return hasCode(err, ErrCodeBackend) }

// IsResourceError reports whether err is a resource error.
func IsResourceError(err error) bool { return hasCode(err, ErrCodeResource) }
