// Package errors classifies the processor's failure modes (spec.md §7):
// transport, framing, protocol-phase, and service errors. Service faults
// carry a ua.StatusCode; everything else is a fatal, connection-ending
// error wrapped with github.com/pkg/errors for context.
package errors

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/lAndbz/opcua-processor/ua"
)

// StatusError pairs a ua.StatusCode with the error that produced it, for
// service-level faults that can be reported to the client instead of
// killing the connection (spec.md §7).
type StatusError struct {
	Code  ua.StatusCode
	cause error
}

// NewStatusError wraps cause with a StatusCode.
func NewStatusError(code ua.StatusCode, cause error) *StatusError {
	return &StatusError{Code: code, cause: cause}
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.cause == nil {
		return "opcua: service fault"
	}
	return e.cause.Error()
}

// Unwrap supports errors.Is/As against the wrapped cause.
func (e *StatusError) Unwrap() error {
	return e.cause
}

// Wrap annotates err with a message, or returns nil if err is nil.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message, or returns nil if err is
// nil.
func Wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// Cause returns the underlying cause of err, unwrapping
// github.com/pkg/errors wrappers.
func Cause(err error) error {
	return pkgerrors.Cause(err)
}
