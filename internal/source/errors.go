package source

import "fmt"

// TransientError wraps an upstream failure worth retrying: timeouts,
// connection resets, rate-limit responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient source error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps a failure that retrying cannot fix: a
// parameter/contract mismatch or a response shape the adapter cannot
// parse. The retry policy aborts the current source immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent source error: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanentf builds a PermanentError from a format string.
func Permanentf(format string, a ...interface{}) error {
	return &PermanentError{Err: fmt.Errorf(format, a...)}
}
