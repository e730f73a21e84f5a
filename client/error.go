package client

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrorKind classifies a failure reported to [Options.OnError].
type ErrorKind string

// The closed set of error kinds.
const (
	// NetworkError is a failure reported by the transport.
	NetworkError ErrorKind = "NETWORK_ERROR"
	// NetworkTimeout means the transport timed out.
	NetworkTimeout ErrorKind = "NETWORK_TIMEOUT"
	// RequestAborted means the request was aborted by the caller.
	RequestAborted ErrorKind = "REQUEST_ABORTED"
	// LoadError is a failure while processing a received response.
	LoadError ErrorKind = "LOAD_ERROR"
	// ClientError is a failure while preparing or sending the request.
	ClientError ErrorKind = "CLIENT_ERROR"
)

// ErrorKinds returns every ErrorKind.
func ErrorKinds() []ErrorKind {
	return []ErrorKind{NetworkError, NetworkTimeout, RequestAborted, LoadError, ClientError}
}

// ErrRejected is returned by [Result.Await] when the request did not succeed.
// When the failure happened before or after the round trip, it is returned
// bare and the detail is only available through [Options.OnError].
var ErrRejected = errors.New("request rejected")

// RejectedError carries the response of a request that completed the round
// trip, or failed in transport, without a success status.
type RejectedError struct {
	Response *Response
}

func (e *RejectedError) Error() string {
	if e.Response == nil {
		return ErrRejected.Error()
	}
	if e.Response.Error {
		return fmt.Sprintf("%v: %s", ErrRejected, e.Response.ErrorText)
	}

	return fmt.Sprintf("%v: status %d %s", ErrRejected, e.Response.Status, e.Response.StatusText)
}

func (e *RejectedError) Unwrap() error {
	return ErrRejected
}

// ErrorReport is passed to [Options.OnError] exactly once per failure.
type ErrorReport struct {
	Kind  ErrorKind
	Cause error
}

func (e ErrorReport) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e ErrorReport) Unwrap() error {
	return e.Cause
}

// PanicError wraps a recovered panic value that was not an error.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("PANIC [%v]", e.Value)
}

// guard runs fn, converting a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicCause(rec)
		}
	}()

	return fn()
}

func panicCause(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}

	return &PanicError{Value: rec, Stack: debug.Stack()}
}
