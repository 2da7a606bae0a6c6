package types

import (
	"errors"
	"strconv"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrStoreUnavailable indicates the persistent store cannot be opened or used.
	// A queue whose store is unavailable runs in pass-through mode.
	ErrStoreUnavailable = errors.New("offlineq: persistent store unavailable")

	// ErrStoreFull indicates a bounded store reached its capacity.
	ErrStoreFull = errors.New("offlineq: store is full")

	// ErrStoreClosed indicates an operation was attempted on a closed store.
	ErrStoreClosed = errors.New("offlineq: store is closed")

	// ErrOperationNotFound indicates a store mutation referenced an unknown id.
	ErrOperationNotFound = errors.New("offlineq: queued operation not found")

	// ErrReplayInFlight indicates a drain request arrived while a drain was
	// running. The request is recorded and exactly one more drain pass runs
	// after the current one. This is informational, not a failure.
	ErrReplayInFlight = errors.New("offlineq: drain in flight, rerun scheduled")

	// ErrQueueClosed indicates an operation was attempted on a closed queue.
	ErrQueueClosed = errors.New("offlineq: queue is closed")

	// ErrNilStore indicates that a nil store was provided.
	ErrNilStore = errors.New("offlineq: store cannot be nil")

	// ErrNilTransport indicates that a nil transport was provided.
	ErrNilTransport = errors.New("offlineq: transport cannot be nil")

	// ErrRetriesExhausted indicates an operation was dropped because its
	// retry count reached the configured limit.
	ErrRetriesExhausted = errors.New("offlineq: retry limit reached")
)

// TransportError is returned by a Transport when an operation fails.
//
// Status carries the server response code when the failure originated from a
// response. It is zero for pure network failures (connection refused, DNS,
// timeout) where no response was received.
type TransportError struct {
	// Status is the response status, or 0 when no response was received.
	Status int

	// Target is the endpoint the request was sent to.
	Target string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	msg := "offlineq: transport " + e.Target
	if e.Status > 0 {
		msg += " returned status " + strconv.Itoa(e.Status)
	} else {
		msg += " unreachable"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// StoreError wraps an error from a persistent store backend.
type StoreError struct {
	// Backend names the store implementation (e.g. "pebble", "sqlite").
	Backend string

	// Operation describes what operation failed.
	Operation string

	// Unavailable marks errors that make the whole store unusable.
	// Such errors match ErrStoreUnavailable via errors.Is.
	Unavailable bool

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return "offlineq: " + e.Backend + " store " + e.Operation + " failed: " + e.Cause.Error()
}

// Unwrap returns the wrapped errors for errors.Is/As compatibility.
func (e *StoreError) Unwrap() []error {
	if e.Unavailable {
		return []error{ErrStoreUnavailable, e.Cause}
	}

	return []error{e.Cause}
}
