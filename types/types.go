// Package types provides shared types and errors for the offlineq library.
//
// This is a "leaf" package with no imports from other offlineq packages,
// allowing it to be imported by any package without causing import cycles.
package types

import (
	"maps"
	"strings"
	"time"
)

// Method identifies the kind of state change a queued operation performs.
//
// The three canonical tags are MethodCreate, MethodUpdate and MethodDelete.
// Raw HTTP verbs (e.g. "PATCH") are accepted as equivalent tags and passed
// through unchanged by transports that understand them.
type Method string

// String returns the string representation of the Method.
func (m Method) String() string {
	return string(m)
}

const (
	// MethodCreate creates a new resource.
	MethodCreate Method = "CREATE"
	// MethodUpdate modifies an existing resource.
	MethodUpdate Method = "UPDATE"
	// MethodDelete removes a resource.
	MethodDelete Method = "DELETE"
)

// HTTPVerb maps the method tag to an HTTP verb.
//
// CREATE maps to POST, UPDATE to PUT and DELETE to DELETE. Any other tag is
// upper-cased and returned as-is so callers can queue PATCH or similar verbs.
//
// Returns:
//   - string: The HTTP verb to use on the wire
func (m Method) HTTPVerb() string {
	switch m {
	case MethodCreate:
		return "POST"
	case MethodUpdate:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	default:
		return strings.ToUpper(string(m))
	}
}

// Request describes a state-changing operation issued by application code.
type Request struct {
	// Target is the opaque endpoint identifier (e.g. "/api/tickets/42").
	Target string

	// Method is the verb tag for the operation.
	Method Method

	// Payload is the serialized request body. It is stored byte-for-byte.
	Payload []byte

	// Headers holds metadata needed at replay time. Time-sensitive values
	// such as auth tokens are re-resolved at replay by a HeaderResolver.
	Headers map[string]string
}

// QueuedOperation is a request that failed non-terminally and waits for replay.
type QueuedOperation struct {
	// ID is assigned by the store. IDs are strictly increasing and never reused,
	// so ascending ID order is enqueue order.
	ID uint64

	// Target is the opaque endpoint identifier.
	Target string

	// Method is the verb tag.
	Method Method

	// Payload is the request body exactly as submitted.
	Payload []byte

	// Headers is the header snapshot captured at enqueue time.
	Headers map[string]string

	// EnqueuedAt is informational only. It is not used for ordering or expiry.
	EnqueuedAt time.Time

	// RetryCount is incremented each time a replay attempt is retained.
	RetryCount int
}

// Request returns the request this operation will replay.
//
// The returned request shares no mutable state with the operation.
//
// Returns:
//   - Request: A copy of the operation's request fields
func (op QueuedOperation) Request() Request {
	return Request{
		Target:  op.Target,
		Method:  op.Method,
		Payload: append([]byte(nil), op.Payload...),
		Headers: maps.Clone(op.Headers),
	}
}

// NewQueuedOperation builds a queued operation from a request.
//
// The payload and headers are copied so later mutation by the caller does not
// affect what gets persisted. The ID is left zero for the store to assign.
//
// Parameters:
//   - req: The request to queue
//   - now: The enqueue timestamp
//
// Returns:
//   - QueuedOperation: The operation ready for Store.Append
func NewQueuedOperation(req Request, now time.Time) QueuedOperation {
	return QueuedOperation{
		Target:     req.Target,
		Method:     req.Method,
		Payload:    append([]byte(nil), req.Payload...),
		Headers:    maps.Clone(req.Headers),
		EnqueuedAt: now,
	}
}

// Result is the value returned to callers of the queue.
//
// It is implemented only by *Response and *SyntheticResponse.
type Result interface {
	// Offline reports whether the result was fabricated locally because the
	// operation was queued instead of sent.
	Offline() bool

	// StatusCode returns the HTTP-style status of the result.
	StatusCode() int

	sealed()
}

// Response is a real reply from the transport.
type Response struct {
	// Status is the HTTP-style status code. Zero means the transport has no
	// notion of status and the call succeeded.
	Status int

	// Header holds response metadata.
	Header map[string]string

	// Body is the raw response body.
	Body []byte
}

// Offline always returns false for real responses.
func (r *Response) Offline() bool { return false }

// StatusCode returns the response status.
func (r *Response) StatusCode() int { return r.Status }

func (r *Response) sealed() {}

// ConnectivityUpdate represents a transition of network reachability.
type ConnectivityUpdate struct {
	// Reachable is true when the backend became reachable.
	Reachable bool

	// Reason is a human-readable description of the transition (optional).
	Reason string
}
