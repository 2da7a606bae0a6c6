// Package types provides shared types and error definitions for the offlineq library.
//
// This is a leaf package with zero offlineq imports to prevent import cycles.
// All packages in offlineq can safely import this package.
//
// # Data Model
//
// QueuedOperation is the unit of durability. It carries an opaque target,
// a method tag, the payload bytes exactly as submitted, and a snapshot of
// request headers:
//
//	type QueuedOperation struct {
//	    ID         uint64
//	    Target     string
//	    Method     Method
//	    Payload    []byte
//	    Headers    map[string]string
//	    EnqueuedAt time.Time
//	    RetryCount int
//	}
//
// # Outcomes
//
// Every replay attempt is classified into exactly one Outcome:
//
//   - OutcomeSuccess: the operation completed; it is removed from the store
//   - OutcomeTerminal: the server rejected the request (4xx); it is dropped
//   - OutcomeTransient: no usable response (network, timeout, 5xx); it is retained
//
// # Errors
//
// Sentinel errors are provided for common failure scenarios:
//
//   - ErrStoreUnavailable: the persistent store cannot be opened or used
//   - ErrOperationNotFound: a store mutation referenced an unknown id
//   - ErrReplayInFlight: a drain request was coalesced into the running drain
//   - ErrQueueClosed: an operation was attempted on a closed queue
//
// # Results
//
// Result is a sealed interface implemented by *Response (a real backend
// reply) and *SyntheticResponse (a locally fabricated success returned while
// the operation waits in the queue). Callers type-switch on it:
//
//	switch r := res.(type) {
//	case *types.SyntheticResponse:
//	    showPendingBadge(r.PlaceholderID)
//	case *types.Response:
//	    render(r.Body)
//	}
package types
