package types

import "context"

// Store is the durable, append-ordered log of pending operations.
//
// Implementations MUST be safe for concurrent use: Append may run while a
// drain is removing or updating other records.
type Store interface {
	// Open initializes the store, creating the backing structure on first run.
	// Calling Open on an already open store is a no-op.
	//
	// Returns:
	//   - error: An error matching ErrStoreUnavailable if storage is denied
	Open(ctx context.Context) error

	// Append durably and atomically writes a new record.
	//
	// The ID field of op is ignored; the store assigns the next id.
	//
	// Returns:
	//   - uint64: The assigned id
	//   - error: nil on success
	Append(ctx context.Context, op QueuedOperation) (uint64, error)

	// ListAll returns every stored record in ascending id order.
	// The result reflects durable state exactly.
	ListAll(ctx context.Context) ([]QueuedOperation, error)

	// Remove durably deletes the record with the given id.
	// Removing an unknown id is a no-op and returns nil.
	Remove(ctx context.Context, id uint64) error

	// IncrementRetry increments the retry count of a record.
	//
	// Returns:
	//   - int: The new retry count
	//   - error: ErrOperationNotFound if the id is unknown
	IncrementRetry(ctx context.Context, id uint64) (int, error)

	// Close releases the store's resources.
	Close() error
}

// Transport performs an operation against the real backend.
//
// A failure carrying a server response SHOULD be returned as a
// *TransportError with Status set. Any other error is treated as a network
// failure with no response.
type Transport interface {
	Perform(ctx context.Context, req Request) (*Response, error)
}

// TransportFunc adapts a plain function to the Transport interface.
type TransportFunc func(ctx context.Context, req Request) (*Response, error)

// Perform calls f(ctx, req).
func (f TransportFunc) Perform(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// HeaderResolver re-resolves time-sensitive headers before a replay attempt.
//
// It receives the header snapshot captured at enqueue time and returns the
// headers to send. Auth tokens that rotated while offline are refreshed here.
// A resolver error is classified as a transient failure.
type HeaderResolver func(ctx context.Context, op QueuedOperation) (map[string]string, error)

// ConnectivityWatcher observes network reachability.
//
// Implementations include connectivity.Local, connectivity.Probe and
// connectivity.NATS.
type ConnectivityWatcher interface {
	// Watch returns a channel of reachability transitions.
	// The channel is closed when the watcher is closed or ctx is cancelled.
	Watch(ctx context.Context) <-chan ConnectivityUpdate
}
