package store

import (
	"context"
	"maps"
	"sync"

	"github.com/salahkhalfi/offlineq/types"
)

// Memory implements types.Store with an in-process slice.
//
// # Durability Warning
//
// Queued operations are LOST on process restart. Use Memory for:
//   - Development and testing
//   - Clients where losing queued work on exit is acceptable
//
// For durability use Pebble, SQLite or NATS.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	ops      []types.QueuedOperation
	nextID   uint64
	capacity int
	closed   bool
	openErr  error
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMemoryCapacity bounds the number of pending operations.
//
// Append returns an error matching types.ErrStoreFull once the bound is
// reached. Zero means unbounded.
//
// Parameters:
//   - n: Maximum number of pending operations (default: 0, unbounded)
//
// Returns:
//   - MemoryOption: Configuration option
func WithMemoryCapacity(n int) MemoryOption {
	return func(m *Memory) {
		m.capacity = n
	}
}

// WithMemoryOpenError makes Open fail with the given cause.
//
// The failure is reported as an unavailable store, which lets callers exercise
// pass-through mode without a broken filesystem.
//
// Parameters:
//   - cause: Error returned (wrapped) by Open
//
// Returns:
//   - MemoryOption: Configuration option
func WithMemoryOpenError(cause error) MemoryOption {
	return func(m *Memory) {
		m.openErr = cause
	}
}

// NewMemory creates an empty in-memory store.
//
// Parameters:
//   - opts: Optional configuration options
//
// Returns:
//   - *Memory: A new memory store
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{nextID: 1}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Open prepares the store for use. It is idempotent.
func (m *Memory) Open(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openErr != nil {
		return &types.StoreError{Backend: "memory", Operation: "open", Unavailable: true, Cause: m.openErr}
	}
	m.closed = false

	return nil
}

// Append stores a copy of op under a fresh id.
//
// Parameters:
//   - ctx: Context for cancellation
//   - op: The operation to store; its ID field is ignored
//
// Returns:
//   - uint64: The assigned id
//   - error: types.ErrStoreClosed after Close, types.ErrStoreFull at capacity
func (m *Memory) Append(ctx context.Context, op types.QueuedOperation) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, types.ErrStoreClosed
	}
	if m.capacity > 0 && len(m.ops) >= m.capacity {
		return 0, &types.StoreError{Backend: "memory", Operation: "append", Cause: types.ErrStoreFull}
	}

	op = cloneOperation(op)
	op.ID = m.nextID
	m.nextID++
	m.ops = append(m.ops, op)

	return op.ID, nil
}

// ListAll returns copies of all pending operations in ascending id order.
func (m *Memory) ListAll(ctx context.Context) ([]types.QueuedOperation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, types.ErrStoreClosed
	}

	out := make([]types.QueuedOperation, len(m.ops))
	for i, op := range m.ops {
		out[i] = cloneOperation(op)
	}

	return out, nil
}

// Remove deletes the operation with the given id. Unknown ids are ignored.
func (m *Memory) Remove(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return types.ErrStoreClosed
	}

	if i := m.indexOf(id); i >= 0 {
		m.ops = append(m.ops[:i], m.ops[i+1:]...)
	}

	return nil
}

// IncrementRetry increments the retry count of the operation with the given id.
//
// Returns:
//   - int: The new retry count
//   - error: types.ErrOperationNotFound if id is not stored
func (m *Memory) IncrementRetry(_ context.Context, id uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, types.ErrStoreClosed
	}

	i := m.indexOf(id)
	if i < 0 {
		return 0, types.ErrOperationNotFound
	}
	m.ops[i].RetryCount++

	return m.ops[i].RetryCount, nil
}

// Len returns the number of pending operations.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.ops)
}

// Close marks the store as closed. Pending operations are kept so a later
// Open sees them again, mirroring the durable backends.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

// indexOf finds id by binary search; ops is sorted because ids only grow.
func (m *Memory) indexOf(id uint64) int {
	lo, hi := 0, len(m.ops)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if m.ops[mid].ID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(m.ops) && m.ops[lo].ID == id {
		return lo
	}

	return -1
}

func cloneOperation(op types.QueuedOperation) types.QueuedOperation {
	if op.Payload != nil {
		op.Payload = append([]byte(nil), op.Payload...)
	}
	op.Headers = maps.Clone(op.Headers)

	return op
}

var _ types.Store = (*Memory)(nil)
