package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/salahkhalfi/offlineq/types"
)

const pebbleBackend = "pebble"

var (
	// Operation keys are "op/" followed by the big-endian id, so lexical key
	// order equals id order.
	pebbleOpPrefix   = []byte("op/")
	pebbleOpUpper    = []byte("op0")
	pebbleNextIDKey  = []byte("meta/next_id")
	pebbleOpKeyBytes = len(pebbleOpPrefix) + 8
)

// PebbleConfig configures the Pebble store.
type PebbleConfig struct {
	// NoSync skips fsync on writes. Faster, but an OS crash may lose the
	// most recent appends.
	// Default: false
	NoSync bool

	// Options are passed to pebble.Open. Nil uses Pebble defaults.
	Options *pebble.Options
}

// DefaultPebbleConfig returns the default configuration.
//
// Returns:
//   - PebbleConfig: Synchronous writes with Pebble default options
func DefaultPebbleConfig() PebbleConfig {
	return PebbleConfig{}
}

// PebbleOption configures a Pebble store.
type PebbleOption func(*PebbleConfig)

// WithPebbleNoSync disables fsync on writes.
//
// Parameters:
//   - noSync: true to skip fsync
//
// Returns:
//   - PebbleOption: Configuration option
func WithPebbleNoSync(noSync bool) PebbleOption {
	return func(c *PebbleConfig) {
		c.NoSync = noSync
	}
}

// WithPebbleOptions sets the options passed to pebble.Open.
//
// Parameters:
//   - opts: Pebble options
//
// Returns:
//   - PebbleOption: Configuration option
func WithPebbleOptions(opts *pebble.Options) PebbleOption {
	return func(c *PebbleConfig) {
		c.Options = opts
	}
}

// Pebble implements types.Store on an embedded Pebble database.
//
// Each record lives under its own key. Append writes the record and the
// next-id counter in one synced batch, so an id is never handed out twice even
// if the process dies right after appending.
type Pebble struct {
	dir    string
	config PebbleConfig

	mu     sync.RWMutex
	db     *pebble.DB
	nextID uint64
}

// NewPebble creates a Pebble store rooted at dir. The database is not opened
// until Open is called.
//
// Parameters:
//   - dir: Database directory (created if missing)
//   - opts: Optional configuration options
//
// Returns:
//   - *Pebble: A new, unopened Pebble store
func NewPebble(dir string, opts ...PebbleOption) *Pebble {
	config := DefaultPebbleConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Pebble{dir: dir, config: config}
}

// Open opens the database and restores the id counter. It is idempotent.
//
// Returns:
//   - error: An error matching types.ErrStoreUnavailable if the directory
//     cannot be used
func (s *Pebble) Open(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return s.unavailable("open", err)
	}

	opts := s.config.Options
	if opts == nil {
		opts = &pebble.Options{}
	}

	db, err := pebble.Open(s.dir, opts)
	if err != nil {
		return s.unavailable("open", err)
	}

	nextID, err := loadPebbleNextID(db)
	if err != nil {
		_ = db.Close()

		return s.unavailable("open", err)
	}

	s.db = db
	s.nextID = nextID

	return nil
}

// Append writes op under a fresh id.
func (s *Pebble) Append(_ context.Context, op types.QueuedOperation) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, types.ErrStoreClosed
	}

	id := s.nextID
	op.ID = id

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(pebbleOpKey(id), appendRecord(nil, op), nil); err != nil {
		return 0, s.failed("append", err)
	}
	if err := batch.Set(pebbleNextIDKey, binary.BigEndian.AppendUint64(nil, id+1), nil); err != nil {
		return 0, s.failed("append", err)
	}
	if err := batch.Commit(s.writeOptions()); err != nil {
		return 0, s.failed("append", err)
	}

	s.nextID = id + 1

	return id, nil
}

// ListAll returns all pending operations in ascending id order.
func (s *Pebble) ListAll(ctx context.Context) ([]types.QueuedOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, types.ErrStoreClosed
	}

	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: pebbleOpPrefix,
		UpperBound: pebbleOpUpper,
	})
	if err != nil {
		return nil, s.failed("list", err)
	}
	defer it.Close()

	var ops []types.QueuedOperation
	for ok := it.First(); ok; ok = it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		op, err := UnmarshalRecord(it.Value())
		if err != nil {
			return nil, s.failed("list", fmt.Errorf("key %x: %w", it.Key(), err))
		}
		ops = append(ops, op)
	}
	if err := it.Error(); err != nil {
		return nil, s.failed("list", err)
	}

	return ops, nil
}

// Remove deletes the operation with the given id. Unknown ids are ignored.
func (s *Pebble) Remove(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return types.ErrStoreClosed
	}

	if err := s.db.Delete(pebbleOpKey(id), s.writeOptions()); err != nil {
		return s.failed("remove", err)
	}

	return nil
}

// IncrementRetry increments the retry count of the operation with the given id.
func (s *Pebble) IncrementRetry(_ context.Context, id uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, types.ErrStoreClosed
	}

	key := pebbleOpKey(id)
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, types.ErrOperationNotFound
	}
	if err != nil {
		return 0, s.failed("increment retry", err)
	}

	op, err := UnmarshalRecord(val)
	_ = closer.Close()
	if err != nil {
		return 0, s.failed("increment retry", err)
	}

	op.RetryCount++
	if err := s.db.Set(key, appendRecord(nil, op), s.writeOptions()); err != nil {
		return 0, s.failed("increment retry", err)
	}

	return op.RetryCount, nil
}

// Close closes the database. It is safe to call multiple times.
func (s *Pebble) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	if err != nil {
		return s.failed("close", err)
	}

	return nil
}

func (s *Pebble) writeOptions() *pebble.WriteOptions {
	if s.config.NoSync {
		return pebble.NoSync
	}

	return pebble.Sync
}

func (s *Pebble) failed(op string, err error) error {
	return &types.StoreError{Backend: pebbleBackend, Operation: op, Cause: err}
}

func (s *Pebble) unavailable(op string, err error) error {
	return &types.StoreError{Backend: pebbleBackend, Operation: op, Unavailable: true, Cause: err}
}

func pebbleOpKey(id uint64) []byte {
	key := make([]byte, 0, pebbleOpKeyBytes)
	key = append(key, pebbleOpPrefix...)

	return binary.BigEndian.AppendUint64(key, id)
}

// loadPebbleNextID reads the persisted counter. Databases without a counter
// fall back to one past the highest stored id.
func loadPebbleNextID(db *pebble.DB) (uint64, error) {
	val, closer, err := db.Get(pebbleNextIDKey)
	if err == nil {
		defer closer.Close()
		if len(val) != 8 {
			return 0, fmt.Errorf("offlineq: malformed id counter (%d bytes)", len(val))
		}

		return binary.BigEndian.Uint64(val), nil
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return 0, err
	}

	it, err := db.NewIter(&pebble.IterOptions{LowerBound: pebbleOpPrefix, UpperBound: pebbleOpUpper})
	if err != nil {
		return 0, err
	}
	defer it.Close()

	if it.Last() && len(it.Key()) == pebbleOpKeyBytes {
		return binary.BigEndian.Uint64(it.Key()[len(pebbleOpPrefix):]) + 1, nil
	}

	return 1, nil
}

var _ types.Store = (*Pebble)(nil)
