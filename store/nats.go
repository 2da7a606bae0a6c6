package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/salahkhalfi/offlineq/types"
)

const (
	natsBackend   = "nats"
	natsOpPrefix  = "op."
	natsNextIDKey = "meta.next_id"
)

// NATSConfig configures the NATS JetStream key-value store.
type NATSConfig struct {
	// Bucket is the key-value bucket holding the queue.
	// Default: "offlineq-queue"
	Bucket string

	// Replicas is the number of bucket replicas.
	// Default: 1 (use 3 for production clusters)
	Replicas int

	// Storage selects file or memory backed JetStream storage.
	// Default: jetstream.FileStorage
	Storage jetstream.StorageType

	// OpTimeout bounds each key-value round trip.
	// Default: 5 seconds
	OpTimeout time.Duration

	// MaxCASAttempts bounds optimistic retries when several clients race on
	// the id counter or on the same record.
	// Default: 16
	MaxCASAttempts int
}

// DefaultNATSConfig returns the default configuration.
//
// Returns:
//   - NATSConfig: Default configuration with reasonable defaults
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		Bucket:         "offlineq-queue",
		Replicas:       1,
		Storage:        jetstream.FileStorage,
		OpTimeout:      5 * time.Second,
		MaxCASAttempts: 16,
	}
}

// NATSOption configures a NATS store.
type NATSOption func(*NATSConfig)

// WithNATSBucket sets the key-value bucket name.
//
// Parameters:
//   - name: Bucket name
//
// Returns:
//   - NATSOption: Configuration option
func WithNATSBucket(name string) NATSOption {
	return func(c *NATSConfig) {
		c.Bucket = name
	}
}

// WithNATSReplicas sets the number of bucket replicas.
//
// Parameters:
//   - n: Number of replicas (1 for dev, 3 for production)
//
// Returns:
//   - NATSOption: Configuration option
func WithNATSReplicas(n int) NATSOption {
	return func(c *NATSConfig) {
		c.Replicas = n
	}
}

// WithNATSStorage selects file or memory storage for the bucket.
//
// Parameters:
//   - st: jetstream.FileStorage or jetstream.MemoryStorage
//
// Returns:
//   - NATSOption: Configuration option
func WithNATSStorage(st jetstream.StorageType) NATSOption {
	return func(c *NATSConfig) {
		c.Storage = st
	}
}

// WithNATSOpTimeout sets the per round-trip timeout.
//
// Parameters:
//   - d: Timeout duration
//
// Returns:
//   - NATSOption: Configuration option
func WithNATSOpTimeout(d time.Duration) NATSOption {
	return func(c *NATSConfig) {
		c.OpTimeout = d
	}
}

// NATS implements types.Store on a JetStream key-value bucket.
//
// Records are stored under "op.<zero-padded id>" so key order equals id
// order. Ids come from a counter key advanced with compare-and-set on its
// revision, which keeps them unique across clients sharing the bucket.
// Cross-client replay ordering is not coordinated.
type NATS struct {
	js     jetstream.JetStream
	config NATSConfig

	mu sync.RWMutex
	kv jetstream.KeyValue

	// appendMu keeps local appends off each other's CAS loops.
	appendMu sync.Mutex
}

// NewNATS creates a store on the given JetStream context. The bucket is
// created or updated by Open.
//
// Parameters:
//   - js: A JetStream context (created via jetstream.New(conn))
//   - opts: Optional configuration options
//
// Returns:
//   - *NATS: A new, unopened NATS store
//   - error: Error if js is nil
//
// Example:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	st, _ := store.NewNATS(js)
func NewNATS(js jetstream.JetStream, opts ...NATSOption) (*NATS, error) {
	if js == nil {
		return nil, errors.New("offlineq: JetStream context is nil")
	}

	config := DefaultNATSConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.MaxCASAttempts < 1 {
		config.MaxCASAttempts = 1
	}

	return &NATS{js: js, config: config}, nil
}

// Open creates or updates the bucket. It is idempotent.
//
// Returns:
//   - error: An error matching types.ErrStoreUnavailable if the bucket cannot
//     be created
func (s *NATS) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kv != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.OpTimeout)
	defer cancel()

	kv, err := s.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      s.config.Bucket,
		Description: "offlineq pending operations",
		History:     1,
		Storage:     s.config.Storage,
		Replicas:    s.config.Replicas,
	})
	if err != nil {
		return &types.StoreError{Backend: natsBackend, Operation: "open", Unavailable: true, Cause: err}
	}
	s.kv = kv

	return nil
}

// Append reserves an id and writes op under it.
func (s *NATS) Append(ctx context.Context, op types.QueuedOperation) (uint64, error) {
	kv, err := s.bucket()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.OpTimeout)
	defer cancel()

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	id, err := s.reserveID(ctx, kv)
	if err != nil {
		return 0, s.failed("append", err)
	}

	op.ID = id
	if _, err := kv.Create(ctx, natsOpKey(id), appendRecord(nil, op)); err != nil {
		return 0, s.failed("append", err)
	}

	return id, nil
}

// reserveID advances the shared counter by one and returns the reserved id.
func (s *NATS) reserveID(ctx context.Context, kv jetstream.KeyValue) (uint64, error) {
	for attempt := 0; attempt < s.config.MaxCASAttempts; attempt++ {
		entry, err := kv.Get(ctx, natsNextIDKey)
		switch {
		case errors.Is(err, jetstream.ErrKeyNotFound):
			if _, err := kv.Create(ctx, natsNextIDKey, encodeCounter(2)); err == nil {
				return 1, nil
			} else if !errors.Is(err, jetstream.ErrKeyExists) {
				return 0, err
			}
		case err != nil:
			return 0, err
		default:
			if len(entry.Value()) != 8 {
				return 0, fmt.Errorf("offlineq: malformed id counter (%d bytes)", len(entry.Value()))
			}
			id := binary.BigEndian.Uint64(entry.Value())
			if _, err := kv.Update(ctx, natsNextIDKey, encodeCounter(id+1), entry.Revision()); err == nil {
				return id, nil
			}
		}

		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}

	return 0, fmt.Errorf("offlineq: id counter contention after %d attempts", s.config.MaxCASAttempts)
}

// ListAll returns all pending operations in ascending id order.
func (s *NATS) ListAll(ctx context.Context) ([]types.QueuedOperation, error) {
	kv, err := s.bucket()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.OpTimeout)
	defer cancel()

	lister, err := kv.ListKeys(ctx)
	if err != nil {
		return nil, s.failed("list", err)
	}

	var keys []string
	for key := range lister.Keys() {
		if strings.HasPrefix(key, natsOpPrefix) {
			keys = append(keys, key)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, s.failed("list", err)
	}
	sort.Strings(keys)

	ops := make([]types.QueuedOperation, 0, len(keys))
	for _, key := range keys {
		entry, err := kv.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			// Removed between listing and reading.
			continue
		}
		if err != nil {
			return nil, s.failed("list", err)
		}

		op, err := UnmarshalRecord(entry.Value())
		if err != nil {
			return nil, s.failed("list", fmt.Errorf("key %s: %w", key, err))
		}
		ops = append(ops, op)
	}

	return ops, nil
}

// Remove deletes the operation with the given id. Unknown ids are ignored.
func (s *NATS) Remove(ctx context.Context, id uint64) error {
	kv, err := s.bucket()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.OpTimeout)
	defer cancel()

	if err := kv.Delete(ctx, natsOpKey(id)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return s.failed("remove", err)
	}

	return nil
}

// IncrementRetry increments the retry count of the operation with the given id.
func (s *NATS) IncrementRetry(ctx context.Context, id uint64) (int, error) {
	kv, err := s.bucket()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.OpTimeout)
	defer cancel()

	key := natsOpKey(id)
	for attempt := 0; attempt < s.config.MaxCASAttempts; attempt++ {
		entry, err := kv.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return 0, types.ErrOperationNotFound
		}
		if err != nil {
			return 0, s.failed("increment retry", err)
		}

		op, err := UnmarshalRecord(entry.Value())
		if err != nil {
			return 0, s.failed("increment retry", err)
		}
		op.RetryCount++

		if _, err := kv.Update(ctx, key, appendRecord(nil, op), entry.Revision()); err == nil {
			return op.RetryCount, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, s.failed("increment retry", err)
		}
	}

	return 0, s.failed("increment retry",
		fmt.Errorf("record contention after %d attempts", s.config.MaxCASAttempts))
}

// Close detaches from the bucket. The NATS connection is owned by the caller
// and stays open.
func (s *NATS) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kv = nil

	return nil
}

func (s *NATS) bucket() (jetstream.KeyValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.kv == nil {
		return nil, types.ErrStoreClosed
	}

	return s.kv, nil
}

func (s *NATS) failed(op string, err error) error {
	return &types.StoreError{Backend: natsBackend, Operation: op, Cause: err}
}

func natsOpKey(id uint64) string {
	return fmt.Sprintf("%s%020d", natsOpPrefix, id)
}

func encodeCounter(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

var _ types.Store = (*NATS)(nil)
