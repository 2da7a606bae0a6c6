// Package store provides Persistent Store implementations for the offline queue.
//
// Every implementation satisfies types.Store: records are appended atomically,
// listed in ascending id order, removed idempotently, and mutated only through
// IncrementRetry. Ids are assigned by the store, strictly increasing, and never
// reused, even across restarts for the durable backends.
//
// # Backends
//
//   - Memory: in-process slice. Records are LOST on process exit; use it for
//     tests and for clients that accept losing queued work.
//   - Pebble: embedded LSM store (github.com/cockroachdb/pebble). Appends are a
//     single batch that writes the record and the persisted id counter.
//   - SQLite: embedded relational store (modernc.org/sqlite, pure Go) using an
//     AUTOINCREMENT primary key.
//   - NATS: JetStream key-value bucket, for clients that already hold a NATS
//     connection and want the queue to survive device replacement.
//
// Pebble and NATS persist records with the MessagePack codec in codec.go.
//
// # Unavailable Storage
//
// Open returns an error matching types.ErrStoreUnavailable when the backing
// storage cannot be used (read-only filesystem, locked database, bucket
// creation refused). The queue treats that as a signal to run in pass-through
// mode.
package store
