package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/salahkhalfi/offlineq/types"
)

const sqliteBackend = "sqlite"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Table is the name of the queue table.
	// Default: "offline_queue"
	Table string

	// BusyTimeout is how long SQLite waits on a locked database before
	// failing a statement.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default configuration.
//
// Returns:
//   - SQLiteConfig: Default configuration
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Table:       "offline_queue",
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteOption configures a SQLite store.
type SQLiteOption func(*SQLiteConfig)

// WithSQLiteTable sets the queue table name.
//
// Names must match [A-Za-z_][A-Za-z0-9_]*; Open rejects anything else.
//
// Parameters:
//   - name: Table name
//
// Returns:
//   - SQLiteOption: Configuration option
func WithSQLiteTable(name string) SQLiteOption {
	return func(c *SQLiteConfig) {
		c.Table = name
	}
}

// WithSQLiteBusyTimeout sets the lock wait timeout.
//
// Parameters:
//   - d: Busy timeout
//
// Returns:
//   - SQLiteOption: Configuration option
func WithSQLiteBusyTimeout(d time.Duration) SQLiteOption {
	return func(c *SQLiteConfig) {
		c.BusyTimeout = d
	}
}

// SQLite implements types.Store on an embedded SQLite database.
//
// Ids come from an AUTOINCREMENT primary key, which SQLite guarantees are
// never reused even after the highest row is deleted. Headers are stored as
// a MessagePack blob.
type SQLite struct {
	path   string
	config SQLiteConfig

	mu      sync.RWMutex
	db      *sql.DB
	queries sqliteQueries
}

type sqliteQueries struct {
	insert    string
	list      string
	remove    string
	increment string
}

// NewSQLite creates a SQLite store backed by the database file at path.
//
// Parameters:
//   - path: Database file path, or ":memory:" for a private in-memory database
//   - opts: Optional configuration options
//
// Returns:
//   - *SQLite: A new, unopened SQLite store
func NewSQLite(path string, opts ...SQLiteOption) *SQLite {
	config := DefaultSQLiteConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &SQLite{path: path, config: config}
}

// Open opens the database and creates the queue table. It is idempotent.
//
// Returns:
//   - error: An error matching types.ErrStoreUnavailable if the database
//     cannot be opened or initialized
func (s *SQLite) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if !tableNamePattern.MatchString(s.config.Table) {
		return s.unavailable("open", fmt.Errorf("invalid table name %q", s.config.Table))
	}

	if s.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
			return s.unavailable("open", err)
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return s.unavailable("open", err)
	}

	// SQLite has a single writer; one connection also keeps ":memory:"
	// databases alive between statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSQLite(ctx, db, s.config); err != nil {
		_ = db.Close()

		return s.unavailable("open", err)
	}

	s.db = db
	s.queries = sqliteQueries{
		insert: "INSERT INTO " + s.config.Table +
			" (target, method, payload, headers, enqueued_at, retry_count) VALUES (?, ?, ?, ?, ?, ?)",
		list: "SELECT id, target, method, payload, headers, enqueued_at, retry_count FROM " +
			s.config.Table + " ORDER BY id ASC",
		remove:    "DELETE FROM " + s.config.Table + " WHERE id = ?",
		increment: "UPDATE " + s.config.Table + " SET retry_count = retry_count + 1 WHERE id = ? RETURNING retry_count",
	}

	return nil
}

func initSQLite(ctx context.Context, db *sql.DB, config SQLiteConfig) error {
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d;", config.BusyTimeout.Milliseconds()),
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	ddl := "CREATE TABLE IF NOT EXISTS " + config.Table + ` (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		target      TEXT    NOT NULL,
		method      TEXT    NOT NULL,
		payload     BLOB,
		headers     BLOB,
		enqueued_at INTEGER NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create queue table: %w", err)
	}

	return nil
}

// Append inserts op as a new row.
func (s *SQLite) Append(ctx context.Context, op types.QueuedOperation) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return 0, types.ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, s.queries.insert,
		op.Target,
		string(op.Method),
		nonNilBytes(op.Payload),
		MarshalHeaders(op.Headers),
		enqueuedNanos(op.EnqueuedAt),
		op.RetryCount,
	)
	if err != nil {
		return 0, s.failed("append", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.failed("append", err)
	}

	return uint64(id), nil //nolint:gosec // AUTOINCREMENT ids are positive
}

// ListAll returns all pending operations in ascending id order.
func (s *SQLite) ListAll(ctx context.Context) ([]types.QueuedOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, types.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, s.queries.list)
	if err != nil {
		return nil, s.failed("list", err)
	}
	defer rows.Close()

	var ops []types.QueuedOperation
	for rows.Next() {
		var (
			op      types.QueuedOperation
			id      int64
			method  string
			headers []byte
			nanos   int64
		)
		if err := rows.Scan(&id, &op.Target, &method, &op.Payload, &headers, &nanos, &op.RetryCount); err != nil {
			return nil, s.failed("list", err)
		}

		op.ID = uint64(id) //nolint:gosec // AUTOINCREMENT ids are positive
		op.Method = types.Method(method)
		if nanos != 0 {
			op.EnqueuedAt = time.Unix(0, nanos).UTC()
		}
		if op.Headers, err = UnmarshalHeaders(headers); err != nil {
			return nil, s.failed("list", fmt.Errorf("row %d headers: %w", id, err))
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, s.failed("list", err)
	}

	return ops, nil
}

// Remove deletes the operation with the given id. Unknown ids are ignored.
func (s *SQLite) Remove(ctx context.Context, id uint64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return types.ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, s.queries.remove, int64(id)); err != nil { //nolint:gosec
		return s.failed("remove", err)
	}

	return nil
}

// IncrementRetry increments the retry count of the operation with the given id.
func (s *SQLite) IncrementRetry(ctx context.Context, id uint64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return 0, types.ErrStoreClosed
	}

	var count int
	err := s.db.QueryRowContext(ctx, s.queries.increment, int64(id)).Scan(&count) //nolint:gosec
	if errors.Is(err, sql.ErrNoRows) {
		return 0, types.ErrOperationNotFound
	}
	if err != nil {
		return 0, s.failed("increment retry", err)
	}

	return count, nil
}

// Close closes the database. It is safe to call multiple times.
func (s *SQLite) Close() error {
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

func (s *SQLite) failed(op string, err error) error {
	return &types.StoreError{Backend: sqliteBackend, Operation: op, Cause: err}
}

func (s *SQLite) unavailable(op string, err error) error {
	return &types.StoreError{Backend: sqliteBackend, Operation: op, Unavailable: true, Cause: err}
}

func nonNilBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}

	return b
}

var _ types.Store = (*SQLite)(nil)
