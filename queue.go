package offlineq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/salahkhalfi/offlineq/replay"
	"github.com/salahkhalfi/offlineq/types"
)

// Queue captures operations that fail while offline and replays them once
// connectivity returns.
//
// A Queue is safe for concurrent use.
//
// Lifecycle:
//   - New opens the store and starts the connectivity monitor, if any
//   - Do, Enqueue and DrainAndReplay may be called from any goroutine
//   - Close stops the monitor, cancels running drains and closes the store
type Queue struct {
	store     types.Store
	transport types.Transport
	engine    *replay.Engine
	monitor   *Monitor
	config    *QueueConfig

	available atomic.Bool
	closed    atomic.Bool
	depth     atomic.Int64

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// New creates a queue over store and transport.
//
// The store is opened here. If it cannot be opened the queue is still
// returned, in pass-through mode: Available reports false and transient
// failures are handed back to callers unchanged.
//
// If a ConnectivityWatcher is configured, the monitor is started
// automatically and stopped by Close.
//
// Parameters:
//   - store: The persistent store
//   - transport: The transport used for live calls and replay
//   - opts: Optional configuration options
//
// Returns:
//   - *Queue: A new queue
//   - error: types.ErrNilStore or types.ErrNilTransport
func New(store types.Store, transport types.Transport, opts ...Option) (*Queue, error) {
	if store == nil {
		return nil, types.ErrNilStore
	}
	if transport == nil {
		return nil, types.ErrNilTransport
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	config.normalize()

	engine, err := replay.NewEngine(store, transport, config.engineOptions()...)
	if err != nil {
		return nil, fmt.Errorf("offlineq: failed to create replay engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		store:     store,
		transport: transport,
		engine:    engine,
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
	}

	q.open()

	if config.Watcher != nil {
		q.monitor = NewMonitor(config.Watcher, q.DrainAndReplay, MonitorConfig{
			SettleDelay: config.SettleDelay,
			Notifier:    config.Notifier,
			Metrics:     config.Metrics,
			Logger:      config.Logger,
		})
		q.monitor.Start(ctx)
	}

	return q, nil
}

func (q *Queue) open() {
	ctx, cancel := context.WithTimeout(q.ctx, q.config.OpenTimeout)
	defer cancel()

	if err := q.store.Open(ctx); err != nil {
		q.config.Logger.Warn("store unavailable, running in pass-through mode", "error", err.Error())
		q.config.Metrics.SetQueueDepth(0)

		return
	}
	q.available.Store(true)

	q.refreshDepth(ctx)
}

// Do performs req, queueing it if the failure is transient.
//
// Results:
//   - Success: the real *types.Response, nil error
//   - Terminal failure: nil result and the transport error, which carries
//     the status as a *types.TransportError
//   - Transient failure: a *types.SyntheticResponse once queued, or the
//     transport error if the queue is in pass-through mode or the append
//     fails
//
// If ctx is done when the call fails, the error is returned without queueing:
// the caller gave up on the operation.
//
// Parameters:
//   - ctx: Context for cancellation and deadline
//   - req: The operation to perform
//
// Returns:
//   - types.Result: *types.Response or *types.SyntheticResponse
//   - error: The failure surfaced to the caller, if any
func (q *Queue) Do(ctx context.Context, req types.Request) (types.Result, error) {
	if q.closed.Load() {
		return nil, types.ErrQueueClosed
	}

	callCtx, cancel := context.WithTimeout(ctx, q.config.ExecuteTimeout)
	resp, err := q.transport.Perform(callCtx, req)
	cancel()

	switch q.config.Classifier(resp, err) {
	case types.OutcomeSuccess:
		if resp == nil {
			resp = &types.Response{Status: 200}
		}

		return resp, nil

	case types.OutcomeTerminal:
		if err == nil {
			err = &types.TransportError{Status: types.StatusOf(resp, nil), Target: req.Target}
		}

		return nil, err
	}

	if err == nil {
		err = &types.TransportError{Status: types.StatusOf(resp, nil), Target: req.Target}
	}
	if ctx.Err() != nil {
		return nil, err
	}

	synthetic, qerr := q.Enqueue(ctx, req, err)
	if qerr != nil {
		return nil, qerr
	}

	return synthetic, nil
}

// Enqueue persists req after a transient failure and returns the synthetic
// success.
//
// In pass-through mode, or if the append fails, cause is returned unchanged
// so the caller sees the original failure.
//
// Parameters:
//   - ctx: Context for the store append
//   - req: The request that failed
//   - cause: The transient failure that led to queueing
//
// Returns:
//   - *types.SyntheticResponse: The offline result
//   - error: cause, or types.ErrQueueClosed
func (q *Queue) Enqueue(ctx context.Context, req types.Request, cause error) (*types.SyntheticResponse, error) {
	if q.closed.Load() {
		return nil, types.ErrQueueClosed
	}
	if cause == nil {
		cause = types.ErrStoreUnavailable
	}

	if !q.available.Load() {
		q.config.Metrics.IncPassthrough()
		q.config.Logger.Warn("store unavailable, operation not queued",
			"target", req.Target,
			"error", cause.Error(),
		)

		return nil, cause
	}

	op := types.NewQueuedOperation(req, q.config.Now())
	id, err := q.store.Append(ctx, op)
	if err != nil {
		q.config.Metrics.IncPassthrough()
		q.config.Logger.Error("failed to queue operation",
			"target", req.Target,
			"error", err.Error(),
		)

		return nil, cause
	}
	op.ID = id

	q.config.Metrics.IncEnqueued()
	q.config.Metrics.SetQueueDepth(int(q.depth.Add(1)))
	q.config.Logger.Info("operation queued for replay",
		"id", id,
		"target", req.Target,
		"method", req.Method.String(),
	)
	q.config.Notifier.Notify(types.Event{
		Kind:     types.EventQueued,
		Target:   req.Target,
		QueuedID: id,
		Reason:   cause.Error(),
	})

	return types.NewSyntheticResponse(op, q.config.Placeholder()), nil
}

// DrainAndReplay replays every queued operation.
//
// Overlapping calls coalesce: a call made while a drain is running returns
// types.ErrReplayInFlight immediately and the running drain makes exactly one
// more pass. Close cancels a running drain.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - types.DrainSummary: Counts accumulated across passes
//   - error: types.ErrReplayInFlight, types.ErrStoreUnavailable,
//     types.ErrQueueClosed, a store error, or a context error
func (q *Queue) DrainAndReplay(ctx context.Context) (types.DrainSummary, error) {
	if q.closed.Load() {
		return types.DrainSummary{}, types.ErrQueueClosed
	}
	if !q.available.Load() {
		return types.DrainSummary{}, types.ErrStoreUnavailable
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(q.ctx, cancel)
	defer stop()

	summary, err := q.engine.Drain(ctx)
	if errors.Is(err, types.ErrReplayInFlight) {
		return summary, err
	}

	q.refreshDepth(context.WithoutCancel(ctx))

	return summary, err
}

// Pending returns the queued operations in replay order.
//
// Parameters:
//   - ctx: Context for the store read
//
// Returns:
//   - []types.QueuedOperation: Queued operations, oldest first
//   - error: types.ErrStoreUnavailable, types.ErrQueueClosed or a store error
func (q *Queue) Pending(ctx context.Context) ([]types.QueuedOperation, error) {
	if q.closed.Load() {
		return nil, types.ErrQueueClosed
	}
	if !q.available.Load() {
		return nil, types.ErrStoreUnavailable
	}

	return q.store.ListAll(ctx)
}

// Len returns the number of queued operations.
func (q *Queue) Len(ctx context.Context) (int, error) {
	ops, err := q.Pending(ctx)
	if err != nil {
		return 0, err
	}

	return len(ops), nil
}

// Available reports whether the store is usable. False means pass-through
// mode.
func (q *Queue) Available() bool {
	return q.available.Load()
}

// Draining reports whether a drain is in progress.
func (q *Queue) Draining() bool {
	return q.engine.Running()
}

// Reachable reports the last connectivity state seen by the monitor. Without
// a watcher it always returns true.
func (q *Queue) Reachable() bool {
	if q.monitor == nil {
		return true
	}

	return q.monitor.Reachable()
}

// Close stops the monitor, cancels running drains and closes the store.
//
// Close is idempotent; later calls return the first result.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		q.cancel()

		if q.monitor != nil {
			q.monitor.Stop()
		}

		if q.available.Load() {
			if err := q.store.Close(); err != nil {
				q.closeErr = fmt.Errorf("offlineq: failed to close store: %w", err)
			}
		}
	})

	return q.closeErr
}

func (q *Queue) refreshDepth(ctx context.Context) {
	ops, err := q.store.ListAll(ctx)
	if err != nil {
		q.config.Logger.Debug("failed to read queue depth", "error", err.Error())

		return
	}

	q.depth.Store(int64(len(ops)))
	q.config.Metrics.SetQueueDepth(len(ops))
}
