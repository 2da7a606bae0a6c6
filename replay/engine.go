package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/salahkhalfi/offlineq/internal/logging"
	"github.com/salahkhalfi/offlineq/internal/metrics"
	"github.com/salahkhalfi/offlineq/internal/notify"
	"github.com/salahkhalfi/offlineq/types"
)

// EngineConfig configures the replay engine.
type EngineConfig struct {
	// ExecuteTimeout bounds each replay attempt. An attempt that runs out of
	// time is a transient failure.
	// Default: 30 seconds
	ExecuteTimeout time.Duration

	// MaxRetries drops an operation once its retry count would reach this
	// value. Zero retries forever.
	// Default: 0
	MaxRetries int

	// Classifier decides the outcome of each attempt.
	// Default: types.Classify
	Classifier types.Classifier

	// HeaderResolver re-resolves headers before each attempt (optional).
	HeaderResolver types.HeaderResolver

	// Notifier receives replay-summary and replay-item-dropped events.
	// If nil, events are discarded.
	Notifier types.Notifier

	// Metrics is the metrics collector for replay statistics.
	// If nil, no metrics are recorded.
	Metrics types.MetricsCollector

	// Logger is the structured logger for replay events.
	// If nil, no logs are emitted.
	Logger types.Logger

	// OnSuccess is called after an operation replayed successfully (optional).
	OnSuccess func(op types.QueuedOperation, resp *types.Response)

	// OnRetain is called after a transient failure left an operation queued
	// (optional). retryCount is the incremented count.
	OnRetain func(op types.QueuedOperation, err error, retryCount int)

	// OnDrop is called after an operation was discarded (optional).
	OnDrop func(op types.QueuedOperation, err error)
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ExecuteTimeout: 30 * time.Second,
		Classifier:     types.Classify,
	}
}

// EngineOption configures an Engine.
type EngineOption func(*EngineConfig)

// WithExecuteTimeout sets the timeout of each replay attempt.
func WithExecuteTimeout(d time.Duration) EngineOption {
	return func(c *EngineConfig) {
		c.ExecuteTimeout = d
	}
}

// WithMaxRetries sets the retry limit after which an operation is dropped.
//
// Parameters:
//   - n: Maximum attempts that may end transient; 0 retries forever
//
// Returns:
//   - EngineOption: Configuration option
func WithMaxRetries(n int) EngineOption {
	return func(c *EngineConfig) {
		c.MaxRetries = n
	}
}

// WithClassifier replaces the default outcome classification.
//
// Use it to treat selected 5xx responses as fatal application state, for
// example.
//
// Parameters:
//   - fn: The classifier
//
// Returns:
//   - EngineOption: Configuration option
func WithClassifier(fn types.Classifier) EngineOption {
	return func(c *EngineConfig) {
		c.Classifier = fn
	}
}

// WithHeaderResolver sets the replay-time header resolver.
func WithHeaderResolver(fn types.HeaderResolver) EngineOption {
	return func(c *EngineConfig) {
		c.HeaderResolver = fn
	}
}

// WithNotifier sets the event sink.
func WithNotifier(n types.Notifier) EngineOption {
	return func(c *EngineConfig) {
		c.Notifier = n
	}
}

// WithEngineMetrics sets the metrics collector for the engine.
func WithEngineMetrics(m types.MetricsCollector) EngineOption {
	return func(c *EngineConfig) {
		c.Metrics = m
	}
}

// WithEngineLogger sets the logger for the engine.
func WithEngineLogger(l types.Logger) EngineOption {
	return func(c *EngineConfig) {
		c.Logger = l
	}
}

// WithOnSuccess sets the success callback.
func WithOnSuccess(fn func(types.QueuedOperation, *types.Response)) EngineOption {
	return func(c *EngineConfig) {
		c.OnSuccess = fn
	}
}

// WithOnRetain sets the retain callback.
func WithOnRetain(fn func(types.QueuedOperation, error, int)) EngineOption {
	return func(c *EngineConfig) {
		c.OnRetain = fn
	}
}

// WithOnDrop sets the drop callback.
func WithOnDrop(fn func(types.QueuedOperation, error)) EngineOption {
	return func(c *EngineConfig) {
		c.OnDrop = fn
	}
}

// Engine replays queued operations against a transport.
//
// The running and rerun flags are the whole drain state machine:
// Idle (running=false) → Draining (running=true) → Idle, or back into
// Draining once more when rerun was set during the pass.
type Engine struct {
	store     types.Store
	transport types.Transport
	config    EngineConfig

	mu      sync.Mutex
	running bool
	rerun   bool
}

// NewEngine creates a replay engine.
//
// Parameters:
//   - store: The store to drain
//   - transport: The transport used to replay operations
//   - opts: Optional configuration options
//
// Returns:
//   - *Engine: A new engine
//   - error: types.ErrNilStore or types.ErrNilTransport
func NewEngine(store types.Store, transport types.Transport, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, types.ErrNilStore
	}
	if transport == nil {
		return nil, types.ErrNilTransport
	}

	config := DefaultEngineConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Ensure collaborators are never nil
	if config.Classifier == nil {
		config.Classifier = types.Classify
	}
	if config.Notifier == nil {
		config.Notifier = notify.NewNopNotifier()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewNopMetrics()
	}
	if config.Logger == nil {
		config.Logger = logging.NewNopLogger()
	}

	return &Engine{
		store:     store,
		transport: transport,
		config:    config,
	}, nil
}

// Drain replays every queued operation.
//
// If another drain is running, Drain schedules one extra pass and returns
// types.ErrReplayInFlight without waiting. Otherwise it runs a pass, then one
// more pass if any rerun was requested meanwhile, and returns the summary
// accumulated over all passes. The extra pass runs even when the first one
// failed; errors from every pass are joined.
//
// Cancelling ctx stops the drain before the next record. Records not yet
// attempted are left untouched and ctx.Err() is returned.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - types.DrainSummary: Counts accumulated across passes
//   - error: types.ErrReplayInFlight, a store error, or ctx.Err()
func (e *Engine) Drain(ctx context.Context) (types.DrainSummary, error) {
	e.mu.Lock()
	if e.running {
		e.rerun = true
		e.mu.Unlock()

		e.config.Metrics.IncDrainCoalesced()
		e.config.Logger.Debug("drain already running, rerun scheduled")

		return types.DrainSummary{}, types.ErrReplayInFlight
	}
	e.running = true
	e.mu.Unlock()

	var (
		total types.DrainSummary
		errs  []error
	)
	for {
		summary, err := e.pass(ctx)
		total.Add(summary)
		if err != nil {
			errs = append(errs, err)
		}

		// A failed pass still honors a requested rerun; only cancellation
		// abandons it.
		e.mu.Lock()
		again := e.rerun && ctx.Err() == nil
		e.rerun = false
		if !again {
			e.running = false
		}
		e.mu.Unlock()

		if !again {
			return total, errors.Join(errs...)
		}

		e.config.Logger.Debug("running requested drain pass", "passes", total.Passes)
	}
}

// Running reports whether a drain is in progress.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

// pass replays one snapshot of the store.
func (e *Engine) pass(ctx context.Context) (types.DrainSummary, error) {
	summary := types.DrainSummary{Passes: 1}

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	ops, err := e.store.ListAll(ctx)
	if err != nil {
		e.config.Logger.Error("failed to list queued operations", "error", err.Error())

		return summary, fmt.Errorf("offlineq: failed to list queued operations: %w", err)
	}

	e.config.Metrics.IncDrainPass()
	if len(ops) > 0 {
		e.config.Logger.Info("replaying queued operations", "count", len(ops))
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			e.finishPass(summary)

			return summary, err
		}

		outcome, err := e.replayOne(ctx, op)
		if outcome == outcomeInterrupted {
			e.finishPass(summary)

			return summary, err
		}

		switch outcome {
		case types.OutcomeSuccess:
			summary.Succeeded++
		case types.OutcomeTerminal:
			summary.Dropped++
		default:
			summary.Retained++
		}
	}

	e.finishPass(summary)

	return summary, nil
}

func (e *Engine) finishPass(summary types.DrainSummary) {
	if summary.Attempted() == 0 {
		return
	}

	e.config.Logger.Info("drain pass complete",
		"succeeded", summary.Succeeded,
		"dropped", summary.Dropped,
		"retained", summary.Retained,
	)
	e.config.Notifier.Notify(types.Event{
		Kind:    types.EventReplaySummary,
		Summary: summary,
		Reason:  summary.Message(),
	})
}

// outcomeInterrupted marks an attempt cut short by the drain context. The
// record is left exactly as it was.
const outcomeInterrupted types.Outcome = -1

// replayOne attempts a single operation and applies the outcome to the store.
// Dropped operations report OutcomeTerminal whatever the cause.
func (e *Engine) replayOne(ctx context.Context, op types.QueuedOperation) (types.Outcome, error) {
	resp, err := e.perform(ctx, op)
	if cerr := ctx.Err(); cerr != nil && err != nil {
		return outcomeInterrupted, cerr
	}

	outcome := e.config.Classifier(resp, err)
	if outcome != types.OutcomeSuccess && err == nil {
		err = &types.TransportError{Status: types.StatusOf(resp, nil), Target: op.Target}
	}

	// A finished attempt is recorded even if the drain is being cancelled.
	ctx = context.WithoutCancel(ctx)

	switch outcome {
	case types.OutcomeSuccess:
		e.remove(ctx, op)
		e.config.Metrics.IncReplaySuccess()
		e.config.Logger.Debug("replayed queued operation", logging.OpFields(op)...)
		if e.config.OnSuccess != nil {
			e.config.OnSuccess(op, resp)
		}

		return types.OutcomeSuccess, nil

	case types.OutcomeTerminal:
		e.drop(ctx, op, types.StatusOf(resp, err), err)

		return types.OutcomeTerminal, nil

	default:
		if e.config.MaxRetries > 0 && op.RetryCount+1 >= e.config.MaxRetries {
			e.drop(ctx, op, types.StatusOf(resp, err), fmt.Errorf("%w: %w", types.ErrRetriesExhausted, err))

			return types.OutcomeTerminal, nil
		}
		e.retain(ctx, op, err)

		return types.OutcomeTransient, nil
	}
}

// perform resolves headers and calls the transport under the item timeout.
func (e *Engine) perform(ctx context.Context, op types.QueuedOperation) (*types.Response, error) {
	req := op.Request()

	if e.config.HeaderResolver != nil {
		headers, err := e.config.HeaderResolver(ctx, op)
		if err != nil {
			return nil, &types.TransportError{Target: op.Target, Cause: fmt.Errorf("failed to resolve headers: %w", err)}
		}
		req.Headers = headers
	}

	itemCtx := ctx
	if e.config.ExecuteTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, e.config.ExecuteTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.transport.Perform(itemCtx, req)
	e.config.Metrics.ObserveReplayDuration(time.Since(start).Seconds())

	if err == nil && resp == nil {
		resp = &types.Response{Status: 200}
	}

	return resp, err
}

func (e *Engine) remove(ctx context.Context, op types.QueuedOperation) {
	if err := e.store.Remove(ctx, op.ID); err != nil {
		// The operation will replay again on the next drain.
		e.config.Logger.Error("failed to remove queued operation",
			logging.OpFields(op, "error", err.Error())...)
	}
}

func (e *Engine) drop(ctx context.Context, op types.QueuedOperation, status int, cause error) {
	e.remove(ctx, op)

	e.config.Metrics.IncReplayDropped()
	e.config.Logger.Warn("queued operation dropped",
		logging.OpFields(op, "status", status, "error", logging.ErrField(cause))...)
	e.config.Notifier.Notify(types.Event{
		Kind:     types.EventReplayItemDropped,
		Target:   op.Target,
		QueuedID: op.ID,
		Status:   status,
		Reason:   cause.Error(),
	})
	if e.config.OnDrop != nil {
		e.config.OnDrop(op, cause)
	}
}

func (e *Engine) retain(ctx context.Context, op types.QueuedOperation, cause error) {
	count, err := e.store.IncrementRetry(ctx, op.ID)
	switch {
	case errors.Is(err, types.ErrOperationNotFound):
		// Removed by someone else while the attempt was in flight.
		count = op.RetryCount
	case err != nil:
		count = op.RetryCount
		e.config.Logger.Error("failed to increment retry count",
			logging.OpFields(op, "error", err.Error())...)
	}

	e.config.Metrics.IncReplayRetained()
	e.config.Logger.Warn("replay attempt failed, operation kept",
		logging.OpFields(op, "retries_after", count, "error", logging.ErrField(cause))...)
	if e.config.OnRetain != nil {
		e.config.OnRetain(op, cause, count)
	}
}
