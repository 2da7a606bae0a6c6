package offlineq

import (
	"time"

	"github.com/google/uuid"

	"github.com/salahkhalfi/offlineq/internal/logging"
	"github.com/salahkhalfi/offlineq/internal/metrics"
	"github.com/salahkhalfi/offlineq/internal/notify"
	"github.com/salahkhalfi/offlineq/replay"
	"github.com/salahkhalfi/offlineq/types"
)

// PlaceholderGenerator returns temporary ids for synthetic responses.
type PlaceholderGenerator func() string

// DefaultPlaceholderGenerator returns types.PlaceholderPrefix followed by a
// random UUID.
func DefaultPlaceholderGenerator() string {
	return types.PlaceholderPrefix + uuid.NewString()
}

// QueueConfig holds configuration for a Queue.
type QueueConfig struct {
	// SettleDelay is how long connectivity must stay up before a drain runs.
	// Default: 2 seconds
	SettleDelay time.Duration

	// ExecuteTimeout bounds each transport call, both in Do and on replay.
	// Default: 30 seconds
	ExecuteTimeout time.Duration

	// OpenTimeout bounds opening the store in New.
	// Default: 10 seconds
	OpenTimeout time.Duration

	// MaxRetries drops a queued operation once its retry count reaches this
	// value. Zero retries forever.
	// Default: 0
	MaxRetries int

	Classifier     types.Classifier
	HeaderResolver types.HeaderResolver
	Watcher        types.ConnectivityWatcher
	Notifier       types.Notifier
	Metrics        types.MetricsCollector
	Logger         types.Logger
	Now            func() time.Time
	Placeholder    PlaceholderGenerator

	// ReplayOptions are applied to the replay engine after the options
	// derived from this config.
	ReplayOptions []replay.EngineOption
}

// DefaultConfig returns a QueueConfig with sensible defaults.
//
// Returns:
//   - *QueueConfig: Configuration with default settings
func DefaultConfig() *QueueConfig {
	return &QueueConfig{
		SettleDelay:    2 * time.Second,
		ExecuteTimeout: 30 * time.Second,
		OpenTimeout:    10 * time.Second,
		Classifier:     types.Classify,
		Notifier:       notify.NewNopNotifier(),
		Metrics:        metrics.NewNopMetrics(),
		Logger:         logging.NewNopLogger(),
		Now:            time.Now,
		Placeholder:    DefaultPlaceholderGenerator,
	}
}

// Option configures a QueueConfig.
type Option func(*QueueConfig)

// WithSettleDelay sets how long connectivity must stay up before draining.
//
// A connectivity loss before the delay elapses cancels the pending drain.
//
// Parameters:
//   - d: The settle delay; zero drains immediately
//
// Returns:
//   - Option: Configuration option
func WithSettleDelay(d time.Duration) Option {
	return func(c *QueueConfig) {
		c.SettleDelay = d
	}
}

// WithExecuteTimeout sets the timeout of each transport call.
//
// Parameters:
//   - d: The per-call timeout
//
// Returns:
//   - Option: Configuration option
func WithExecuteTimeout(d time.Duration) Option {
	return func(c *QueueConfig) {
		c.ExecuteTimeout = d
	}
}

// WithOpenTimeout sets the timeout for opening the store.
func WithOpenTimeout(d time.Duration) Option {
	return func(c *QueueConfig) {
		c.OpenTimeout = d
	}
}

// WithMaxRetries sets the retry limit after which a queued operation is
// dropped.
//
// Parameters:
//   - n: The limit; 0 retries forever
//
// Returns:
//   - Option: Configuration option
func WithMaxRetries(n int) Option {
	return func(c *QueueConfig) {
		c.MaxRetries = n
	}
}

// WithClassifier replaces types.Classify for both Do and replay.
//
// Parameters:
//   - fn: The classifier
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	// Treat 501 as a permanent failure
//	offlineq.WithClassifier(func(resp *types.Response, err error) types.Outcome {
//	    if types.StatusOf(resp, err) == http.StatusNotImplemented {
//	        return types.OutcomeTerminal
//	    }
//	    return types.Classify(resp, err)
//	})
func WithClassifier(fn types.Classifier) Option {
	return func(c *QueueConfig) {
		c.Classifier = fn
	}
}

// WithHeaderResolver sets the function that re-resolves headers at replay.
//
// Use it to attach a fresh auth token instead of the one captured when the
// operation was queued.
//
// Parameters:
//   - fn: The resolver
//
// Returns:
//   - Option: Configuration option
func WithHeaderResolver(fn types.HeaderResolver) Option {
	return func(c *QueueConfig) {
		c.HeaderResolver = fn
	}
}

// WithConnectivityWatcher sets the source of connectivity transitions.
//
// When set, the queue drains automatically after connectivity returns.
// Without it, call DrainAndReplay yourself.
//
// Parameters:
//   - watcher: The watcher (e.g. connectivity.NewProbe)
//
// Returns:
//   - Option: Configuration option
func WithConnectivityWatcher(watcher types.ConnectivityWatcher) Option {
	return func(c *QueueConfig) {
		c.Watcher = watcher
	}
}

// WithNotifier sets the sink for queue events.
//
// Parameters:
//   - n: The notifier
//
// Returns:
//   - Option: Configuration option
func WithNotifier(n types.Notifier) Option {
	return func(c *QueueConfig) {
		c.Notifier = n
	}
}

// WithMetrics sets the metrics collector.
//
// If not set, a no-op collector is used that discards all metrics.
// Use contrib/metrics/vm.New() for VictoriaMetrics integration.
//
// Parameters:
//   - collector: The metrics collector implementation
//
// Returns:
//   - Option: Configuration option
func WithMetrics(collector types.MetricsCollector) Option {
	return func(c *QueueConfig) {
		c.Metrics = collector
	}
}

// WithLogger sets the structured logger.
//
// If not set, a no-op logger is used that discards all messages.
// The logger interface is compatible with zap.SugaredLogger; see
// contrib/logging/zap for an adapter that redacts credentials.
//
// Parameters:
//   - logger: The logger implementation
//
// Returns:
//   - Option: Configuration option
func WithLogger(logger types.Logger) Option {
	return func(c *QueueConfig) {
		c.Logger = logger
	}
}

// WithClock sets the time source for enqueue timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *QueueConfig) {
		c.Now = now
	}
}

// WithPlaceholderGenerator sets the generator of synthetic placeholder ids.
func WithPlaceholderGenerator(fn PlaceholderGenerator) Option {
	return func(c *QueueConfig) {
		c.Placeholder = fn
	}
}

// WithReplayOptions passes extra options to the replay engine.
//
// Parameters:
//   - opts: Engine options such as replay.WithOnDrop
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	offlineq.WithReplayOptions(
//	    replay.WithOnDrop(func(op types.QueuedOperation, err error) {
//	        audit.Record(op.Target, err)
//	    }),
//	)
func WithReplayOptions(opts ...replay.EngineOption) Option {
	return func(c *QueueConfig) {
		c.ReplayOptions = append(c.ReplayOptions, opts...)
	}
}

// normalize replaces nil collaborators with defaults.
func (c *QueueConfig) normalize() {
	def := DefaultConfig()
	if c.Classifier == nil {
		c.Classifier = def.Classifier
	}
	if c.Notifier == nil {
		c.Notifier = def.Notifier
	}
	if c.Metrics == nil {
		c.Metrics = def.Metrics
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	if c.Now == nil {
		c.Now = def.Now
	}
	if c.Placeholder == nil {
		c.Placeholder = def.Placeholder
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = def.OpenTimeout
	}
	if c.ExecuteTimeout <= 0 {
		c.ExecuteTimeout = def.ExecuteTimeout
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
}

// engineOptions derives the replay engine options from the config.
func (c *QueueConfig) engineOptions() []replay.EngineOption {
	opts := []replay.EngineOption{
		replay.WithExecuteTimeout(c.ExecuteTimeout),
		replay.WithMaxRetries(c.MaxRetries),
		replay.WithClassifier(c.Classifier),
		replay.WithHeaderResolver(c.HeaderResolver),
		replay.WithNotifier(c.Notifier),
		replay.WithEngineMetrics(c.Metrics),
		replay.WithEngineLogger(c.Logger),
	}

	return append(opts, c.ReplayOptions...)
}
