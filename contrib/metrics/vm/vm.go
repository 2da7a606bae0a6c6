package vm

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/salahkhalfi/offlineq/types"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "offlineq"
//
// Parameters:
//   - prefix: The prefix to use for all metric names
//
// Returns:
//   - Option: A configuration option
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithQueueName sets the value of the queue label.
//
// Use it to tell apart several queues exported from one process.
//
// Default: "default"
//
// Parameters:
//   - name: The queue label value
//
// Returns:
//   - Option: A configuration option
func WithQueueName(name string) Option {
	return func(c *Collector) {
		c.queue = name
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector registers metrics with this set instead of
// creating a new one. The caller is responsible for exposing this set.
//
// Parameters:
//   - set: The metrics set to use
//
// Returns:
//   - Option: A configuration option
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// Collector implements types.MetricsCollector using VictoriaMetrics.
//
// Thread-safe for concurrent use.
type Collector struct {
	set    *metrics.Set
	prefix string
	queue  string

	// Enqueue metrics
	enqueued    *metrics.Counter
	passthrough *metrics.Counter

	// Replay metrics
	replaySuccess   *metrics.Counter
	replayDropped   *metrics.Counter
	replayRetained  *metrics.Counter
	replayDuration  *metrics.Histogram
	drainPasses     *metrics.Counter
	drainsCoalesced *metrics.Counter
	queueDepth      atomic.Int64

	// Connectivity metrics
	reachable atomic.Int64
}

var _ types.MetricsCollector = (*Collector)(nil)

// New creates a new VictoriaMetrics-based metrics collector.
//
// Without WithMetricsSet the collector creates its own metrics.Set and
// registers it globally.
//
// Parameters:
//   - opts: Configuration options (e.g., WithPrefix)
//
// Returns:
//   - *Collector: A new metrics collector ready for use
func New(opts ...Option) *Collector {
	c := &Collector{
		prefix: "offlineq",
		queue:  "default",
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	c.initMetrics()

	return c
}

func (c *Collector) name(metric string, extra ...string) string {
	labels := fmt.Sprintf(`queue=%q`, c.queue)
	for i := 0; i+1 < len(extra); i += 2 {
		labels += fmt.Sprintf(`,%s=%q`, extra[i], extra[i+1])
	}

	return fmt.Sprintf("%s_%s{%s}", c.prefix, metric, labels)
}

// initMetrics pre-creates all metrics with the configured prefix.
func (c *Collector) initMetrics() {
	c.enqueued = c.set.NewCounter(c.name("enqueued_total"))
	c.passthrough = c.set.NewCounter(c.name("passthrough_total"))

	c.replaySuccess = c.set.NewCounter(c.name("replay_total", "outcome", "success"))
	c.replayDropped = c.set.NewCounter(c.name("replay_total", "outcome", "dropped"))
	c.replayRetained = c.set.NewCounter(c.name("replay_total", "outcome", "retained"))
	c.replayDuration = c.set.NewHistogram(c.name("replay_duration_seconds"))
	c.drainPasses = c.set.NewCounter(c.name("drain_passes_total"))
	c.drainsCoalesced = c.set.NewCounter(c.name("drain_coalesced_total"))
	c.set.NewGauge(c.name("queue_depth"), func() float64 {
		return float64(c.queueDepth.Load())
	})

	c.set.NewGauge(c.name("reachable"), func() float64 {
		return float64(c.reachable.Load())
	})
}

// Set returns the metrics set the collector registers with.
func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler exposes metrics in Prometheus format.
//
// Example:
//
//	http.HandleFunc("/metrics", collector.Handler)
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to the given writer.
//
// Parameters:
//   - w: The writer to write metrics to
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// ----------------------
// Enqueue
// ----------------------

// IncEnqueued increments the enqueued counter.
func (c *Collector) IncEnqueued() {
	c.enqueued.Inc()
}

// IncPassthrough increments the pass-through counter.
func (c *Collector) IncPassthrough() {
	c.passthrough.Inc()
}

// ----------------------
// Replay
// ----------------------

// IncReplaySuccess increments the successful replay counter.
func (c *Collector) IncReplaySuccess() {
	c.replaySuccess.Inc()
}

// IncReplayDropped increments the dropped replay counter.
func (c *Collector) IncReplayDropped() {
	c.replayDropped.Inc()
}

// IncReplayRetained increments the retained replay counter.
func (c *Collector) IncReplayRetained() {
	c.replayRetained.Inc()
}

// ObserveReplayDuration records a replay attempt duration in seconds.
func (c *Collector) ObserveReplayDuration(seconds float64) {
	c.replayDuration.Update(seconds)
}

// IncDrainPass increments the drain pass counter.
func (c *Collector) IncDrainPass() {
	c.drainPasses.Inc()
}

// IncDrainCoalesced increments the coalesced drain counter.
func (c *Collector) IncDrainCoalesced() {
	c.drainsCoalesced.Inc()
}

// SetQueueDepth sets the queue depth gauge.
func (c *Collector) SetQueueDepth(depth int) {
	c.queueDepth.Store(int64(depth))
}

// ----------------------
// Connectivity
// ----------------------

// SetReachable sets the reachability gauge.
func (c *Collector) SetReachable(reachable bool) {
	if reachable {
		c.reachable.Store(1)
	} else {
		c.reachable.Store(0)
	}
}
