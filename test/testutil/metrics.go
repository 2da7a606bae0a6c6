package testutil

import (
	"sync"
	"sync/atomic"

	"github.com/salahkhalfi/offlineq/types"
)

// TestMetricsCollector is a test implementation of types.MetricsCollector
// that tracks method calls for assertion in tests.
type TestMetricsCollector struct {
	Enqueued        atomic.Int64
	Passthrough     atomic.Int64
	ReplaySuccess   atomic.Int64
	ReplayDropped   atomic.Int64
	ReplayRetained  atomic.Int64
	DrainPasses     atomic.Int64
	DrainsCoalesced atomic.Int64

	mu              sync.RWMutex
	replayDurations []float64
	queueDepth      int
	reachable       []bool
}

// Compile-time assertion that TestMetricsCollector implements types.MetricsCollector.
var _ types.MetricsCollector = (*TestMetricsCollector)(nil)

// NewTestMetricsCollector creates a new test metrics collector.
func NewTestMetricsCollector() *TestMetricsCollector {
	return &TestMetricsCollector{}
}

// ----------------------
// Queue
// ----------------------

// IncEnqueued records an enqueued operation.
func (m *TestMetricsCollector) IncEnqueued() { m.Enqueued.Add(1) }

// IncPassthrough records a failure passed through without queueing.
func (m *TestMetricsCollector) IncPassthrough() { m.Passthrough.Add(1) }

// SetQueueDepth records the pending operation count.
func (m *TestMetricsCollector) SetQueueDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueDepth = depth
}

// ----------------------
// Replay
// ----------------------

// IncReplaySuccess records a replayed operation.
func (m *TestMetricsCollector) IncReplaySuccess() { m.ReplaySuccess.Add(1) }

// IncReplayDropped records a dropped operation.
func (m *TestMetricsCollector) IncReplayDropped() { m.ReplayDropped.Add(1) }

// IncReplayRetained records a retained operation.
func (m *TestMetricsCollector) IncReplayRetained() { m.ReplayRetained.Add(1) }

// ObserveReplayDuration records a replay attempt duration.
func (m *TestMetricsCollector) ObserveReplayDuration(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replayDurations = append(m.replayDurations, seconds)
}

// IncDrainPass records a drain pass.
func (m *TestMetricsCollector) IncDrainPass() { m.DrainPasses.Add(1) }

// IncDrainCoalesced records a coalesced drain request.
func (m *TestMetricsCollector) IncDrainCoalesced() { m.DrainsCoalesced.Add(1) }

// ----------------------
// Connectivity
// ----------------------

// SetReachable records a reachability transition.
func (m *TestMetricsCollector) SetReachable(reachable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reachable = append(m.reachable, reachable)
}

// ----------------------
// Test Helpers
// ----------------------

// QueueDepth returns the last recorded queue depth.
func (m *TestMetricsCollector) QueueDepth() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queueDepth
}

// ReplayDurations returns all recorded replay durations.
func (m *TestMetricsCollector) ReplayDurations() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.replayDurations...)
}

// Reachability returns every recorded reachability value in order.
func (m *TestMetricsCollector) Reachability() []bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]bool(nil), m.reachable...)
}

// Reset clears all collected metrics.
func (m *TestMetricsCollector) Reset() {
	m.Enqueued.Store(0)
	m.Passthrough.Store(0)
	m.ReplaySuccess.Store(0)
	m.ReplayDropped.Store(0)
	m.ReplayRetained.Store(0)
	m.DrainPasses.Store(0)
	m.DrainsCoalesced.Store(0)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.replayDurations = nil
	m.queueDepth = 0
	m.reachable = nil
}
