// Package metrics provides internal metrics utilities for offlineq.
package metrics

import "github.com/salahkhalfi/offlineq/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is used as the default metrics collector when no collector is configured,
// avoiding nil checks throughout the codebase.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNopMetrics creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A collector that discards all metrics
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// ----------------------
// Enqueue
// ----------------------

// IncEnqueued discards the metric.
func (m *NopMetrics) IncEnqueued() {}

// IncPassthrough discards the metric.
func (m *NopMetrics) IncPassthrough() {}

// ----------------------
// Replay
// ----------------------

// IncReplaySuccess discards the metric.
func (m *NopMetrics) IncReplaySuccess() {}

// IncReplayDropped discards the metric.
func (m *NopMetrics) IncReplayDropped() {}

// IncReplayRetained discards the metric.
func (m *NopMetrics) IncReplayRetained() {}

// ObserveReplayDuration discards the metric.
func (m *NopMetrics) ObserveReplayDuration(_ float64) {}

// IncDrainPass discards the metric.
func (m *NopMetrics) IncDrainPass() {}

// IncDrainCoalesced discards the metric.
func (m *NopMetrics) IncDrainCoalesced() {}

// SetQueueDepth discards the metric.
func (m *NopMetrics) SetQueueDepth(_ int) {}

// ----------------------
// Connectivity
// ----------------------

// SetReachable discards the metric.
func (m *NopMetrics) SetReachable(_ bool) {}
