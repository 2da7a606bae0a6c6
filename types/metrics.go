package types

// MetricsCollector defines methods for collecting operational metrics.
//
// Implementations should be thread-safe as methods may be called concurrently.
//
// Example usage with VictoriaMetrics (via contrib/metrics/vm):
//
//	import vmmetrics "github.com/salahkhalfi/offlineq/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	q, _ := offlineq.New(store, transport,
//	    offlineq.WithMetrics(collector),
//	)
//
//	// Expose metrics via HTTP
//	http.HandleFunc("/metrics", collector.Handler)
type MetricsCollector interface {
	// ----------------------
	// Enqueue
	// ----------------------

	// IncEnqueued increments the counter of operations persisted for replay.
	IncEnqueued()

	// IncPassthrough increments the counter of operations that could not be
	// queued (store unavailable) and surfaced their original error.
	IncPassthrough()

	// ----------------------
	// Replay
	// ----------------------

	// IncReplaySuccess increments the counter of successful replays.
	IncReplaySuccess()

	// IncReplayDropped increments the counter of discarded operations.
	IncReplayDropped()

	// IncReplayRetained increments the counter of retained replay attempts.
	IncReplayRetained()

	// ObserveReplayDuration records a single replay attempt duration in seconds.
	ObserveReplayDuration(seconds float64)

	// IncDrainPass increments the counter of drain passes executed.
	IncDrainPass()

	// IncDrainCoalesced increments the counter of drain requests merged into
	// an in-flight drain.
	IncDrainCoalesced()

	// SetQueueDepth sets the queue depth gauge.
	SetQueueDepth(depth int)

	// ----------------------
	// Connectivity
	// ----------------------

	// SetReachable sets the reachability gauge (1 reachable, 0 unreachable).
	SetReachable(reachable bool)
}
