// Package vm provides a VictoriaMetrics-based implementation of the MetricsCollector interface.
//
// This package uses github.com/VictoriaMetrics/metrics for lightweight,
// Prometheus-compatible metrics collection.
//
// # Basic Usage
//
// Create a collector with default prefix "offlineq":
//
//	collector := vm.New()
//	q, _ := offlineq.New(store, transport,
//	    offlineq.WithMetrics(collector),
//	)
//
// # Custom Prefix and Labels
//
//	collector := vm.New(
//	    vm.WithPrefix("desk"),
//	    vm.WithQueueName("tickets"),
//	)
//
// This produces metrics like:
//   - desk_enqueued_total{queue="tickets"}
//   - desk_replay_duration_seconds{queue="tickets"}
//
// # Exposing Metrics
//
//	http.HandleFunc("/metrics", collector.Handler)
//
// # Metrics Provided
//
// Enqueue:
//   - {prefix}_enqueued_total{queue} - Counter of operations persisted for replay
//   - {prefix}_passthrough_total{queue} - Counter of operations surfaced because the store was unavailable
//
// Replay:
//   - {prefix}_replay_total{queue,outcome} - Counter of replay attempts by outcome (success, dropped, retained)
//   - {prefix}_replay_duration_seconds{queue} - Histogram of replay attempt latencies
//   - {prefix}_drain_passes_total{queue} - Counter of drain passes
//   - {prefix}_drain_coalesced_total{queue} - Counter of drain requests merged into a running drain
//   - {prefix}_queue_depth{queue} - Gauge of queued operations
//
// Connectivity:
//   - {prefix}_reachable{queue} - Gauge (1=reachable, 0=unreachable)
//
// All metrics are pre-created at initialization time using the NewXXX
// pattern (instead of GetOrCreateXXX) so hot paths never touch the registry.
package vm
