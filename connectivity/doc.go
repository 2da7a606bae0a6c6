// Package connectivity provides reachability watchers for the offline queue.
//
// Every watcher implements types.ConnectivityWatcher: Watch returns a channel
// of types.ConnectivityUpdate values, one per reachability transition. The
// queue's Monitor consumes the channel and starts a drain once the network has
// been reachable for the settle delay.
//
// # Watchers
//
//   - [Local]: programmable watcher for tests, demos and platforms that
//     already deliver online/offline callbacks.
//   - [Probe]: polls a TCP endpoint (typically the API host) and reports
//     transitions after a configurable number of consecutive results.
//   - [NATS]: watches a NATS KV key carrying a JSON reachability document,
//     so one process (or an operator) can publish reachability for a fleet.
//
// # NATS Document Format
//
//	{
//	    "reachable": false,
//	    "reason": "API maintenance window"
//	}
//
// A missing or deleted key means reachable.
//
// # Channel Semantics
//
// Channels are buffered and sends never block; when a consumer falls behind,
// the oldest pending transition is replaced so the channel always ends on the
// latest state. Channels close when the watcher is closed or the context given
// to the first Watch call is cancelled.
package connectivity
