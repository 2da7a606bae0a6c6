// Package replay provides the Replay Engine that drains the offline queue.
//
// # Drain Algorithm
//
// A drain pass snapshots the store with ListAll and replays every record in
// ascending id order, one at a time. Each attempt is awaited (bounded by the
// per-item timeout) before the next record starts, so a recovering backend
// never sees a flood of replays and dependent operations on the same resource
// keep their order.
//
// Each attempt is classified:
//
//   - Success: the record is removed
//   - Terminal (4xx other than 408/429): the record is removed and a
//     replay-item-dropped event is emitted
//   - Transient (no response, timeout, 408, 429, 5xx): the record stays and
//     its retry count is incremented; the pass continues with the next record
//
// After the pass a replay-summary event reports the counts.
//
// # Coalescing
//
// Only one drain runs at a time. A Drain call that arrives while another is
// running records a rerun request and returns types.ErrReplayInFlight
// immediately. When the running pass finishes, exactly one more pass runs no
// matter how many requests were recorded. Operations enqueued during a pass
// are therefore picked up by the rerun rather than by the pass already in
// progress.
//
// # Usage
//
//	engine, _ := replay.NewEngine(st, transport,
//		replay.WithExecuteTimeout(10*time.Second),
//		replay.WithHeaderResolver(refreshAuth),
//	)
//	summary, err := engine.Drain(ctx)
package replay
