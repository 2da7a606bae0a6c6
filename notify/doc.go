// Package notify provides notification sinks for queue events.
//
// The queue reports queued, replay-summary, replay-item-dropped, online and
// offline events through types.Notifier. Sinks must not block: the queue
// calls Notify inline from Enqueue and from the replay loop.
//
//   - [Channel]: buffered channel for a UI loop; drops when full
//   - [Func]: adapts a plain function
//   - [Multi]: fans one event out to several sinks
//   - [NATS]: publishes events as JSON on "<prefix>.<kind>" subjects
package notify
