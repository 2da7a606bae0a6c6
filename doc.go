// Package offlineq provides a durable offline mutation queue for clients that
// must keep working while the network is down.
//
// State-changing operations (create a ticket, send a message, update a
// record) that fail because the backend is unreachable are persisted to a
// local store and answered with a synthetic success. When connectivity
// returns, the queued operations are replayed one at a time in the order they
// were issued.
//
// # Key Features
//
//   - Durable Storage: Pebble, SQLite, NATS JetStream KV, or in-memory stores
//   - Ordered Replay: Strictly sequential, oldest first, one drain at a time
//   - Coalesced Drains: Overlapping drain requests collapse into one extra pass
//   - Anti-Flap Settling: Drains start only after connectivity stays up for a
//     settle delay
//   - Typed Offline Results: Callers tell real and synthetic responses apart
//     with Result.Offline() or a type switch
//
// # Basic Usage
//
//	st := store.NewPebble("/var/lib/myapp/queue")
//	tr, _ := httptransport.New("https://api.example.com")
//	probe, _ := connectivity.NewProbe("api.example.com:443")
//
//	q, err := offlineq.New(st, tr,
//	    offlineq.WithConnectivityWatcher(probe),
//	    offlineq.WithNotifier(notifier),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Close()
//
//	res, err := q.Do(ctx, offlineq.Request{
//	    Target:  "/api/tickets",
//	    Method:  offlineq.MethodCreate,
//	    Payload: body,
//	})
//	if err != nil {
//	    return err // rejected by the server, or could not be queued
//	}
//	if res.Offline() {
//	    showPendingBadge(res.(*offlineq.SyntheticResponse).PlaceholderID)
//	}
//
// # Failure Classes
//
// Every transport result is classified (see types.Classify):
//
//   - Success: returned to the caller, or removed from the queue on replay
//   - Terminal (4xx other than 408/429): returned to the caller, or dropped
//     on replay with a replay-item-dropped event
//   - Transient (no response, timeout, 408, 429, 5xx): queued, or kept with
//     an incremented retry count on replay
//
// # Pass-Through Mode
//
// If the store cannot be opened, New still succeeds and the queue runs in
// pass-through mode: Available reports false and transient failures are
// returned to the caller unchanged.
//
// # Sentinel Errors
//
//   - types.ErrStoreUnavailable: The store cannot be used
//   - types.ErrReplayInFlight: A drain was already running; one more pass was
//     scheduled. Informational only.
//   - types.ErrQueueClosed: Operation attempted on a closed queue
//
// Check for sentinel errors using errors.Is.
package offlineq
