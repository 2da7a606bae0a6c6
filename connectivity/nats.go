package connectivity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/salahkhalfi/offlineq/types"
)

// NATS watches a NATS KV key for a published reachability Status.
//
// The initial state is emitted once the watch is established. A missing or deleted
// key means reachable; a document that cannot be parsed is ignored. If the
// KV watch cannot be established the watcher falls back to polling, and a
// poll that fails for any reason other than a missing key reports the
// backend unreachable.
//
// Watch() should be called once per instance. Subsequent calls return the
// same channel.
type NATS struct {
	kv     jetstream.KeyValue
	config WatcherConfig
	em     *emitter
}

var _ types.ConnectivityWatcher = (*NATS)(nil)

// NewNATS creates a new NATS KV connectivity watcher.
//
// Parameters:
//   - kv: A NATS JetStream KeyValue store
//   - opts: Optional configuration options
//
// Returns:
//   - *NATS: A new watcher instance
//   - error: Error if kv is nil
//
// Example:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	kv, _ := js.KeyValue(ctx, "offlineq-config")
//
//	watcher, _ := connectivity.NewNATS(kv,
//	    connectivity.WithKey("mobile.api.reachability"),
//	)
func NewNATS(kv jetstream.KeyValue, opts ...WatcherOption) (*NATS, error) {
	if kv == nil {
		return nil, errors.New("offlineq/connectivity: KeyValue store is nil")
	}

	config := DefaultWatcherConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &NATS{kv: kv, config: config, em: newEmitter()}, nil
}

// Watch returns a channel that receives reachability transitions.
//
// Parameters:
//   - ctx: Context for cancellation (only used on first call)
//
// Returns:
//   - <-chan types.ConnectivityUpdate: Channel of transitions
func (n *NATS) Watch(ctx context.Context) <-chan types.ConnectivityUpdate {
	if n.em.start() {
		go n.watchLoop(ctx)
	}

	return n.em.updates
}

// Publish writes a reachability Status to the watched key.
//
// Every watcher on the key, in this process or another, observes the change.
//
// Parameters:
//   - ctx: Context for cancellation
//   - reachable: The state to publish
//   - reason: Human-readable reason
//
// Returns:
//   - error: Error if the KV put fails
func (n *NATS) Publish(ctx context.Context, reachable bool, reason string) error {
	data, err := json.Marshal(Status{Reachable: reachable, Reason: reason})
	if err != nil {
		return err
	}

	_, err = n.kv.Put(ctx, n.config.Key, data)

	return err
}

// Reachable returns the last observed state. Before the first fetch it
// reports true.
func (n *NATS) Reachable() bool {
	reachable, known := n.em.state()

	return reachable || !known
}

// Config returns the watcher configuration.
func (n *NATS) Config() WatcherConfig {
	return n.config
}

// Close stops the watcher and closes the update channel.
//
// Close is safe to call multiple times.
func (n *NATS) Close() error {
	n.em.close()

	return nil
}

func (n *NATS) watchLoop(ctx context.Context) {
	defer n.em.closeUpdates()

	// The watch delivers the current value first, then a nil marker once
	// initial values are done.
	watcher, err := n.kv.Watch(ctx, n.config.Key)
	if err != nil {
		n.fetchAndEmit(ctx)
		n.pollLoop(ctx)
		return
	}
	defer func() { _ = watcher.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.em.done:
			return
		case entry, ok := <-watcher.Updates():
			if !ok {
				n.pollLoop(ctx)
				return
			}
			if entry == nil {
				if _, known := n.em.state(); !known {
					n.em.emit(true, "no reachability published")
				}
				continue
			}
			n.processEntry(entry)
		}
	}
}

// pollLoop is a fallback polling loop when watch fails.
func (n *NATS) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(n.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.em.done:
			return
		case <-ticker.C:
			n.fetchAndEmit(ctx)
		}
	}
}

func (n *NATS) fetchAndEmit(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, n.config.InitialFetchTimeout)
	defer cancel()

	entry, err := n.kv.Get(fetchCtx, n.config.Key)
	switch {
	case errors.Is(err, jetstream.ErrKeyNotFound):
		n.em.emit(true, "no reachability published")
	case err != nil:
		if ctx.Err() == nil {
			n.em.emit(false, "reachability fetch failed: "+err.Error())
		}
	default:
		n.processEntry(entry)
	}
}

func (n *NATS) processEntry(entry jetstream.KeyValueEntry) {
	if entry.Operation() == jetstream.KeyValueDelete || entry.Operation() == jetstream.KeyValuePurge {
		n.em.emit(true, "reachability cleared")
		return
	}

	var status Status
	if err := json.Unmarshal(entry.Value(), &status); err != nil {
		return
	}

	n.em.emit(status.Reachable, status.Reason)
}
