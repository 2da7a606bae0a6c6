package connectivity

import (
	"context"
	"sync"

	"github.com/salahkhalfi/offlineq/types"
)

const updateBuffer = 10

// emitter owns an update channel shared by the watchers.
//
// It tracks the last emitted state, drops repeats, and never blocks the
// producer.
type emitter struct {
	mu       sync.Mutex
	updates  chan types.ConnectivityUpdate
	done     chan struct{}
	closed   bool
	chClosed bool
	started  bool
	known    bool
	current  bool
}

func newEmitter() *emitter {
	return &emitter{
		updates: make(chan types.ConnectivityUpdate, updateBuffer),
		done:    make(chan struct{}),
	}
}

// start marks the watch as started and reports whether this is the first call.
func (e *emitter) start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return false
	}
	e.started = true

	return true
}

// emit publishes a state when it differs from the last one.
func (e *emitter) emit(reachable bool, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.chClosed || (e.known && e.current == reachable) {
		return false
	}
	e.known = true
	e.current = reachable

	update := types.ConnectivityUpdate{Reachable: reachable, Reason: reason}
	select {
	case e.updates <- update:
	default:
		// Replace the oldest pending transition; the newest state must win.
		select {
		case <-e.updates:
		default:
		}
		select {
		case e.updates <- update:
		default:
		}
	}

	return true
}

// state returns the last emitted state and whether any state was emitted.
func (e *emitter) state() (reachable, known bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.current, e.known
}

// seed sets the initial state without emitting it.
func (e *emitter) seed(reachable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.known = true
	e.current = reachable
}

func (e *emitter) close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	close(e.done)
}

// closeUpdates closes the channel once.
func (e *emitter) closeUpdates() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.chClosed {
		e.chClosed = true
		close(e.updates)
	}
}

// waitForClose closes the channel on context cancellation or close.
func (e *emitter) waitForClose(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-e.done:
	}

	e.closeUpdates()
}
