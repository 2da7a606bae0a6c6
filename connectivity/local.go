package connectivity

import (
	"context"

	"github.com/salahkhalfi/offlineq/types"
)

// Local provides an in-memory, programmable connectivity watcher.
//
// Tests and demos call SetReachable to simulate transitions. Applications
// whose platform already reports online/offline (mobile OS callbacks, a UI
// shell) can forward those callbacks to SetReachable as well.
type Local struct {
	em *emitter
}

var _ types.ConnectivityWatcher = (*Local)(nil)

// NewLocal creates a local watcher with the given initial state. The initial
// state is not emitted.
//
// Parameters:
//   - reachable: Initial reachability
//
// Returns:
//   - *Local: A new local watcher
func NewLocal(reachable bool) *Local {
	em := newEmitter()
	em.seed(reachable)

	return &Local{em: em}
}

// Watch returns a channel that receives reachability transitions.
//
// Multiple calls to Watch return the same channel; only the first call's
// context controls the watch lifecycle.
//
// Parameters:
//   - ctx: Context for cancellation (only used on first call)
//
// Returns:
//   - <-chan types.ConnectivityUpdate: Channel of transitions
func (l *Local) Watch(ctx context.Context) <-chan types.ConnectivityUpdate {
	if l.em.start() {
		go l.em.waitForClose(ctx)
	}

	return l.em.updates
}

// SetReachable records a new state and emits it if it changed.
//
// Parameters:
//   - reachable: The new state
//   - reason: Human-readable reason carried on the update
//
// Returns:
//   - bool: true if an update was emitted
func (l *Local) SetReachable(reachable bool, reason string) bool {
	return l.em.emit(reachable, reason)
}

// Reachable returns the current state.
func (l *Local) Reachable() bool {
	reachable, _ := l.em.state()

	return reachable
}

// Close stops the watcher and closes the update channel.
//
// Close is safe to call multiple times.
func (l *Local) Close() error {
	l.em.close()
	l.em.closeUpdates()

	return nil
}
