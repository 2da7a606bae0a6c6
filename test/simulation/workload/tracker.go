package workload

import (
	"fmt"
	"sync"
)

// WriteTracker tracks accepted writes for verification.
type WriteTracker struct {
	mu       sync.RWMutex
	live     map[uint64]struct{}
	queued   []uint64
	rejected map[uint64]struct{}
	dropped  map[uint64]struct{}
	failed   int
}

// NewWriteTracker creates a new write tracker.
func NewWriteTracker() *WriteTracker {
	return &WriteTracker{
		live:     make(map[uint64]struct{}),
		rejected: make(map[uint64]struct{}),
		dropped:  make(map[uint64]struct{}),
	}
}

// TrackLive records a write the server acknowledged directly.
func (t *WriteTracker) TrackLive(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.live[seq] = struct{}{}
}

// TrackQueued records a write answered with a synthetic response.
// Calls must follow enqueue order.
func (t *WriteTracker) TrackQueued(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.queued = append(t.queued, seq)
}

// TrackRejected records a write the server refuses.
func (t *WriteTracker) TrackRejected(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rejected[seq] = struct{}{}
}

// TrackDropped records a queued write the replay engine gave up on.
func (t *WriteTracker) TrackDropped(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dropped[seq] = struct{}{}
}

// Dropped returns the number of queued writes dropped during replay.
func (t *WriteTracker) Dropped() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.dropped)
}

// TrackFailed records a write whose error reached the caller.
func (t *WriteTracker) TrackFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failed++
}

// Count returns the number of accepted writes.
func (t *WriteTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.live) + len(t.queued)
}

// QueuedCount returns the number of writes answered offline.
func (t *WriteTracker) QueuedCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.queued)
}

// Failed returns the number of writes whose error reached the caller.
func (t *WriteTracker) Failed() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.failed
}

// VerifyDelivery checks that every accepted write reached the server and
// that rejected writes were dropped instead.
//
// A queued write dropped after exhausting its retries counts as settled.
func (t *WriteTracker) VerifyDelivery(server *Server) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	missing := 0
	for seq := range t.live {
		if server.Deliveries(seq) == 0 {
			missing++
		}
	}

	for _, seq := range t.queued {
		_, dropped := t.dropped[seq]
		if _, ok := t.rejected[seq]; ok {
			if server.Deliveries(seq) > 0 {
				return fmt.Errorf("rejected write %d was delivered", seq)
			}
			if !dropped {
				return fmt.Errorf("rejected write %d was never dropped", seq)
			}

			continue
		}
		if server.Deliveries(seq) == 0 && !dropped {
			missing++
		}
	}

	if missing > 0 {
		return fmt.Errorf("delivery check failed: %d of %d accepted writes missing", missing, len(t.live)+len(t.queued))
	}

	return nil
}

// VerifyOrder checks that queued writes were first delivered in the order
// they were queued. It only holds when no replay was retained while a later
// one succeeded, so runs with random replay failures skip it.
func (t *WriteTracker) VerifyOrder(server *Server) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	position := make(map[uint64]int, len(t.queued))
	for i, seq := range t.queued {
		position[seq] = i
	}

	seen := make(map[uint64]bool, len(position))
	last := -1
	for _, seq := range server.Order() {
		pos, ok := position[seq]
		if !ok || seen[seq] {
			continue
		}
		seen[seq] = true
		if pos < last {
			return fmt.Errorf("ordering check failed: queued write %d replayed after a later write", seq)
		}
		last = pos
	}

	return nil
}
