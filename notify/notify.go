package notify

import (
	"sync"
	"sync/atomic"

	"github.com/salahkhalfi/offlineq/types"
)

// Channel delivers events on a buffered channel.
//
// Notify never blocks; events that do not fit are counted and discarded.
type Channel struct {
	ch      chan types.Event
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

var _ types.Notifier = (*Channel)(nil)

// NewChannel creates a channel sink.
//
// Parameters:
//   - size: Buffer size (minimum 1)
//
// Returns:
//   - *Channel: A new channel sink
func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}

	return &Channel{ch: make(chan types.Event, size)}
}

// Notify enqueues event without blocking.
func (c *Channel) Notify(event types.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}

	select {
	case c.ch <- event:
	default:
		c.dropped.Add(1)
	}
}

// C returns the event channel. It is closed by Close.
func (c *Channel) C() <-chan types.Event {
	return c.ch
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *Channel) Dropped() int64 {
	return c.dropped.Load()
}

// Close closes the event channel. Later events are ignored.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// Func adapts fn to types.Notifier. A nil fn discards events.
func Func(fn func(types.Event)) types.Notifier {
	if fn == nil {
		return types.NotifierFunc(func(types.Event) {})
	}

	return types.NotifierFunc(fn)
}

// Multi returns a notifier that forwards each event to every non-nil sink in
// order.
func Multi(sinks ...types.Notifier) types.Notifier {
	out := make([]types.Notifier, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}

	return multi(out)
}

type multi []types.Notifier

func (m multi) Notify(event types.Event) {
	for _, s := range m {
		s.Notify(event)
	}
}
