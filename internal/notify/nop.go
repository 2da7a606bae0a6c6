// Package notify provides internal notification utilities for offlineq.
package notify

import "github.com/salahkhalfi/offlineq/types"

// NopNotifier discards every event.
type NopNotifier struct{}

var _ types.Notifier = (*NopNotifier)(nil)

// NewNopNotifier creates a notifier that discards all events.
func NewNopNotifier() *NopNotifier {
	return &NopNotifier{}
}

// Notify discards the event.
func (n *NopNotifier) Notify(_ types.Event) {}
