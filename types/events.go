package types

import (
	"strconv"
	"strings"
)

// EventKind identifies a notification event.
type EventKind string

const (
	// EventQueued is emitted when an operation is persisted for later replay.
	EventQueued EventKind = "queued"
	// EventReplaySummary is emitted at the end of every drain pass.
	EventReplaySummary EventKind = "replay-summary"
	// EventReplayItemDropped is emitted when a queued operation is discarded.
	EventReplayItemDropped EventKind = "replay-item-dropped"
	// EventOnline is emitted when the backend becomes reachable.
	EventOnline EventKind = "online"
	// EventOffline is emitted when the backend becomes unreachable.
	EventOffline EventKind = "offline"
)

// Event is a user-facing notification.
//
// Only the fields relevant to Kind are populated:
//   - EventQueued: Target, QueuedID
//   - EventReplayItemDropped: Target, QueuedID, Status
//   - EventReplaySummary: Summary
//   - EventOnline, EventOffline: Reason
type Event struct {
	Kind     EventKind
	Target   string
	QueuedID uint64
	Status   int
	Summary  DrainSummary
	Reason   string
}

// Notifier receives user-facing events.
//
// Implementations MUST NOT block: Notify is called inline from enqueue and
// drain paths.
type Notifier interface {
	Notify(event Event)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(event Event)

// Notify calls f(event).
func (f NotifierFunc) Notify(event Event) {
	f(event)
}

// DrainSummary counts the outcomes of one or more drain passes.
type DrainSummary struct {
	// Succeeded is the number of operations replayed successfully.
	Succeeded int

	// Dropped is the number of operations discarded (terminal failure or
	// retry limit reached).
	Dropped int

	// Retained is the number of operations kept for a later drain.
	Retained int

	// Passes is the number of drain passes the counts cover.
	Passes int
}

// Add accumulates another summary into s.
func (s *DrainSummary) Add(other DrainSummary) {
	s.Succeeded += other.Succeeded
	s.Dropped += other.Dropped
	s.Retained += other.Retained
	s.Passes += other.Passes
}

// Attempted returns the number of operations attempted.
func (s DrainSummary) Attempted() int {
	return s.Succeeded + s.Dropped + s.Retained
}

// Message renders the summary as user-facing text.
//
// Example: "3 actions synced, 1 action failed and was discarded".
// An empty summary renders as an empty string.
//
// Returns:
//   - string: The message, or "" when nothing was attempted
func (s DrainSummary) Message() string {
	var parts []string
	if s.Succeeded > 0 {
		parts = append(parts, plural(s.Succeeded, "action")+" synced")
	}
	if s.Dropped > 0 {
		verb := " failed and were discarded"
		if s.Dropped == 1 {
			verb = " failed and was discarded"
		}
		parts = append(parts, plural(s.Dropped, "action")+verb)
	}
	if s.Retained > 0 {
		parts = append(parts, plural(s.Retained, "action")+" still pending")
	}

	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}

	return strconv.Itoa(n) + " " + noun + "s"
}
