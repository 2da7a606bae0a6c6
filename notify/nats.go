package notify

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/salahkhalfi/offlineq/internal/logging"
	"github.com/salahkhalfi/offlineq/types"
)

// Publisher publishes a message on a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Message is the JSON document published for each event.
type Message struct {
	Kind      types.EventKind `json:"kind"`
	Target    string          `json:"target,omitempty"`
	QueuedID  uint64          `json:"queued_id,omitempty"`
	Status    int             `json:"status,omitempty"`
	Succeeded int             `json:"succeeded,omitempty"`
	Dropped   int             `json:"dropped,omitempty"`
	Retained  int             `json:"retained,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Time      time.Time       `json:"time"`
}

// NATSConfig configures the NATS notifier.
type NATSConfig struct {
	// SubjectPrefix is prepended to the event kind.
	// Default: "offlineq.events"
	SubjectPrefix string

	// Logger receives publish failures.
	// If nil, failures are discarded.
	Logger types.Logger

	// Now stamps messages.
	// Default: time.Now
	Now func() time.Time
}

// NATSOption configures a NATS notifier.
type NATSOption func(*NATSConfig)

// WithSubjectPrefix sets the subject prefix.
//
// Parameters:
//   - prefix: Subject prefix
//
// Returns:
//   - NATSOption: Configuration option
func WithSubjectPrefix(prefix string) NATSOption {
	return func(c *NATSConfig) {
		c.SubjectPrefix = prefix
	}
}

// WithLogger sets the logger for publish failures.
func WithLogger(l types.Logger) NATSOption {
	return func(c *NATSConfig) {
		c.Logger = l
	}
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) NATSOption {
	return func(c *NATSConfig) {
		c.Now = now
	}
}

// NATS publishes queue events to NATS subjects "<prefix>.<kind>", for
// example "offlineq.events.replay-summary".
type NATS struct {
	pub    Publisher
	config NATSConfig
}

var _ types.Notifier = (*NATS)(nil)

// NewNATS creates a NATS notifier.
//
// Parameters:
//   - pub: The publisher, usually a *nats.Conn
//   - opts: Optional configuration options
//
// Returns:
//   - *NATS: A new notifier
//   - error: Error if pub is nil
func NewNATS(pub Publisher, opts ...NATSOption) (*NATS, error) {
	if pub == nil {
		return nil, errors.New("offlineq/notify: publisher is nil")
	}

	config := NATSConfig{SubjectPrefix: "offlineq.events"}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = logging.NewNopLogger()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &NATS{pub: pub, config: config}, nil
}

// Notify publishes event. Failures are logged, never returned.
func (n *NATS) Notify(event types.Event) {
	msg := Message{
		Kind:      event.Kind,
		Target:    event.Target,
		QueuedID:  event.QueuedID,
		Status:    event.Status,
		Succeeded: event.Summary.Succeeded,
		Dropped:   event.Summary.Dropped,
		Retained:  event.Summary.Retained,
		Reason:    event.Reason,
		Time:      n.config.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		n.config.Logger.Error("failed to encode event", "kind", string(event.Kind), "error", err.Error())
		return
	}

	subject := n.config.SubjectPrefix + "." + string(event.Kind)
	if err := n.pub.Publish(subject, data); err != nil {
		n.config.Logger.Warn("failed to publish event",
			"subject", subject,
			"error", err.Error(),
		)
	}
}
